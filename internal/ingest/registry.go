package ingest

import (
	"fmt"
	"sort"
	"sync"
)

// Parser builds a Result from a file of one format.
// Recognized problems with the content belong in Result.StructuralErrors;
// a returned error means the parser could not run at all.
type Parser interface {
	Parse(path, filename string) (Result, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(path, filename string) (Result, error)

func (f ParserFunc) Parse(path, filename string) (Result, error) {
	return f(path, filename)
}

var (
	registry   = make(map[Format]Parser)
	registryMu sync.RWMutex
)

// Register adds the parser for a format.
// Panics if the format already has a parser.
func Register(format Format, p Parser) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[format]; exists {
		panic(fmt.Sprintf("parser already registered: %s", format))
	}
	registry[format] = p
}

// Lookup returns the parser registered for format.
func Lookup(format Format) (Parser, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[format]
	return p, ok
}

// Formats returns the formats with a registered parser, in enum order.
func Formats() []Format {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Format, 0, len(registry))
	for f := range registry {
		result = append(result, f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
