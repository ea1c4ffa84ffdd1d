package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding names reported in Result.Detail["encoding"].
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
	EncodingCP1252 = "cp1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errInvalidUTF8 = errors.New("invalid utf-8 sequence")

// Decoder is one rung of an encoding ladder.
type Decoder struct {
	Name   string
	Decode func([]byte) (string, error)
}

// DefaultLadder is the fallback order used for text files.
var DefaultLadder = []Decoder{
	{Name: EncodingUTF8, Decode: decodeUTF8},
	{Name: EncodingLatin1, Decode: charmapDecoder(charmap.ISO8859_1)},
	{Name: EncodingCP1252, Decode: charmapDecoder(charmap.Windows1252)},
}

// csvLadder is the shorter ladder used for CSV text.
var csvLadder = DefaultLadder[:2]

// DecodeError is returned when no decoder in the ladder accepts the input.
type DecodeError struct {
	Tried []string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("no encoding succeeded (tried %s): %v", strings.Join(e.Tried, ", "), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ReadText reads the file at path and decodes it with DefaultLadder.
// It returns the decoded content and the name of the encoding that worked.
func ReadText(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeBytes(data, DefaultLadder)
}

// DecodeBytes tries each decoder in order and returns the first success.
// A leading UTF-8 byte-order mark is dropped before decoding.
func DecodeBytes(data []byte, ladder []Decoder) (string, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	tried := make([]string, 0, len(ladder))
	var lastErr error
	for _, d := range ladder {
		content, err := d.Decode(data)
		if err == nil {
			return content, d.Name, nil
		}
		tried = append(tried, d.Name)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("empty encoding ladder")
	}
	return "", "", &DecodeError{Tried: tried, Err: lastErr}
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}
	return string(data), nil
}

func charmapDecoder(cm *charmap.Charmap) func([]byte) (string, error) {
	return func(data []byte) (string, error) {
		out, _, err := transform.Bytes(cm.NewDecoder(), data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}
