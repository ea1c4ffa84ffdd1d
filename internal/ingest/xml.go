package ingest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

func init() {
	Register(FormatXML, ParserFunc(parseXML))
}

var declEncoding = regexp.MustCompile(`encoding\s*=\s*["']([^"']+)["']`)

func parseXML(path, _ string) (Result, error) {
	res := newResult(FormatXML, LabelXML)

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		res.fail(MsgFileEmpty)
		return res, nil
	}

	// The token pass reports syntax errors with their line number.
	if err := checkSyntax(data); err != nil {
		res.fail("malformed XML: %v", err)
		return res, nil
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		res.fail("malformed XML: %v", err)
		return res, nil
	}

	root := doc.Root()
	if root == nil {
		res.fail("malformed XML: document has no root element")
		return res, nil
	}
	if err := checkProlog(doc); err != nil {
		res.fail("malformed XML: %v", err)
		return res, nil
	}
	res.Detail["root"] = root.Tag
	res.Detail["encoding"] = declaredEncoding(doc)

	count, scope, matched := countInvoices(root)
	res.RecordCount = count
	if matched != "" {
		res.Detail["matched_tag"] = matched
	}

	if !hasInvoiceFields(scope) {
		res.warn(MsgNoInvoiceStructure)
	}

	return res, nil
}

func checkSyntax(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// checkProlog enforces a single root element with nothing but markup and
// whitespace around it. Neither parser rejects these on its own.
func checkProlog(doc *etree.Document) error {
	elements := 0
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			elements++
			if elements > 1 {
				return fmt.Errorf("multiple root elements (<%s> after <%s>)", t.Tag, doc.Root().Tag)
			}
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return errors.New("text outside the root element")
			}
		}
	}
	return nil
}

// countInvoices applies the container search, then the root heuristic, then
// the direct-children count. It also returns the element under which
// invoice fields are expected.
func countInvoices(root *etree.Element) (int, *etree.Element, string) {
	for _, tag := range invoiceContainerTags {
		if found := findElements(root, tag); len(found) > 0 {
			return len(found), found[0], tag
		}
	}

	lower := strings.ToLower(root.Tag)
	for _, hint := range rootInvoiceHints {
		if strings.Contains(lower, hint) {
			return 1, root, root.Tag
		}
	}

	n := len(root.ChildElements())
	if n == 0 {
		n = 1
	}
	return n, root, ""
}

// findElements returns el and its descendants whose local name matches tag.
func findElements(el *etree.Element, tag string) []*etree.Element {
	var found []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		if strings.EqualFold(e.Tag, tag) {
			found = append(found, e)
		}
		for _, child := range e.ChildElements() {
			walk(child)
		}
	}
	walk(el)
	return found
}

func hasInvoiceFields(scope *etree.Element) bool {
	for _, child := range scope.ChildElements() {
		for _, tag := range invoiceFieldTags {
			if len(findElements(child, tag)) > 0 {
				return true
			}
		}
	}
	return false
}

func declaredEncoding(doc *etree.Document) string {
	for _, tok := range doc.Child {
		pi, ok := tok.(*etree.ProcInst)
		if !ok || pi.Target != "xml" {
			continue
		}
		if m := declEncoding.FindStringSubmatch(pi.Inst); m != nil {
			return strings.ToLower(m[1])
		}
	}
	return EncodingUTF8
}

// charsetReader decodes documents that declare a non UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
