package ingest

import (
	"bytes"
	"io"
	"os"
	"strings"
)

// sniffSize is how much of a file the classifier inspects.
const sniffSize = 1024

var (
	zipSignature = []byte("PK\x03\x04")
	oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// Classify inspects the start of the file at path and picks a format.
// Unreadable files are classified by extension alone.
func Classify(path, filename string) Format {
	f, err := os.Open(path)
	if err != nil {
		return FormatFromExtension(filename)
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return FormatFromExtension(filename)
	}
	return ClassifyBytes(buf[:n], filename)
}

// ClassifyBytes applies the sniffing rules to a content prefix.
func ClassifyBytes(prefix []byte, filename string) Format {
	if isSpreadsheet(prefix) {
		return FormatCSVExcel
	}

	content, _, err := DecodeBytes(prefix, DefaultLadder)
	if err == nil {
		if f, ok := sniff(content); ok {
			return f
		}
	}
	return FormatFromExtension(filename)
}

func sniff(content string) (Format, bool) {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	if strings.HasPrefix(trimmed, "<?xml") || strings.Contains(content, "<") {
		return FormatXML, true
	}

	if strings.Contains(content, ",") && strings.ContainsAny(content, "\r\n") && commaInFirstLines(content, 3) {
		return FormatCSVExcel, true
	}

	if strings.Contains(content, "    ") || strings.Contains(content, "\t") {
		return FormatTextDelimited, true
	}

	return FormatUnknown, false
}

func commaInFirstLines(content string, n int) bool {
	for i, line := range splitLines(content) {
		if i >= n {
			break
		}
		if strings.Contains(line, ",") {
			return true
		}
	}
	return false
}

// isSpreadsheet reports whether the prefix starts with an xlsx (zip) or
// legacy xls (OLE2) container signature.
func isSpreadsheet(prefix []byte) bool {
	return bytes.HasPrefix(prefix, zipSignature) || bytes.HasPrefix(prefix, oleSignature)
}

// splitLines normalizes CRLF and CR line endings and splits on newlines.
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}
