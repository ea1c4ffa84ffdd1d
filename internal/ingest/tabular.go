package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

func init() {
	Register(FormatCSVExcel, ParserFunc(parseTabular))
}

// csvDelimiters are the candidates considered for CSV text.
var csvDelimiters = []rune{',', ';', '\t', '|'}

func parseTabular(path, filename string) (Result, error) {
	head, err := readHead(path, len(oleSignature))
	if err != nil {
		return newResult(FormatCSVExcel, LabelCSV), err
	}
	if len(head) == 0 {
		return parseCSV(path)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case bytes.HasPrefix(head, zipSignature) || ext == ".xlsx" || ext == ".xlsm":
		return parseWorkbook(path, LabelXLSX)
	case bytes.HasPrefix(head, oleSignature) || ext == ".xls":
		return parseXLS(path)
	default:
		return parseCSV(path)
	}
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return buf[:read], nil
}

// parseWorkbook reads the first sheet of an Office Open XML workbook.
func parseWorkbook(path, label string) (Result, error) {
	res := newResult(FormatCSVExcel, label)

	f, err := excelize.OpenFile(path)
	if err != nil {
		res.fail("error reading spreadsheet: %v", err)
		return res, nil
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		res.fail(MsgNoDataRows)
		res.fail(MsgNoColumns)
		return res, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		res.fail("error reading sheet %q: %v", sheets[0], err)
		return res, nil
	}
	res.Detail["sheet"] = sheets[0]

	evaluateTable(&res, rows)
	return res, nil
}

func parseCSV(path string) (Result, error) {
	res := newResult(FormatCSVExcel, LabelCSV)

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	content, enc, err := DecodeBytes(data, csvLadder)
	if err != nil {
		res.fail("could not decode file: %v", err)
		return res, nil
	}
	res.Detail["encoding"] = enc

	delim := sniffDelimiter(content)
	res.Detail["delimiter"] = string(delim)

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delim
	reader.FieldsPerRecord = -1 // Allow variable field counts
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		res.fail("malformed CSV: %v", err)
		return res, nil
	}

	evaluateTable(&res, records)
	return res, nil
}

// sniffDelimiter picks the candidate that occurs most often on the first line.
func sniffDelimiter(content string) rune {
	first := content
	if i := strings.IndexAny(content, "\r\n"); i >= 0 {
		first = content[:i]
	}

	best, bestCount := ',', 0
	for _, d := range csvDelimiters {
		if n := strings.Count(first, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// evaluateTable treats the first record as the header and the rest as rows.
func evaluateTable(res *Result, records [][]string) {
	var header []string
	rows := records
	if len(records) > 0 {
		header = records[0]
		rows = records[1:]
	}

	res.RecordCount = len(rows)
	res.Detail["columns"] = len(header)
	res.Detail["header_matches"] = headerMatches(header)
	res.Detail["empty_rows"] = countEmptyRows(rows)

	if len(rows) == 0 {
		res.fail(MsgNoDataRows)
	}
	if isEmptyRow(header) {
		res.fail(MsgNoColumns)
	}
}

// headerMatches reports whether any of the first expected names appears in
// some header cell.
func headerMatches(header []string) bool {
	for _, cell := range header {
		if countContained(cell, StandardColumns[:csvHeaderCheckColumns]) > 0 {
			return true
		}
	}
	return false
}

func countEmptyRows(rows [][]string) int {
	n := 0
	for _, row := range rows {
		if isEmptyRow(row) {
			n++
		}
	}
	return n
}

// isEmptyRow returns true if all cells are empty or whitespace.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
