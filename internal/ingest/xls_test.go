package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func utf16LE(s string) []byte {
	var b []byte
	for _, u := range utf16.Encode([]rune(s)) {
		b = append(b, byte(u), byte(u>>8))
	}
	return b
}

func TestParseXLS(t *testing.T) {
	path := writeFile(t, "lote.xls", readFixture(t, "lote.xls"))

	res := Parse(path, "lote.xls", FormatCSVExcel)
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.StructuralErrors)
	}
	if res.FormatLabel != LabelXLS {
		t.Errorf("FormatLabel = %q, want %q", res.FormatLabel, LabelXLS)
	}
	if res.RecordCount != 3 {
		t.Errorf("RecordCount = %d, want 3", res.RecordCount)
	}
	if got := res.Detail["sheet"]; got != "Facturas" {
		t.Errorf("sheet = %v, want %q", got, "Facturas")
	}
	if got := res.Detail["columns"]; got != 4 {
		t.Errorf("columns = %v, want 4", got)
	}
	if got := res.Detail["header_matches"]; got != true {
		t.Errorf("header_matches = %v, want true", got)
	}
}

func TestParseXLS_SniffedUnderOtherName(t *testing.T) {
	path := writeFile(t, "lote.csv", readFixture(t, "lote.xls"))

	res := Parse(path, "lote.csv", FormatCSVExcel)
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.StructuralErrors)
	}
	if res.FormatLabel != LabelXLS {
		t.Errorf("FormatLabel = %q, want %q", res.FormatLabel, LabelXLS)
	}
}

func TestParseXLS_Broken(t *testing.T) {
	fixture := readFixture(t, "lote.xls")

	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{
			name:    "no workbook stream",
			content: bytes.Replace(fixture, utf16LE("Workbook"), utf16LE("Workbool"), 1),
			want:    "no Workbook stream",
		},
		{
			name:    "truncated stream",
			content: fixture[:len(fixture)-1024],
			want:    "error reading spreadsheet",
		},
		{
			name:    "header only",
			content: fixture[:512],
			want:    "error reading spreadsheet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "lote.xls", tt.content)

			res := Parse(path, "lote.xls", FormatCSVExcel)
			if res.Success {
				t.Fatal("Success = true, want false")
			}
			if res.RecordCount != 0 {
				t.Errorf("RecordCount = %d, want 0", res.RecordCount)
			}
			if !hasError(res, tt.want) {
				t.Errorf("StructuralErrors = %v, want one containing %q", res.StructuralErrors, tt.want)
			}
		})
	}
}
