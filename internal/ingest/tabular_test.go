package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const invoiceCSVHeader = "NOMBRE USUARIO,NIT USUARIO,FACT NRO,FECHA,PRODUCTO,CANTIDAD,VALOR UNITARIO,TOTAL"

func invoiceCSV(rows int) string {
	var b strings.Builder
	b.WriteString(invoiceCSVHeader + "\n")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&b, "Cliente %d,9001%05d,F-%04d,2024-01-15,ARROZ,%d,1500,%d\n", i, i, i, i, i*1500)
	}
	return b.String()
}

func hasError(res Result, msg string) bool {
	for _, e := range res.StructuralErrors {
		if strings.Contains(e, msg) {
			return true
		}
	}
	return false
}

func TestParseCSV_InvoiceRows(t *testing.T) {
	path := writeFile(t, "lote.csv", []byte(invoiceCSV(100)))

	res := Parse(path, "lote.csv", FormatCSVExcel)
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.StructuralErrors)
	}
	if res.RecordCount != 100 {
		t.Errorf("RecordCount = %d, want 100", res.RecordCount)
	}
	if res.FormatLabel != LabelCSV {
		t.Errorf("FormatLabel = %q, want %q", res.FormatLabel, LabelCSV)
	}
	if got := res.Detail["header_matches"]; got != true {
		t.Errorf("header_matches = %v, want true", got)
	}
	if got := res.Detail["delimiter"]; got != "," {
		t.Errorf("delimiter = %v, want %q", got, ",")
	}
	if got := res.Detail["columns"]; got != 8 {
		t.Errorf("columns = %v, want 8", got)
	}
}

func TestParseCSV_Boundaries(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantCount  int
		wantErrors []string
	}{
		{
			name:       "header without rows",
			content:    invoiceCSVHeader + "\n",
			wantCount:  0,
			wantErrors: []string{MsgNoDataRows},
		},
		{
			name:       "zero bytes",
			content:    "",
			wantCount:  0,
			wantErrors: []string{MsgNoDataRows, MsgNoColumns},
		},
		{
			name:       "blank header cells",
			content:    ",,\n1,2,3\n",
			wantCount:  1,
			wantErrors: []string{MsgNoColumns},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "lote.csv", []byte(tt.content))
			res := Parse(path, "lote.csv", FormatCSVExcel)

			if res.Success {
				t.Fatal("Success = true, want false")
			}
			if res.RecordCount != tt.wantCount {
				t.Errorf("RecordCount = %d, want %d", res.RecordCount, tt.wantCount)
			}
			if len(res.StructuralErrors) != len(tt.wantErrors) {
				t.Fatalf("StructuralErrors = %v, want %v", res.StructuralErrors, tt.wantErrors)
			}
			for _, want := range tt.wantErrors {
				if !hasError(res, want) {
					t.Errorf("StructuralErrors = %v, missing %q", res.StructuralErrors, want)
				}
			}
		})
	}
}

func TestParseCSV_SemicolonAndEmptyRows(t *testing.T) {
	content := "FACT NRO;FECHA;TOTAL\nF1;2024-01-01;100\n;;\nF2;2024-01-02;200\n"
	path := writeFile(t, "lote.csv", []byte(content))

	res := Parse(path, "lote.csv", FormatCSVExcel)
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.StructuralErrors)
	}
	if res.RecordCount != 3 {
		t.Errorf("RecordCount = %d, want 3", res.RecordCount)
	}
	if got := res.Detail["delimiter"]; got != ";" {
		t.Errorf("delimiter = %v, want %q", got, ";")
	}
	if got := res.Detail["empty_rows"]; got != 1 {
		t.Errorf("empty_rows = %v, want 1", got)
	}
}

func TestParseCSV_UnexpectedHeadersAreAdvisory(t *testing.T) {
	content := "codigo,descripcion\n1,uno\n2,dos\n"
	path := writeFile(t, "otros.csv", []byte(content))

	res := Parse(path, "otros.csv", FormatCSVExcel)
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.StructuralErrors)
	}
	if got := res.Detail["header_matches"]; got != false {
		t.Errorf("header_matches = %v, want false", got)
	}
}

func TestParseCSV_Latin1(t *testing.T) {
	content := []byte("NOMBRE USUARIO,CIUDAD\nJos\xe9,Bogot\xe1\n")
	path := writeFile(t, "lote.csv", content)

	res := Parse(path, "lote.csv", FormatCSVExcel)
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.StructuralErrors)
	}
	if got := res.Detail["encoding"]; got != EncodingLatin1 {
		t.Errorf("encoding = %v, want %q", got, EncodingLatin1)
	}
}

func TestParseWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lote.xlsx")

	f := excelize.NewFile()
	header := []any{"NOMBRE USUARIO (CLIENTE DEL CLIENTE)", "FACT NRO", "FECHA", "TOTAL"}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	for i := 2; i <= 6; i++ {
		row := []any{fmt.Sprintf("Cliente %d", i), fmt.Sprintf("F-%d", i), "2024-01-01", i * 100}
		if err := f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i), &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	// Sniffing must pick the workbook even under a misleading name.
	res := Parse(path, "lote.csv", FormatCSVExcel)
	if !res.Success {
		t.Fatalf("Success = false, errors: %v", res.StructuralErrors)
	}
	if res.FormatLabel != LabelXLSX {
		t.Errorf("FormatLabel = %q, want %q", res.FormatLabel, LabelXLSX)
	}
	if res.RecordCount != 5 {
		t.Errorf("RecordCount = %d, want 5", res.RecordCount)
	}
	if got := res.Detail["sheet"]; got != "Sheet1" {
		t.Errorf("sheet = %v, want %q", got, "Sheet1")
	}
	if got := res.Detail["header_matches"]; got != true {
		t.Errorf("header_matches = %v, want true", got)
	}
}

func TestParseWorkbook_Corrupt(t *testing.T) {
	content := append([]byte{0xD0, 0xCF, 0x11, 0xE0}, []byte("not really a workbook")...)
	path := writeFile(t, "lote.xls", content)

	res := Parse(path, "lote.xls", FormatCSVExcel)
	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if res.FormatLabel != LabelXLS {
		t.Errorf("FormatLabel = %q, want %q", res.FormatLabel, LabelXLS)
	}
	if !hasError(res, "error reading spreadsheet") {
		t.Errorf("StructuralErrors = %v, want spreadsheet read error", res.StructuralErrors)
	}
}
