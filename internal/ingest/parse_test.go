package ingest

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_SuccessMatchesErrors(t *testing.T) {
	inputs := []struct {
		name    string
		file    string
		content string
		format  Format
	}{
		{"xml ok", "a.xml", ublBatch, FormatXML},
		{"xml malformed", "a.xml", "<a><b></a>", FormatXML},
		{"xml empty", "a.xml", "", FormatXML},
		{"csv ok", "a.csv", invoiceCSV(3), FormatCSVExcel},
		{"csv header only", "a.csv", invoiceCSVHeader, FormatCSVExcel},
		{"csv empty", "a.csv", "", FormatCSVExcel},
		{"text ok", "a.txt", buildTextExport(2, "\t"), FormatTextDelimited},
		{"text empty", "a.txt", "", FormatTextDelimited},
		{"text garbage", "a.txt", "\x00\x01\x02", FormatTextDelimited},
		{"xml parser on csv", "a.csv", invoiceCSV(2), FormatXML},
		{"text parser on xml", "a.xml", ublBatch, FormatTextDelimited},
		{"unknown", "a.bin", "??", FormatUnknown},
	}

	for _, in := range inputs {
		t.Run(in.name, func(t *testing.T) {
			path := writeFile(t, in.file, []byte(in.content))
			res := Parse(path, in.file, in.format)

			if res.Success != (len(res.StructuralErrors) == 0) {
				t.Errorf("Success = %v with StructuralErrors %v", res.Success, res.StructuralErrors)
			}
			if res.RecordCount < 0 {
				t.Errorf("RecordCount = %d, want >= 0", res.RecordCount)
			}
			if res.FormatLabel == "" {
				t.Error("FormatLabel is empty")
			}
		})
	}
}

func TestParse_UnknownFormat(t *testing.T) {
	path := writeFile(t, "a.bin", []byte("??"))
	res := Parse(path, "a.bin", FormatUnknown)

	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if len(res.StructuralErrors) != 1 || res.StructuralErrors[0] != MsgFormatNotRecognized {
		t.Errorf("StructuralErrors = %v, want [%q]", res.StructuralErrors, MsgFormatNotRecognized)
	}
}

func TestParse_MissingFileIsProcessingError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.xml")
	res := Parse(path, "gone.xml", FormatXML)

	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if res.RecordCount != 0 {
		t.Errorf("RecordCount = %d, want 0", res.RecordCount)
	}
	if !strings.HasPrefix(res.StructuralErrors[0], "processing error: ") {
		t.Errorf("StructuralErrors[0] = %q, want processing error prefix", res.StructuralErrors[0])
	}
}

func TestParse_RecoversPanics(t *testing.T) {
	const panicky Format = 99
	Register(panicky, ParserFunc(func(string, string) (Result, error) {
		panic("boom")
	}))
	defer func() {
		registryMu.Lock()
		delete(registry, panicky)
		registryMu.Unlock()
	}()

	res := Parse("ignored", "ignored", panicky)
	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if got := res.StructuralErrors[0]; got != "processing error: boom" {
		t.Errorf("StructuralErrors[0] = %q, want %q", got, "processing error: boom")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Register() should panic on duplicate format")
		}
	}()
	Register(FormatXML, ParserFunc(parseXML))
}

func TestFormats(t *testing.T) {
	got := Formats()
	want := []Format{FormatXML, FormatCSVExcel, FormatTextDelimited}
	if len(got) != len(want) {
		t.Fatalf("Formats() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Formats()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
