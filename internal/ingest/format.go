package ingest

import (
	"errors"
	"path/filepath"
	"strings"
)

// Format is the structural family of an uploaded file.
type Format int

const (
	FormatUnknown Format = iota
	FormatXML
	FormatCSVExcel
	FormatTextDelimited
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "XML"
	case FormatCSVExcel:
		return "CSV_EXCEL"
	case FormatTextDelimited:
		return "TEXT_DELIMITED"
	default:
		return "UNKNOWN"
	}
}

// Labels shown to users for each parsed variant.
const (
	LabelXML     = "XML"
	LabelCSV     = "CSV/Excel (CSV)"
	LabelXLSX    = "CSV/Excel (XLSX)"
	LabelXLS     = "CSV/Excel (XLS)"
	LabelText    = "TXT"
	LabelUnknown = "UNKNOWN"
)

// label returns the generic label for a format before a parser refines it.
func (f Format) label() string {
	switch f {
	case FormatXML:
		return LabelXML
	case FormatCSVExcel:
		return LabelCSV
	case FormatTextDelimited:
		return LabelText
	default:
		return LabelUnknown
	}
}

// FormatFromExtension maps a file name to a format by its extension.
func FormatFromExtension(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xml":
		return FormatXML
	case ".csv", ".xlsx", ".xls":
		return FormatCSVExcel
	case ".txt":
		return FormatTextDelimited
	default:
		return FormatUnknown
	}
}

// Hint is the format the uploader declared.
type Hint string

const (
	HintAutoDetect  Hint = "auto_detect"
	HintXML         Hint = "xml"
	HintCSVExcel    Hint = "csv_excel"
	HintPlantilla51 Hint = "plantilla51"
	HintPlainText   Hint = "txt_plano"
)

// ErrUnknownHint is returned by ParseHint for values outside the known set.
var ErrUnknownHint = errors.New("invalid format hint")

// ParseHint validates a declared format. An empty value means auto_detect.
func ParseHint(s string) (Hint, error) {
	h := Hint(strings.ToLower(strings.TrimSpace(s)))
	switch h {
	case "":
		return HintAutoDetect, nil
	case HintAutoDetect, HintXML, HintCSVExcel, HintPlantilla51, HintPlainText:
		return h, nil
	}
	return "", ErrUnknownHint
}

// Format returns the pinned format, or false for auto_detect.
func (h Hint) Format() (Format, bool) {
	switch h {
	case HintXML:
		return FormatXML, true
	case HintCSVExcel, HintPlantilla51:
		return FormatCSVExcel, true
	case HintPlainText:
		return FormatTextDelimited, true
	}
	return FormatUnknown, false
}
