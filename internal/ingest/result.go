package ingest

import "fmt"

// Structural error and warning messages shared by the parsers.
const (
	MsgFileEmpty           = "file is empty"
	MsgNoDataRows          = "no data rows"
	MsgNoColumns           = "no columns defined"
	MsgFormatNotRecognized = "format not recognized"
	MsgNoInvoiceStructure  = "no recognizable invoice structure"
)

// Result is the normalized outcome of parsing one file.
type Result struct {
	Success          bool           `json:"success"`
	RecordCount      int            `json:"recordCount"`
	StructuralErrors []string       `json:"structuralErrors"`
	Warnings         []string       `json:"warnings,omitempty"`
	FormatLabel      string         `json:"formatLabel"`
	Format           Format         `json:"-"`
	Detail           map[string]any `json:"detail,omitempty"`
}

func newResult(format Format, label string) Result {
	return Result{
		Format:           format,
		FormatLabel:      label,
		StructuralErrors: []string{},
		Detail:           make(map[string]any),
	}
}

func (r *Result) fail(format string, args ...any) {
	r.StructuralErrors = append(r.StructuralErrors, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// finish derives Success from the structural errors.
func (r Result) finish() Result {
	if r.StructuralErrors == nil {
		r.StructuralErrors = []string{}
	}
	if r.Detail == nil {
		r.Detail = make(map[string]any)
	}
	r.Success = len(r.StructuralErrors) == 0
	return r
}
