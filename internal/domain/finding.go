package domain

import "time"

// Severity grades a finding.
type Severity string

const (
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// FieldFile is the field tag used for findings about the file as a whole.
const FieldFile = "ARCHIVO"

// Finding is a single detected issue in a batch. Row 0 refers to the file.
type Finding struct {
	Row               int
	Field             string
	Message           string
	Severity          Severity
	RequiresException bool

	// Exception is set when RequiresException is true.
	Exception *ExceptionDraft
}

// ErrorRecord is a persisted finding.
type ErrorRecord struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batchId"`
	Row       int       `json:"row"`
	Field     string    `json:"field"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"createdAt"`
}
