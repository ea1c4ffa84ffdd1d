// Package domain holds the records the ingestion pipeline produces and the
// stores persist: batches, their log lines, findings and DIAN exceptions.
package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// BatchState is the lifecycle state of a batch.
type BatchState string

const (
	StateReceived              BatchState = "Received"
	StateProcessing            BatchState = "Processing"
	StateCompleted             BatchState = "Completed"
	StateCompletedWithWarnings BatchState = "CompletedWithWarnings"
	StateError                 BatchState = "Error"
)

// Terminal reports whether no further transition is expected.
func (s BatchState) Terminal() bool {
	switch s {
	case StateCompleted, StateCompletedWithWarnings, StateError:
		return true
	}
	return false
}

// Valid reports whether s is one of the known states.
// BatchStates lists every batch state in lifecycle order.
var BatchStates = []BatchState{
	StateReceived, StateProcessing, StateCompleted, StateCompletedWithWarnings, StateError,
}

func (s BatchState) Valid() bool {
	switch s {
	case StateReceived, StateProcessing, StateCompleted, StateCompletedWithWarnings, StateError:
		return true
	}
	return false
}

// Batch is one uploaded file's processing unit.
type Batch struct {
	ID             string     `json:"id"`
	FileName       string     `json:"fileName"`
	ClientID       string     `json:"clientId"`
	Client         string     `json:"client"`
	DeclaredFormat string     `json:"declaredFormat"`
	DetectedFormat string     `json:"detectedFormat"`
	State          BatchState `json:"state"`
	RecordCount    int        `json:"recordCount"`
	FindingCount   int        `json:"findingCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Downloadable reports whether a template may be generated for the batch.
func (b Batch) Downloadable() bool {
	return b.State == StateCompleted || b.State == StateCompletedWithWarnings
}

// BatchUpdate lists the batch fields to change. Nil fields are left as is.
type BatchUpdate struct {
	State          *BatchState
	DetectedFormat *string
	RecordCount    *int
	FindingCount   *int
}

// BatchFilter selects a page of batches, newest first.
type BatchFilter struct {
	State  BatchState
	Offset int
	Limit  int
}

// LogLevel is the severity of a batch log line.
type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

// LogEntry is one line of a batch's processing log.
type LogEntry struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batchId"`
	Message   string    `json:"message"`
	Level     LogLevel  `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
}
