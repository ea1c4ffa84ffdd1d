package core

import (
	"io"
	"time"

	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

// UploadRequest is one file submitted for ingestion.
type UploadRequest struct {
	FileName   string
	ClientID   string
	FormatHint string

	// Size is the declared size in bytes, 0 if unknown.
	Size int64
	Body io.Reader
}

// UploadResult describes the batch an upload produced.
type UploadResult struct {
	BatchID          string            `json:"batchId"`
	FileName         string            `json:"fileName"`
	Client           string            `json:"client"`
	DeclaredFormat   string            `json:"declaredFormat"`
	Format           string            `json:"format"`
	State            domain.BatchState `json:"state"`
	RecordCount      int               `json:"recordCount"`
	FindingCount     int               `json:"findingCount"`
	ExceptionCount   int               `json:"exceptionCount"`
	StructuralErrors []string          `json:"structuralErrors,omitempty"`
	Warnings         []string          `json:"warnings,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// BatchQuery selects a page of batches.
type BatchQuery struct {
	State string
	Page  int
	Limit int
}

// BatchPage is one page of batches, newest first.
type BatchPage struct {
	Batches    []domain.Batch `json:"batches"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

// BatchStats counts batches per state. Every state is present.
type BatchStats struct {
	Total   int                       `json:"total"`
	ByState map[domain.BatchState]int `json:"byState"`
}

// BatchDetail is everything recorded for one batch.
type BatchDetail struct {
	Batch         domain.Batch                    `json:"batch"`
	Logs          []domain.LogEntry               `json:"logs"`
	Errors        []domain.ErrorRecord            `json:"errors"`
	ErrorsByField map[string][]domain.ErrorRecord `json:"errorsByField"`
	CanDownload   bool                            `json:"canDownload"`
}

// ExceptionStats summarizes an exception listing.
type ExceptionStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Retrying int `json:"retrying"`
	Resolved int `json:"resolved"`
}

// ExceptionList is a filtered exception listing with its summary.
type ExceptionList struct {
	Exceptions []domain.Exception `json:"exceptions"`
	Stats      ExceptionStats     `json:"stats"`
}

// ActionInput carries the optional data sent with an exception action.
type ActionInput struct {
	Notes      *string           `json:"notes"`
	Correction map[string]string `json:"correction"`
}

// ActionResult reports the transition an action applied.
type ActionResult struct {
	ExceptionID   string                 `json:"exceptionId"`
	Action        Action                 `json:"action"`
	PreviousState domain.ManagementState `json:"previousState"`
	NewState      domain.ManagementState `json:"newState"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}
