package domain

import "time"

// ValidationState is the DIAN lookup outcome that raised an exception.
type ValidationState string

const (
	ValidationNotFound     ValidationState = "Not_Found"
	ValidationInconsistent ValidationState = "Inconsistent"
)

// ManagementState tracks manual resolution of an exception.
type ManagementState string

const (
	ManagementPending          ManagementState = "Pending"
	ManagementCorrected        ManagementState = "Corrected"
	ManagementInManualCreation ManagementState = "In_Manual_Creation"
	ManagementIgnored          ManagementState = "Ignored"
	ManagementRetrying         ManagementState = "Retrying"
)

// Valid reports whether s is one of the known states.
func (s ValidationState) Valid() bool {
	return s == ValidationNotFound || s == ValidationInconsistent
}

// Valid reports whether s is one of the known states.
func (s ManagementState) Valid() bool {
	switch s {
	case ManagementPending, ManagementCorrected, ManagementInManualCreation, ManagementIgnored, ManagementRetrying:
		return true
	}
	return false
}

// Resolved reports whether the state closes the exception.
func (s ManagementState) Resolved() bool {
	switch s {
	case ManagementCorrected, ManagementInManualCreation, ManagementIgnored:
		return true
	}
	return false
}

// PartyRole tells which side of the invoice carried the failing NIT.
type PartyRole string

const (
	RoleBuyer  PartyRole = "buyer"
	RoleSeller PartyRole = "seller"
)

// ExceptionDraft is the data a finding carries to create an exception.
type ExceptionDraft struct {
	Document        string
	ReportedName    string
	ValidationState ValidationState
	PartyRole       PartyRole
}

// Exception is a third-party validation failure awaiting manual resolution.
type Exception struct {
	ID              string            `json:"id"`
	BatchID         string            `json:"batchId"`
	Row             int               `json:"row"`
	Document        string            `json:"document"`
	ReportedName    string            `json:"reportedName"`
	ValidationState ValidationState   `json:"validationState"`
	ManagementState ManagementState   `json:"managementState"`
	PartyRole       PartyRole         `json:"partyRole"`
	Notes           string            `json:"notes,omitempty"`
	Correction      map[string]string `json:"correction,omitempty"`
	DetectedAt      time.Time         `json:"detectedAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// ExceptionUpdate lists the exception fields to change.
type ExceptionUpdate struct {
	ManagementState ManagementState
	Notes           *string
	Correction      map[string]string

	// ExpectState makes the update conditional on the current state.
	ExpectState ManagementState
}

// ExceptionFilter narrows an exception listing. Empty fields match all.
type ExceptionFilter struct {
	BatchID         string
	ValidationState ValidationState
	ManagementState ManagementState
}
