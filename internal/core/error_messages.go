package core

// # Error Codes Reference
//
// Errors returned by the Service are mapped to user-facing messages with a
// code that operators can quote when reporting a problem.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum size limit (50MB)
//	          Patterns: "file too large", "request body too large"
//	FILE002 - No file: No file was provided
//	          Patterns: "no file provided"
//	FILE003 - Encoding: File text could not be decoded
//	          Patterns: "could not decode"
//	FILE004 - Empty file: The uploaded file is empty
//	          Patterns: "file is empty"
//
// # Format Errors (FMT001-FMT099)
//
//	FMT001 - Invalid hint: Format must be auto_detect, xml, csv_excel,
//	         plantilla51 or txt_plano
//	         Patterns: "invalid format hint"
//	FMT002 - Unknown format: File format was not recognized
//	         Patterns: "format not recognized"
//
// # Batch Errors (BAT001-BAT099)
//
//	BAT001 - Not found: Patterns: "batch not found"
//	BAT002 - Not downloadable: Patterns: "batch not downloadable"
//	BAT003 - Invalid state filter: Patterns: "invalid batch state"
//
// # Exception Errors (EXC001-EXC099)
//
//	EXC001 - Not found: Patterns: "exception not found"
//	EXC002 - Invalid action: Patterns: "invalid exception action"
//	EXC003 - Already resolved: Patterns: "exception already resolved"
//	EXC004 - Invalid filter: Patterns: "invalid exception filter"
//	EXC005 - Invalid body: Patterns: "invalid action body"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy: Patterns: "too many concurrent uploads"
//	UPL002 - Request cancelled: Patterns: "context canceled"
//	UPL003 - Request timeout: Patterns: "context deadline exceeded"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: Patterns: "duplicate key", "unique constraint"
//	DB002 - Foreign key: Patterns: "foreign key"
//	DB003 - Connection refused: Patterns: "connection refused"
//	DB004 - Connection reset: Patterns: "connection reset"
//	DB005 - Database busy: Patterns: "database is locked", "deadlock"
//	DB006 - Timeout: Patterns: "timeout"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the application log for the
// technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit (50MB)",
			Action:  "Split the invoices into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit (50MB)",
			Action:  "Split the invoices into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Attach the invoice file in the \"file\" field",
			Code:    "FILE002",
		},
	},
	{
		pattern: "could not decode",
		msg: UserMessage{
			Message: "File text could not be decoded",
			Action:  "Save the file as UTF-8 or Latin-1",
			Code:    "FILE003",
		},
	},
	{
		pattern: "file is empty",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with invoice records",
			Code:    "FILE004",
		},
	},

	// Format errors
	{
		pattern: "invalid format hint",
		msg: UserMessage{
			Message: "Unknown file format option",
			Action:  "Use auto_detect, xml, csv_excel, plantilla51 or txt_plano",
			Code:    "FMT001",
		},
	},
	{
		pattern: "format not recognized",
		msg: UserMessage{
			Message: "File format was not recognized",
			Action:  "Upload an XML, CSV, Excel or delimited text file",
			Code:    "FMT002",
		},
	},

	// Batch errors
	{
		pattern: "batch not found",
		msg: UserMessage{
			Message: "Batch not found",
			Action:  "Check the batch id",
			Code:    "BAT001",
		},
	},
	{
		pattern: "batch not downloadable",
		msg: UserMessage{
			Message: "Batch is not ready for download",
			Action:  "Only completed batches can be downloaded",
			Code:    "BAT002",
		},
	},
	{
		pattern: "invalid batch state",
		msg: UserMessage{
			Message: "Unknown batch state",
			Action:  "Use Received, Processing, Completed, CompletedWithWarnings or Error",
			Code:    "BAT003",
		},
	},

	// Exception errors
	{
		pattern: "exception not found",
		msg: UserMessage{
			Message: "Exception not found",
			Action:  "Check the exception id",
			Code:    "EXC001",
		},
	},
	{
		pattern: "invalid exception action",
		msg: UserMessage{
			Message: "Unknown exception action",
			Action:  "Use correct, create, ignore or retry",
			Code:    "EXC002",
		},
	},
	{
		pattern: "exception already resolved",
		msg: UserMessage{
			Message: "Exception is already resolved",
			Action:  "Refresh the exception list",
			Code:    "EXC003",
		},
	},
	{
		pattern: "invalid exception filter",
		msg: UserMessage{
			Message: "Unknown exception filter value",
			Action:  "Use Not_Found or Inconsistent for validation_state and Pending, Corrected, In_Manual_Creation, Ignored or Retrying for management_state",
			Code:    "EXC004",
		},
	},
	{
		pattern: "invalid action body",
		msg: UserMessage{
			Message: "Action body is not valid JSON",
			Action:  "Send {\"notes\": \"...\", \"correction\": {...}} or an empty body",
			Code:    "EXC005",
		},
	},

	// Upload errors
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL003",
		},
	},

	// Database errors
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Check that the batch still exists",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "DB006",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first matching pattern, or the ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
