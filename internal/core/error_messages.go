package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Users quote the code; support staff look it up here.
//
// # Database (DB001-DB099)
//
//	DB001 - Duplicate record          "duplicate key", "already exists"
//	DB002 - Unique value taken        "unique constraint", "violates unique"
//	DB003 - Missing reference         "foreign key"
//	DB004 - Database unreachable      "connection refused"
//	DB005 - Connection interrupted    "connection reset"
//	DB006 - Database busy             "deadlock"
//
// # Validation (VAL001-VAL099)
//
//	VAL001 - Invalid request          *ValidationError (message passed through)
//	VAL002 - Missing required fields  "missing required fields"
//	VAL003 - Unknown column           "not in file"
//	VAL004 - Unknown entity type      "unknown entity type"
//	VAL005 - Malformed JSON           "invalid character", "cannot unmarshal"
//
// # File (FILE001-FILE099)
//
//	FILE001 - File too large          "request body too large", "file too large"
//	FILE002 - Invalid CSV             "parse error", "invalid csv"
//	FILE003 - No file                 "no file provided"
//	FILE004 - Empty file              "empty file"
//
// # Import (IMP001-IMP099)
//
//	IMP001 - System busy              ErrTooManyImports
//	IMP002 - Import timed out         "context deadline exceeded"
//	IMP003 - Request cancelled        "context canceled"
//
// # Saved views (VIEW001-VIEW099)
//
//	VIEW001 - Not found               ErrNotFound
//
// # Authorization (AUTH001-AUTH099)
//
//	AUTH001 - Permission denied       ErrForbidden
//	AUTH002 - Not signed in           "unauthorized", "token"
//
// # Rate limiting (RATE001)
//
//	RATE001 - Too many requests       "rate limit"
//
// # Fallback (ERR000)
//
// When a user reports ERR000, check the logs for the request id.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern maps a lowercase substring of a technical error to a message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// sentinelMessages are checked with errors.Is before any pattern matching.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrTooManyImports, UserMessage{"The system is busy processing other imports", "Please wait a moment and try again", "IMP001"}},
	{ErrForbidden, UserMessage{"You do not have permission to do that", "Ask the owner or an administrator", "AUTH001"}},
	{ErrNotFound, UserMessage{"The requested record was not found", "It may have been deleted. Refresh and try again", "VIEW001"}},
	{ErrDuplicate, UserMessage{"A matching record already exists", "Search for the existing record instead of creating a new one", "DB001"}},
}

// errorPatterns are matched case-insensitively; first match wins, so
// specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// Validation
	{"missing required fields", UserMessage{"Required fields are not mapped to a column", "Map every required field before importing", "VAL002"}},
	{"not in file", UserMessage{"The mapping refers to a column that is not in the file", "Check the column names in your mapping", "VAL003"}},
	{"unknown entity type", UserMessage{"Unknown entity type", "Use people, companies, or schools", "VAL004"}},
	{"invalid character", UserMessage{"The request contains malformed JSON", "Check the mapping or filters you sent", "VAL005"}},
	{"cannot unmarshal", UserMessage{"The request contains malformed JSON", "Check the mapping or filters you sent", "VAL005"}},

	// Database
	{"duplicate key", UserMessage{"A matching record already exists", "Review your data for duplicates", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Choose a different name", "DB002"}},
	{"violates unique", UserMessage{"This value must be unique but already exists", "Choose a different name", "DB002"}},
	{"foreign key", UserMessage{"A referenced record does not exist", "Refresh and try again", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB006"}},

	// File
	{"request body too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{"parse error", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated with a header row", "FILE002"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated with a header row", "FILE002"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to import", "FILE003"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Please upload a CSV file with a header row", "FILE004"}},

	// Import
	{"context deadline exceeded", UserMessage{"The import timed out", "Try a smaller file or try again later", "IMP002"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP003"}},

	// Auth and rate limiting
	{"unauthorized", UserMessage{"You are not signed in", "Sign in and try again", "AUTH002"}},
	{"token", UserMessage{"Your session is invalid or expired", "Sign in and try again", "AUTH002"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is the ERR000 fallback.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Validation errors keep their own message since it already names the
// offending fields. Sentinels are matched with errors.Is, everything else
// by substring.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	var ve *ValidationError
	if errors.As(err, &ve) {
		for _, ep := range errorPatterns {
			if strings.HasPrefix(ep.msg.Code, "VAL") && strings.Contains(errStr, ep.pattern) {
				return UserMessage{Message: ve.Message, Action: ep.msg.Action, Code: ep.msg.Code}
			}
		}
		return UserMessage{Message: ve.Message, Action: "Correct the request and try again", Code: "VAL001"}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
// crmctl prints errors this way.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
