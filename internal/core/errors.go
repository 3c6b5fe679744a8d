package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a saved view, entity, or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the requester may not perform a mutation.
	ErrForbidden = errors.New("permission denied")

	// ErrDuplicate is returned when a natural key or unique name already exists.
	ErrDuplicate = errors.New("already exists")
)

// ValidationError is a request that was rejected before any processing.
// Fields lists the offending field names when there are any.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
