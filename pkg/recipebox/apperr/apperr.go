// Package apperr holds the error kinds shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record is absent or belongs to another user.
// The two cases are deliberately indistinguishable to callers.
var ErrNotFound = errors.New("not found")

// ValidationError represents a caller mistake: a missing or malformed field,
// a uniqueness clash or an undecodable upload. No state is changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Validation returns a ValidationError for field.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Validationf is Validation with formatting.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
