package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that an optimistic-lock precondition failed: the record
// was modified after the caller last read it.
var ErrConflict = errors.New("update conflict")

// ErrForbidden indicates that the caller lacks permission for the operation.
var ErrForbidden = errors.New("permission denied")

// ErrPolicyViolation indicates a disallowed table, column, or identifier in a
// dynamically built query. This is a programming error in the calling code,
// never bad user input, and must not be converted into a soft failure.
var ErrPolicyViolation = errors.New("query policy violation")

// ValidationError reports a single field that failed a constraint.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a field-attributed validation error.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrors aggregates every failed field from one form submission so a
// single round trip can surface all problems at once.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationErrors) Unwrap() error { return ErrValidation }

// FieldMap returns the failures keyed by field name, for UI display.
func (e *ValidationErrors) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if _, seen := m[fe.Field]; !seen {
			m[fe.Field] = fe.Message
		}
	}
	return m
}
