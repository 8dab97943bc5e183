package energy

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a modeling error for reporting.
type ErrorClass string

const (
	// ErrorClassValidation indicates invalid input: a malformed
	// simulation record, a bad grouping result, an empty region name.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassGrouping indicates a grouping rule failure. These are
	// raised when the deferred group mapping is forced, not when the
	// entity is added.
	ErrorClassGrouping ErrorClass = "grouping"

	// ErrorClassSolver indicates a failure in the solver backend.
	ErrorClassSolver ErrorClass = "solver"
)

// Error is a classified error with entity and operation context.
type Error struct {
	// Class is the error classification.
	Class ErrorClass

	// Message is the human-readable error message.
	Message string

	// Entity is the uid of the entity involved, if any.
	Entity string

	// Operation is the operation being performed when the error occurred.
	Operation string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Entity != "" {
		msg += fmt.Sprintf(" (entity=%s)", e.Entity)
	}
	if e.Operation != "" {
		msg += fmt.Sprintf(" (operation=%s)", e.Operation)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, err error) *Error {
	return &Error{Class: ErrorClassValidation, Message: message, Err: err}
}

// NewGroupingError creates a new grouping error.
func NewGroupingError(message string, err error) *Error {
	return &Error{Class: ErrorClassGrouping, Message: message, Err: err}
}

// NewSolverError creates a new solver error.
func NewSolverError(message string, err error) *Error {
	return &Error{Class: ErrorClassSolver, Message: message, Err: err}
}

// WithEntity adds entity context to an error.
func (e *Error) WithEntity(uid string) *Error {
	e.Entity = uid
	return e
}

// WithOperation adds operation context to an error.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// IsGroupingError returns true if the error is classified as a grouping
// failure.
func IsGroupingError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassGrouping
	}
	return false
}

// IsValidationError returns true if the error is classified as a
// validation failure.
func IsValidationError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassValidation
	}
	return false
}
