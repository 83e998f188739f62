// Package apperror defines the error taxonomy shared by the pipeline, the
// service layer and the HTTP handlers.
//
// Every constructor returns an *AppError that wraps one of the sentinel
// errors below, so callers branch with errors.Is and read the human-readable
// text from Message.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")

	// Data-quality faults raised by the cleaner and integrator.
	ErrSchema             = errors.New("schema error")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrMalformedValue     = errors.New("malformed value")
	ErrEmptyPostSet       = errors.New("empty post set")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field or column causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// SchemaError reports a required column that is absent from a raw table.
func SchemaError(table, column string) *AppError {
	return &AppError{
		Err:     ErrSchema,
		Message: fmt.Sprintf("%s table is missing required column %q", table, column),
		Field:   column,
	}
}

// MalformedTimestamp reports an epoch cell that is missing, non-numeric or
// outside the accepted range. row is the 0-based data row index.
func MalformedTimestamp(table, column string, row int, value string) *AppError {
	return &AppError{
		Err:     ErrMalformedTimestamp,
		Message: fmt.Sprintf("%s table row %d: column %q has malformed epoch value %q", table, row, column, value),
		Field:   column,
	}
}

// MalformedValue reports a non-timestamp cell that cannot be parsed into
// the type its column requires (user ids, ages).
func MalformedValue(table, column string, row int, value string) *AppError {
	return &AppError{
		Err:     ErrMalformedValue,
		Message: fmt.Sprintf("%s table row %d: column %q has malformed value %q", table, row, column, value),
		Field:   column,
	}
}

// EmptyPostSet is returned when reactions must be attributed to posts but
// no post survived cleaning.
func EmptyPostSet() *AppError {
	return &AppError{
		Err:     ErrEmptyPostSet,
		Message: "cannot attribute reactions: the cleaned post table is empty",
	}
}
