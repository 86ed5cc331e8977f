package utils

import (
	"errors"
	"fmt"
)

// Error taxonomy for the scoring pipeline. An empty window and schema drift
// are recoverable; only insufficient training data may fail a request.
var (
	// ErrNoData signals an empty event window; callers render an empty state.
	ErrNoData = errors.New("no review data in requested window")

	// ErrInsufficientData refuses training on fewer than two feature rows.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrSchemaMismatch marks a feature row that could not fully satisfy a
	// model set's recorded schema. Inference still proceeds on the 0-filled
	// projection; the condition is surfaced as a data-quality signal.
	ErrSchemaMismatch = errors.New("feature schema mismatch")
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}
