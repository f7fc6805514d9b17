package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Validation errors
	ErrInvalidInput = errors.New("invalid input")

	// Numerical failures raised while fitting a record
	ErrModelFit          = errors.New("model fit failed")
	ErrNotConverged      = fmt.Errorf("%w: did not converge", ErrModelFit)
	ErrSingularHessian   = fmt.Errorf("%w: singular information matrix", ErrModelFit)
	ErrConstantCovariate = fmt.Errorf("%w: covariate is constant across subjects", ErrModelFit)
	ErrNonFinite         = fmt.Errorf("%w: non-finite value", ErrModelFit)
)

// InvalidInputError names the first offending field of a malformed request.
// Field uses path notation, e.g. "events[3]" or "values_by_record[2]".
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// ModelFitError describes why a single record could not be fitted.
type ModelFitError struct {
	Mode   error // one of ErrNotConverged, ErrSingularHessian, ErrConstantCovariate, ErrNonFinite
	Detail string
	Record int // index into values_by_record, -1 when not yet attached
}

func (e *ModelFitError) Error() string {
	msg := e.Mode.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Record >= 0 {
		msg = fmt.Sprintf("record %d: %s", e.Record, msg)
	}
	return msg
}

func (e *ModelFitError) Unwrap() error { return e.Mode }

// WithRecord returns a copy of the error attached to record index i
func (e *ModelFitError) WithRecord(i int) *ModelFitError {
	cp := *e
	cp.Record = i
	return &cp
}

// Error constructors with context
func NewInvalidInputError(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

func NewInvalidInputErrorf(field, format string, args ...interface{}) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func NewModelFitError(mode error, format string, args ...interface{}) *ModelFitError {
	return &ModelFitError{Mode: mode, Detail: fmt.Sprintf(format, args...), Record: -1}
}

// Error checking helpers
func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsModelFitError(err error) bool {
	return errors.Is(err, ErrModelFit)
}
