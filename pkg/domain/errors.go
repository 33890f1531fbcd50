package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable is returned when the row source could not be read.
	// No stale rows are served in its place.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrSchema is returned when a raw row cannot be normalized into a Record.
	// A single bad row fails the whole panel build.
	ErrSchema = errors.New("schema error")
	// ErrEmptyInput is returned when a forecast is requested for zero series.
	ErrEmptyInput = errors.New("select at least one product")
	// ErrInvalidHorizon is returned for a horizon outside the supported range.
	ErrInvalidHorizon = errors.New("invalid horizon")
)

// SchemaError describes the first row that failed normalization.
type SchemaError struct {
	Row    int
	Column string
	Value  any
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("schema error: row %d: column %q: %s", e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("schema error: row %d: column %q: %s (value %v)", e.Row, e.Column, e.Reason, e.Value)
}

// Is reports SchemaError as ErrSchema for errors.Is.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
