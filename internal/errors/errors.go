// Package errors provides the error taxonomy shared by all tierstat packages.
//
// This file provides:
// - Sentinel errors for all error conditions
// - RecordError, which pins a data error to a timestep, tier and object
// - Error category checking functions
// - Process exit codes for the CLI
// - Error wrapping utilities
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Exit codes - returned by the tierstat binary
// ============================================================================

const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitUsage           = 2
	ExitInvalidConfig   = 3
	ExitMalformedRecord = 4
	ExitCohortOverflow  = 5
	ExitCapacity        = 6
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Data integrity errors. Any of these aborts the affected analysis.
	ErrMalformedRecord   = errors.New("malformed record")
	ErrCohortOverflow    = errors.New("cohort overflow")
	ErrCapacityInvariant = errors.New("capacity invariant violation")

	// Validation errors
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidObjectID = errors.New("invalid object id")

	// Lookup errors
	ErrNotFound = errors.New("not found")

	// Output errors
	ErrWriterClosed = errors.New("writer is closed")
)

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// New is a convenience wrapper for errors.New
var New = errors.New

// ============================================================================
// RecordError
// ============================================================================

// RecordError locates a data error inside the telemetry recording.
// Tier is -1 and ObjectID empty when the error is not tied to them.
type RecordError struct {
	Timestep int
	Tier     int
	ObjectID string
	Err      error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	msg := fmt.Sprintf("timestep %d", e.Timestep)
	if e.Tier >= 0 {
		msg += fmt.Sprintf(" tier %d", e.Tier)
	}
	if e.ObjectID != "" {
		msg += fmt.Sprintf(" object %s", e.ObjectID)
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewMalformed creates a malformed-record error with context.
func NewMalformed(timestep, tier int, objectID, reason string) error {
	return &RecordError{
		Timestep: timestep,
		Tier:     tier,
		ObjectID: objectID,
		Err:      fmt.Errorf("%s: %w", reason, ErrMalformedRecord),
	}
}

// NewCapacityViolation creates a capacity invariant error for a tier.
func NewCapacityViolation(timestep, tier int, free, total uint64) error {
	return &RecordError{
		Timestep: timestep,
		Tier:     tier,
		Err:      fmt.Errorf("free blocks %d exceed total blocks %d: %w", free, total, ErrCapacityInvariant),
	}
}

// NewCohortOverflow creates a cohort overflow error.
func NewCohortOverflow(timestep int, cohort string, size, capacity int) error {
	return &RecordError{
		Timestep: timestep,
		Tier:     -1,
		Err:      fmt.Errorf("cohort %s holds %d objects, capacity %d: %w", cohort, size, capacity, ErrCohortOverflow),
	}
}

// NewPopulationOverflow reports objects ranked past the last cohort bound.
func NewPopulationOverflow(timestep, population, bound int) error {
	return &RecordError{
		Timestep: timestep,
		Tier:     -1,
		Err:      fmt.Errorf("%d objects exceed the cohort layout bound %d: %w", population, bound, ErrCohortOverflow),
	}
}

// WithTimestep attaches a timestep to an error raised without one.
// RecordErrors keep their own location and only get the timestep set.
func WithTimestep(err error, timestep int) error {
	if err == nil {
		return nil
	}
	var re *RecordError
	if errors.As(err, &re) {
		cp := *re
		cp.Timestep = timestep
		return &cp
	}
	return &RecordError{Timestep: timestep, Tier: -1, Err: err}
}

// ============================================================================
// Helper functions for error checking
// ============================================================================

// IsDataIntegrity returns true if err signals bad telemetry data.
func IsDataIntegrity(err error) bool {
	return errors.Is(err, ErrMalformedRecord) ||
		errors.Is(err, ErrCohortOverflow) ||
		errors.Is(err, ErrCapacityInvariant)
}

// IsValidation returns true if err is a configuration validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// ExitCode maps an error to the process exit code of the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case Is(err, ErrMalformedRecord), Is(err, ErrInvalidObjectID):
		return ExitMalformedRecord
	case Is(err, ErrCohortOverflow):
		return ExitCohortOverflow
	case Is(err, ErrCapacityInvariant):
		return ExitCapacity
	case IsValidation(err):
		return ExitInvalidConfig
	default:
		return ExitFailure
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns all collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
