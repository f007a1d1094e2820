package ficha

import (
	"errors"
	"fmt"
)

// ValidationError reports bad caller input. It is always raised before any
// subprocess or storage side effect.
type ValidationError struct {
	// Field names the offending input (e.g. "hectareas").
	Field string

	// Message is a human-readable description.
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid input: " + e.Message
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a lookup by identifier with no match.
type NotFoundError struct {
	// Kind is the record kind: "ficha", "cultivo" or "categoria".
	Kind string

	// ID is the identifier that was looked up, formatted as text.
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// SerializationError reports a payload that could not be encoded for storage
// or a stored payload that could not be decoded.
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// CalculationFault reports that the calculation engine ran but did not
// produce a result. Message, Type and Trace are passed through verbatim from
// the engine when it reported the failure itself.
type CalculationFault struct {
	// Engine is the engine key that was invoked.
	Engine string

	// RunID correlates the fault with invoker log entries.
	RunID string

	// Message is the engine's error text, or a description of what went wrong.
	Message string

	// Type is the engine-side error type (e.g. "ValueError"), if reported.
	Type string

	// Trace is the engine-side diagnostic trace, if reported.
	Trace string

	// ExitCode is the process exit status.
	ExitCode int

	// Stdout and Stderr hold captured output when the engine failed
	// without a structured fault. Empty otherwise.
	Stdout string
	Stderr string
}

func (e *CalculationFault) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("calculation %s failed: %s: %s", e.Engine, e.Type, e.Message)
	}
	return fmt.Sprintf("calculation %s failed: %s", e.Engine, e.Message)
}

// UnavailableKind distinguishes why an engine could not run at all.
type UnavailableKind string

const (
	// UnavailableNotFound means no usable interpreter was located.
	UnavailableNotFound UnavailableKind = "not_found"

	// UnavailableStartFailed means the process could not be started.
	UnavailableStartFailed UnavailableKind = "start_failed"

	// UnavailableTimeout means the run exceeded its time budget.
	UnavailableTimeout UnavailableKind = "timeout"

	// UnavailableCanceled means the caller canceled the run.
	UnavailableCanceled UnavailableKind = "canceled"
)

// EngineUnavailableError reports an infrastructure problem: the engine never
// produced an answer, as opposed to CalculationFault where it reported one.
type EngineUnavailableError struct {
	Kind   UnavailableKind
	Engine string
	Err    error
}

func (e *EngineUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("calculation engine %s unavailable (%s): %v", e.Engine, e.Kind, e.Err)
	}
	return fmt.Sprintf("calculation engine %s unavailable (%s)", e.Engine, e.Kind)
}

func (e *EngineUnavailableError) Unwrap() error {
	return e.Err
}

// StorageError reports a persistence-layer failure during a live operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsSerialization returns true if err is or wraps a SerializationError.
func IsSerialization(err error) bool {
	var target *SerializationError
	return errors.As(err, &target)
}

// IsCalculationFault returns true if err is or wraps a CalculationFault.
func IsCalculationFault(err error) bool {
	var target *CalculationFault
	return errors.As(err, &target)
}

// IsEngineUnavailable returns true if err is or wraps an EngineUnavailableError.
func IsEngineUnavailable(err error) bool {
	var target *EngineUnavailableError
	return errors.As(err, &target)
}

// IsStorage returns true if err is or wraps a StorageError.
func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}
