package driver

import (
	"errors"
	"fmt"
)

// Structured creation errors. Every adapter failure is classified as one of
// these so the front end sees identical error behavior across backends.
var (
	// ErrExceededCapacity is returned when a descriptor exceeds a backend
	// limit (buffer size, texture extent, sample count).
	ErrExceededCapacity = errors.New("driver: exceeded capacity")

	// ErrUnsupportedFeature is returned when a descriptor requires a device
	// feature the backend does not support.
	ErrUnsupportedFeature = errors.New("driver: unsupported feature")

	// ErrInvalidCombination is returned when descriptor fields are
	// individually valid but mutually exclusive.
	ErrInvalidCombination = errors.New("driver: invalid combination")

	// ErrDeviceFailure is returned when the native device rejects a
	// creation request (out of memory, driver error). Not retried.
	ErrDeviceFailure = errors.New("driver: device failure")

	// ErrNotAvailable is returned when a requested adapter is not
	// registered or cannot initialize on this system.
	ErrNotAvailable = errors.New("driver: adapter not available")

	// ErrNotInitialized is returned when adapter operations are called
	// before Init.
	ErrNotInitialized = errors.New("driver: adapter not initialized")
)

// CreateError describes a failed resource creation with enough structure
// for the caller to branch on the failure class without string matching.
type CreateError struct {
	// Kind is the resource kind that failed to create.
	Kind ResourceKind

	// Cause is one of the sentinel classification errors above.
	Cause error

	// Detail is a human-readable elaboration (limit values, flag names).
	Detail string
}

// Error implements the error interface.
func (e *CreateError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("create %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("create %s: %v: %s", e.Kind, e.Cause, e.Detail)
}

// Unwrap returns the classification sentinel so errors.Is works against
// ErrExceededCapacity, ErrUnsupportedFeature, ErrInvalidCombination, and
// ErrDeviceFailure.
func (e *CreateError) Unwrap() error {
	return e.Cause
}

// NewCreateError builds a CreateError for the given resource kind.
func NewCreateError(kind ResourceKind, cause error, format string, args ...any) *CreateError {
	return &CreateError{
		Kind:   kind,
		Cause:  cause,
		Detail: fmt.Sprintf(format, args...),
	}
}
