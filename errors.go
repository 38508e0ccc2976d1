package rhi

import (
	"errors"

	"github.com/gogpu/rhi/driver"
)

// Common render system errors.
var (
	// ErrValidation is returned when a descriptor fails validation before
	// it reaches the backend.
	ErrValidation = errors.New("rhi: descriptor validation failed")

	// ErrNotRegistered is returned when a resource is released that the
	// system does not own, including a second release of the same resource.
	ErrNotRegistered = errors.New("rhi: resource not registered")

	// ErrInvalidState is returned when a command buffer operation is not
	// legal in its current state.
	ErrInvalidState = errors.New("rhi: invalid command buffer state")

	// ErrNoPipelineBound is returned when an immediate command buffer
	// records a draw or dispatch with no pipeline bound.
	ErrNoPipelineBound = errors.New("rhi: no pipeline bound")

	// ErrIncompleteState is returned when a deferred recording submitted
	// to the queue turns out to depend on state it never bound.
	ErrIncompleteState = errors.New("rhi: command buffer recording incomplete")

	// ErrClosed is returned when the system is used after Close.
	ErrClosed = errors.New("rhi: render system closed")
)

// Backend error classes, re-exported so callers can branch on creation
// failures without importing the driver package.
var (
	// ErrExceededCapacity reports a descriptor exceeding a device limit.
	ErrExceededCapacity = driver.ErrExceededCapacity

	// ErrUnsupportedFeature reports a descriptor requiring a feature the
	// device lacks.
	ErrUnsupportedFeature = driver.ErrUnsupportedFeature

	// ErrInvalidCombination reports mutually exclusive descriptor fields.
	ErrInvalidCombination = driver.ErrInvalidCombination

	// ErrDeviceFailure reports a native device error.
	ErrDeviceFailure = driver.ErrDeviceFailure

	// ErrNotAvailable reports that no adapter could be selected.
	ErrNotAvailable = driver.ErrNotAvailable
)
