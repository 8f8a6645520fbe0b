package model

import "errors"

// Binding and access errors.
var (
	// ErrConnection is returned when a resource rejects a binding.
	ErrConnection = errors.New("connection failed")

	// ErrTimeout is returned when a read or write exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrNotFound is returned for unknown resources, attributes or categories.
	ErrNotFound = errors.New("not found")

	// ErrNotWritable is returned when writing a read-only attribute.
	ErrNotWritable = errors.New("attribute is not writable")

	// ErrNotReadable is returned when reading a write-only attribute.
	ErrNotReadable = errors.New("attribute is not readable")

	// ErrListenerFailure wraps errors and panics raised by listeners.
	ErrListenerFailure = errors.New("listener failure")

	// ErrDiscovery is returned when a discovery provider fails.
	ErrDiscovery = errors.New("discovery failed")

	// ErrInvalidDescriptor is returned for descriptors missing required fields.
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// ErrClosed is returned by components after Close.
	ErrClosed = errors.New("closed")
)
