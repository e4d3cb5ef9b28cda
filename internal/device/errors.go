package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrPropertyNotFound) {
//	    // handle not found case
//	}
var (
	// ErrPropertyNotFound is returned when a code or alias names no property.
	ErrPropertyNotFound = errors.New("device: property not found")

	// ErrNotReadable is returned by Get on a property without the read capability.
	ErrNotReadable = errors.New("device: property not readable")

	// ErrNotWritable is returned by Set on a property without the write capability.
	ErrNotWritable = errors.New("device: property not writable")

	// ErrNotObservable is returned by Observe on a property without the observe capability.
	ErrNotObservable = errors.New("device: property not observable")

	// ErrInvalidValue is returned when a value does not satisfy the write schema.
	ErrInvalidValue = errors.New("device: invalid value")

	// ErrMalformedValue is returned when bytes do not hold exactly one JSON value.
	ErrMalformedValue = errors.New("device: malformed value")

	// ErrTransport wraps any failure reported by the underlying transport.
	ErrTransport = errors.New("device: transport failure")

	// ErrInvalidSpec is returned by New when the property table is inconsistent.
	ErrInvalidSpec = errors.New("device: invalid property spec")
)
