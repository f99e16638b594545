package dynarray

import "errors"

// Errors reported by Array operations. Match them with errors.Is.
var (
	// ErrInvalidArgument is returned when an array is created with a nonpositive capacity.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIndexOutOfRange is returned by Read and Insert for an index outside the valid range.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotFound is returned by Remove when no element matches.
	ErrNotFound = errors.New("element not found")

	// ErrAllocationFailure is the panic value used when the backing buffer cannot grow.
	// It is never returned.
	ErrAllocationFailure = errors.New("allocation failure")
)
