package wire

import (
	"errors"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/types"
)

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusNotFound indicates an unknown resource, attribute or category.
	StatusNotFound Status = 1

	// StatusNotReadable indicates a read of a write-only attribute.
	StatusNotReadable Status = 2

	// StatusNotWritable indicates a write to a read-only attribute.
	StatusNotWritable Status = 3

	// StatusTypeMismatch indicates a value that does not convert to the
	// declared type.
	StatusTypeMismatch Status = 4

	// StatusTimeout indicates the operation timed out.
	StatusTimeout Status = 5

	// StatusConnection indicates the resource could not be reached.
	StatusConnection Status = 6

	// StatusInvalidRequest indicates a malformed request.
	StatusInvalidRequest Status = 7

	// StatusUnsupported indicates a type or operation that is not supported.
	StatusUnsupported Status = 8

	// StatusInternal indicates any other failure.
	StatusInternal Status = 9
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusNotReadable:
		return "NOT_READABLE"
	case StatusNotWritable:
		return "NOT_WRITABLE"
	case StatusTypeMismatch:
		return "TYPE_MISMATCH"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusConnection:
		return "CONNECTION_FAILED"
	case StatusInvalidRequest:
		return "INVALID_REQUEST"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// StatusFromError maps a core error to a status. A nil error is success.
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, model.ErrNotFound):
		return StatusNotFound
	case errors.Is(err, model.ErrNotReadable):
		return StatusNotReadable
	case errors.Is(err, model.ErrNotWritable):
		return StatusNotWritable
	case errors.Is(err, types.ErrUnsupportedType):
		return StatusUnsupported
	case errors.Is(err, types.ErrTypeMismatch):
		return StatusTypeMismatch
	case errors.Is(err, model.ErrTimeout):
		return StatusTimeout
	case errors.Is(err, model.ErrConnection):
		return StatusConnection
	case errors.Is(err, model.ErrInvalidDescriptor), errors.Is(err, types.ErrInvalidType):
		return StatusInvalidRequest
	}
	return StatusInternal
}
