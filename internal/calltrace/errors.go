package calltrace

import "errors"

var (
	// ErrInvalidArgument is returned when capture gets something that isn't
	// a live frame, or a slice gets a zero step.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIndexOutOfRange is returned for indices outside of the snapshot
	// once negative indices were normalized.
	ErrIndexOutOfRange = errors.New("calltrace index out of range")
	// ErrEmptySnapshot is returned when a view is requested on a snapshot
	// without frames.
	ErrEmptySnapshot = errors.New("empty snapshot")
	// ErrOutOfMemory is returned when the snapshot can't be allocated.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrResolution wraps failures of the line source.
	ErrResolution = errors.New("frame resolution failed")
)
