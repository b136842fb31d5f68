package explorer

import "errors"

var (
	// ErrDuplicatePointerID is returned for a Down of a pointer that is already pressed.
	ErrDuplicatePointerID = errors.New("duplicate pointer id")
	// ErrUnknownPointerID is returned for a Move or Up of a pointer that is not pressed.
	ErrUnknownPointerID = errors.New("unknown pointer id")
	// ErrTooManyPointers is returned when a Down would exceed the pointer limit.
	ErrTooManyPointers = errors.New("too many pointers")
	// ErrMalformedEvent is returned for events with invalid or out-of-order fields.
	ErrMalformedEvent = errors.New("malformed pointer event")
	// ErrServiceClosed is returned by a Service after Close.
	ErrServiceClosed = errors.New("touch explorer service closed")
)
