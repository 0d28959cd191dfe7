package transport

import "errors"

// Transport result codes. These use errors.New so callers can match them with errors.Is().
var (
	// ErrNotFound: the object has no attached context, or its handles were already extracted.
	ErrNotFound = errors.New("transport: not found")
	// ErrFailedPrecondition: the operation does not apply in the object's current state.
	ErrFailedPrecondition = errors.New("transport: failed precondition")
	// ErrResourceExhausted: an allocation limit was hit, or the caller's handle
	// storage is too small (the required count is reported alongside).
	ErrResourceExhausted = errors.New("transport: resource exhausted")
	// ErrInvalidArgument: the request is malformed.
	ErrInvalidArgument = errors.New("transport: invalid argument")
	// ErrOutOfRange: a length read from a peer exceeds the configured limit.
	ErrOutOfRange = errors.New("transport: out of range")
	// ErrShouldWait: no message is available yet.
	ErrShouldWait = errors.New("transport: should wait")
	// ErrPeerClosed: the other side of the pipe is gone.
	ErrPeerClosed = errors.New("transport: peer closed")
)
