// Package transport implements the in-process message transport that the
// envelope layer sits on.
//
// # Message objects
//
// An Object is the transport-level message. It is in exactly one of two
// states:
//   - deferred: an unserialized Context is attached and no bytes exist yet
//   - serialized: a byte buffer and an ordered list of handles back it
//
// Serialize moves a deferred object into the serialized state by driving the
// context's callbacks exactly once (size, handles, payload, destroy).
// Serializing an already-serialized object reports ErrFailedPrecondition,
// which callers treat as a no-op.
//
// # Pipes
//
// NewPipe returns two connected endpoints that pass objects by reference,
// so deferred messages stay deferred. NewSerializingPipe forces every
// message into its serialized form and hands the reader a private copy,
// which is what crossing a process boundary looks like. Endpoints are
// handles themselves and may travel inside messages.
//
// Reporting a bad message on an object read from a pipe tears the pipe
// down; both endpoints observe ErrPeerClosed afterwards.
//
// # Streams
//
// WriteFrame and ReadFrame carry serialized, handle-free messages over any
// byte stream with a 4-byte little-endian length prefix.
package transport
