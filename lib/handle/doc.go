// Package handle models OS-level capabilities (file descriptors, pipe
// endpoints) that travel alongside a message's bytes.
//
// A Set owns its handles until they are moved out exactly once, either to a
// transport on send or to a consumer on extraction. Moving or closing a set
// twice is a programming error and panics.
package handle
