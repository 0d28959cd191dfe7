// Package message implements the message envelope exchanged over the
// transport.
//
// A Message wraps one transport object and exposes its header, payload and
// handles. It is built one of three ways:
//   - New lays out a serialized message immediately (header, payload region,
//     room for an interface-id table).
//   - NewFromContext wraps an UnserializedContext. No bytes exist until
//     SerializeIfNecessary runs or a transport forces serialization. Header
//     accessors still work against a V1-shaped view of the captured fields.
//   - FromTransport rebuilds an envelope from a received object.
//
// Payload accessors on a received message validate the header first and
// panic on protocol violations. Bindings that decode untrusted input call
// Validate and report a bad message instead.
//
// Dispatch and sync-response contexts are tracked per goroutine on a
// DispatchStack carried in a context.Context.
package message
