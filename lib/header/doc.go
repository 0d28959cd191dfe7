/*
Package header implements the versioned message header that prefixes every
serialized message.

Wire layout (little-endian):

	V0 (16 bytes):
	+----+----+----+----+----+----+----+----+
	|     num_bytes     |      version      |
	+----+----+----+----+----+----+----+----+
	|       name        |       flags       |
	+----+----+----+----+----+----+----+----+

	V1 (24 bytes): V0 followed by
	+----+----+----+----+----+----+----+----+
	|              request_id               |
	+----+----+----+----+----+----+----+----+

	V2 (40 bytes): V1 followed by
	+----+----+----+----+----+----+----+----+
	|          payload (rel. pointer)       |
	+----+----+----+----+----+----+----+----+
	|  payload_interface_ids (rel. pointer) |
	+----+----+----+----+----+----+----+----+

num_bytes is always the size of the header struct itself, never the size
of the whole message. Relative pointers count bytes from the pointer field
to its target; zero encodes null.

The version tag is always read before any version-specific field, and every
read is bounds-checked against the message size.
*/
package header
