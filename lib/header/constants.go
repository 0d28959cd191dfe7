package header

import (
	"errors"
)

// Message flags.
const (
	FlagExpectsResponse uint32 = 1 << 0
	FlagIsResponse      uint32 = 1 << 1
	FlagIsSync          uint32 = 1 << 2
)

// Header versions.
const (
	Version0 uint32 = 0
	Version1 uint32 = 1
	Version2 uint32 = 2
)

// Header sizes and field offsets.
const (
	SizeV0 = 16
	SizeV1 = 24
	SizeV2 = 40

	offsetNumBytes            = 0
	offsetVersion             = 4
	offsetName                = 8
	offsetFlags               = 12
	offsetRequestID           = 16
	offsetPayload             = 24
	offsetPayloadInterfaceIDs = 32
)

// Interface-id array layout: {num_bytes u32, num_elements u32} then elements.
const (
	ArrayHeaderSize = 8
	InterfaceIDSize = 4

	// InvalidInterfaceID marks a consumed or unset interface-id table entry.
	InvalidInterfaceID uint32 = 0xFFFFFFFF
)

// MaxPayloadBytes is the largest payload a header can describe.
const MaxPayloadBytes = 1<<32 - 1

// Header errors. These use errors.New so callers can match them with errors.Is().
var (
	ErrNotEnoughData          = errors.New("not enough message header data")
	ErrInvalidNumBytes        = errors.New("message header num_bytes inconsistent with version")
	ErrInconsistentFlags      = errors.New("message header flags inconsistent with version")
	ErrInvalidPayloadPointer  = errors.New("message header payload pointer out of range")
	ErrInvalidInterfaceIDs    = errors.New("message header interface id table out of range")
	ErrMessageTooLarge        = errors.New("message size exceeds protocol limit")
	ErrInvalidPointerEncoding = errors.New("relative pointer overflows message")
)
