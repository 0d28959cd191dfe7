package header

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Header is a decoded message header. Offsets are absolute byte positions
// from the start of the message; zero means absent.
type Header struct {
	NumBytes                 uint32
	Version                  uint32
	Name                     uint32
	Flags                    uint32
	RequestID                uint64
	PayloadOffset            uint64
	PayloadInterfaceIDOffset uint64
}

// FlagNames renders flags as "expects_response|is_sync" style text. Unknown
// bits are shown in hex.
func FlagNames(flags uint32) string {
	if flags == 0 {
		return "none"
	}
	var names []string
	for _, f := range []struct {
		bit  uint32
		name string
	}{
		{FlagExpectsResponse, "expects_response"},
		{FlagIsResponse, "is_response"},
		{FlagIsSync, "is_sync"},
	} {
		if flags&f.bit != 0 {
			names = append(names, f.name)
			flags &^= f.bit
		}
	}
	if flags != 0 {
		names = append(names, fmt.Sprintf("0x%x", flags))
	}
	return strings.Join(names, "|")
}

// ResponseFlags reports whether flags call for a request_id slot.
func ResponseFlags(flags uint32) bool {
	return flags&(FlagExpectsResponse|FlagIsResponse) != 0
}

// SelectVersion picks the narrowest header able to describe a message.
// A nonzero interface-id count wins over the response flags since V2
// also carries request_id.
func SelectVersion(flags uint32, interfaceIDCount int) uint32 {
	switch {
	case interfaceIDCount > 0:
		return Version2
	case ResponseFlags(flags):
		return Version1
	default:
		return Version0
	}
}

// SizeForVersion returns the struct size of a header version. Versions
// newer than 2 are sized as V2 since layouts only ever widen.
func SizeForVersion(version uint32) int {
	switch version {
	case Version0:
		return SizeV0
	case Version1:
		return SizeV1
	default:
		return SizeV2
	}
}

// ArraySize returns the encoded size of an interface-id array with n entries.
func ArraySize(n int) int {
	return ArrayHeaderSize + n*InterfaceIDSize
}

// ComputeSerializedMessageSize returns header + payload + interface-id
// table bytes for a new message.
func ComputeSerializedMessageSize(flags uint32, payloadSize, interfaceIDCount int) (int, error) {
	if payloadSize < 0 || interfaceIDCount < 0 {
		return 0, oops.Errorf("header: negative message dimensions payload=%d ids=%d", payloadSize, interfaceIDCount)
	}
	if err := CheckFlags(flags); err != nil {
		return 0, oops.Wrapf(err, "flags %s", FlagNames(flags))
	}
	if uint64(payloadSize) > MaxPayloadBytes {
		return 0, oops.Wrapf(ErrMessageTooLarge, "payload of %d bytes", payloadSize)
	}
	total := uint64(SizeForVersion(SelectVersion(flags, interfaceIDCount))) + uint64(payloadSize)
	if interfaceIDCount > 0 {
		total += uint64(ArrayHeaderSize) + uint64(interfaceIDCount)*InterfaceIDSize
	}
	if total > MaxPayloadBytes {
		return 0, oops.Wrapf(ErrMessageTooLarge, "message of %d bytes", total)
	}
	return int(total), nil
}

// Encode writes h into dst using h.Version's layout. dst must hold at least
// SizeForVersion(h.Version) bytes. Offsets are converted to relative pointers.
func (h Header) Encode(dst []byte) {
	size := SizeForVersion(h.Version)
	_ = dst[size-1]
	binary.LittleEndian.PutUint32(dst[offsetNumBytes:], h.NumBytes)
	binary.LittleEndian.PutUint32(dst[offsetVersion:], h.Version)
	binary.LittleEndian.PutUint32(dst[offsetName:], h.Name)
	binary.LittleEndian.PutUint32(dst[offsetFlags:], h.Flags)
	if h.Version < Version1 {
		return
	}
	binary.LittleEndian.PutUint64(dst[offsetRequestID:], h.RequestID)
	if h.Version < Version2 {
		return
	}
	binary.LittleEndian.PutUint64(dst[offsetPayload:], encodePointer(offsetPayload, h.PayloadOffset))
	binary.LittleEndian.PutUint64(dst[offsetPayloadInterfaceIDs:], encodePointer(offsetPayloadInterfaceIDs, h.PayloadInterfaceIDOffset))
}

func encodePointer(field int, target uint64) uint64 {
	if target == 0 {
		return 0
	}
	return target - uint64(field)
}

func decodePointer(data []byte, field int) (uint64, error) {
	rel := binary.LittleEndian.Uint64(data[field:])
	if rel == 0 {
		return 0, nil
	}
	if rel > uint64(len(data)) {
		return 0, ErrInvalidPointerEncoding
	}
	return uint64(field) + rel, nil
}

// PeekVersion reads only the num_bytes and version fields.
func PeekVersion(data []byte) (numBytes, version uint32, err error) {
	if len(data) < SizeV0 {
		return 0, 0, ErrNotEnoughData
	}
	return binary.LittleEndian.Uint32(data[offsetNumBytes:]), binary.LittleEndian.Uint32(data[offsetVersion:]), nil
}

// Decode reads and validates the header at the front of data. data is the
// whole message; pointer targets are checked against its length.
func Decode(data []byte) (Header, error) {
	var h Header
	numBytes, version, err := PeekVersion(data)
	if err != nil {
		return h, err
	}
	if err := validateNumBytes(numBytes, version, len(data)); err != nil {
		log.WithFields(logger.Fields{
			"at":        "header.Decode",
			"num_bytes": numBytes,
			"version":   version,
			"data_size": len(data),
		}).Debug("rejecting header")
		return h, err
	}
	h.NumBytes = numBytes
	h.Version = version
	h.Name = binary.LittleEndian.Uint32(data[offsetName:])
	h.Flags = binary.LittleEndian.Uint32(data[offsetFlags:])

	if err := validateFlags(h.Flags, version); err != nil {
		return h, err
	}
	if version >= Version1 {
		h.RequestID = binary.LittleEndian.Uint64(data[offsetRequestID:])
	}
	if version >= Version2 {
		if err := decodeV2Pointers(data, &h); err != nil {
			return h, err
		}
	}
	return h, nil
}

func validateNumBytes(numBytes, version uint32, dataSize int) error {
	switch version {
	case Version0:
		if numBytes != SizeV0 {
			return ErrInvalidNumBytes
		}
	case Version1:
		if numBytes != SizeV1 {
			return ErrInvalidNumBytes
		}
	default:
		if numBytes < SizeV2 {
			return ErrInvalidNumBytes
		}
	}
	if uint64(numBytes) > uint64(dataSize) {
		return ErrNotEnoughData
	}
	return nil
}

// CheckFlags rejects flag combinations no header can carry: a message is
// either a request expecting a response or a response, never both.
func CheckFlags(flags uint32) error {
	if flags&FlagExpectsResponse != 0 && flags&FlagIsResponse != 0 {
		return ErrInconsistentFlags
	}
	return nil
}

func validateFlags(flags, version uint32) error {
	if err := CheckFlags(flags); err != nil {
		return err
	}
	if version == Version0 && ResponseFlags(flags) {
		return ErrInconsistentFlags
	}
	return nil
}

func decodeV2Pointers(data []byte, h *Header) error {
	payload, err := decodePointer(data, offsetPayload)
	if err != nil {
		return err
	}
	if payload < uint64(h.NumBytes) || payload > uint64(len(data)) {
		return ErrInvalidPayloadPointer
	}
	h.PayloadOffset = payload

	ids, err := decodePointer(data, offsetPayloadInterfaceIDs)
	if err != nil {
		return err
	}
	if ids == 0 {
		return nil
	}
	if ids < payload {
		return ErrInvalidInterfaceIDs
	}
	if _, err := decodeArray(data, ids); err != nil {
		return err
	}
	h.PayloadInterfaceIDOffset = ids
	return nil
}
