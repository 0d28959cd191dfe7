package header

import (
	"encoding/binary"

	"github.com/go-i2p/go-envelope/lib/buffer"
	"github.com/go-i2p/go-envelope/lib/util"
)

// Write allocates the header selected by flags and interfaceIDCount at the
// front of buf, zeroes it and fills in the fixed fields. For V2 the payload
// pointer targets the byte right after the header.
func Write(buf *buffer.Buffer, name, flags uint32, interfaceIDCount int) Header {
	version := SelectVersion(flags, interfaceIDCount)
	size := SizeForVersion(version)
	offset, dst := buf.AllocateAligned(size, buffer.Alignment)
	if offset != 0 {
		util.Panicf("header: must be written at the start of the buffer, cursor was %d", offset)
	}
	clear(dst)

	h := Header{
		NumBytes: uint32(size),
		Version:  version,
		Name:     name,
		Flags:    flags,
	}
	if version >= Version2 {
		h.PayloadOffset = uint64(size)
	}
	h.Encode(dst)
	return h
}

// SetRequestID stores id in an encoded V1+ header.
func SetRequestID(data []byte, id uint64) {
	_, version, err := PeekVersion(data)
	if err != nil || version < Version1 || len(data) < SizeV1 {
		util.Panicf("header: request_id requires a V1 header, have version %d (%d bytes)", version, len(data))
	}
	binary.LittleEndian.PutUint64(data[offsetRequestID:], id)
}

// SetPayloadInterfaceIDs points an encoded V2 header at the interface-id
// array starting at offset.
func SetPayloadInterfaceIDs(data []byte, offset int) {
	_, version, err := PeekVersion(data)
	if err != nil || version < Version2 || len(data) < SizeV2 {
		util.Panicf("header: interface id table requires a V2 header, have version %d", version)
	}
	binary.LittleEndian.PutUint64(data[offsetPayloadInterfaceIDs:], encodePointer(offsetPayloadInterfaceIDs, uint64(offset)))
}
