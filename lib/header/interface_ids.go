package header

import (
	"encoding/binary"

	"github.com/go-i2p/go-envelope/lib/buffer"
)

// InterfaceIDs is a view over the element storage of an encoded
// interface-id array. Writes go straight to the message bytes.
type InterfaceIDs []byte

// Len returns the number of entries.
func (ids InterfaceIDs) Len() int {
	return len(ids) / InterfaceIDSize
}

// At returns entry i.
func (ids InterfaceIDs) At(i int) uint32 {
	return binary.LittleEndian.Uint32(ids[i*InterfaceIDSize:])
}

// Set overwrites entry i.
func (ids InterfaceIDs) Set(i int, id uint32) {
	binary.LittleEndian.PutUint32(ids[i*InterfaceIDSize:], id)
}

// Slice copies the entries out.
func (ids InterfaceIDs) Slice() []uint32 {
	out := make([]uint32, ids.Len())
	for i := range out {
		out[i] = ids.At(i)
	}
	return out
}

// IsValidInterfaceID reports whether id refers to an interface.
func IsValidInterfaceID(id uint32) bool {
	return id != InvalidInterfaceID
}

// WriteInterfaceIDArray allocates an n-entry array from buf, writes its
// array header and marks every entry invalid.
func WriteInterfaceIDArray(buf *buffer.Buffer, n int) (int, InterfaceIDs) {
	size := ArraySize(n)
	offset, dst := buf.Allocate(size)
	binary.LittleEndian.PutUint32(dst[0:], uint32(size))
	binary.LittleEndian.PutUint32(dst[4:], uint32(n))
	ids := InterfaceIDs(dst[ArrayHeaderSize:])
	for i := 0; i < n; i++ {
		ids.Set(i, InvalidInterfaceID)
	}
	return offset, ids
}

// ReadInterfaceIDs returns the array stored at offset in data.
func ReadInterfaceIDs(data []byte, offset uint64) (InterfaceIDs, error) {
	return decodeArray(data, offset)
}

func decodeArray(data []byte, offset uint64) (InterfaceIDs, error) {
	size := uint64(len(data))
	if offset > size || size-offset < ArrayHeaderSize {
		return nil, ErrInvalidInterfaceIDs
	}
	numBytes := uint64(binary.LittleEndian.Uint32(data[offset:]))
	numElements := uint64(binary.LittleEndian.Uint32(data[offset+4:]))
	if numBytes != ArrayHeaderSize+numElements*InterfaceIDSize {
		return nil, ErrInvalidInterfaceIDs
	}
	if size-offset < numBytes {
		return nil, ErrInvalidInterfaceIDs
	}
	start := offset + ArrayHeaderSize
	return InterfaceIDs(data[start : offset+numBytes : offset+numBytes]), nil
}
