package buffer

import (
	"github.com/go-i2p/go-envelope/lib/util"
)

// Alignment is the boundary used by AllocateAligned when no explicit
// alignment is requested.
const Alignment = 8

// Align rounds n up to the next multiple of Alignment.
func Align(n int) int {
	return AlignTo(n, Alignment)
}

// AlignTo rounds n up to the next multiple of align. align must be a power of two.
func AlignTo(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// Buffer hands out sub-slices of a borrowed byte region in order.
type Buffer struct {
	data   []byte
	cursor int
}

// New wraps storage. The Buffer does not copy it; writes through slices
// returned by Allocate land directly in storage.
func New(storage []byte) *Buffer {
	return &Buffer{data: storage}
}

// IsValid reports whether the Buffer is backed by storage.
func (b *Buffer) IsValid() bool {
	return b != nil && b.data != nil
}

// Capacity is the size of the whole backing region.
func (b *Buffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Cursor is the number of bytes allocated so far.
func (b *Buffer) Cursor() int {
	if b == nil {
		return 0
	}
	return b.cursor
}

// Remaining is the number of bytes that can still be allocated.
func (b *Buffer) Remaining() int {
	return b.Capacity() - b.Cursor()
}

// Allocate reserves n bytes directly after the cursor and returns their
// offset from the start of the region together with the writable slice.
// Exceeding the capacity computed up front is a programming error.
func (b *Buffer) Allocate(n int) (int, []byte) {
	if n < 0 {
		util.Panicf("buffer: negative allocation %d", n)
	}
	if n > b.Remaining() {
		util.Panicf("buffer: allocation of %d bytes exceeds remaining capacity %d", n, b.Remaining())
	}
	offset := b.cursor
	b.cursor += n
	return offset, b.data[offset:b.cursor:b.cursor]
}

// AllocateAligned pads the cursor to align (zeroing the padding) before
// allocating n bytes.
func (b *Buffer) AllocateAligned(n, align int) (int, []byte) {
	padded := AlignTo(b.cursor, align)
	if padded > b.Capacity() {
		util.Panicf("buffer: alignment padding to %d exceeds capacity %d", padded, b.Capacity())
	}
	clear(b.data[b.cursor:padded])
	b.cursor = padded
	return b.Allocate(n)
}

// Bytes returns the allocated prefix of the region.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data[:b.cursor]
}

// Storage returns the whole backing region, including bytes not yet allocated.
func (b *Buffer) Storage() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Zero clears the whole backing region.
func (b *Buffer) Zero() {
	if b == nil {
		return
	}
	clear(b.data)
}
