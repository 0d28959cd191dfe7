package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0},
		{1, 8},
		{8, 8},
		{9, 16},
		{23, 24},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Align(tt.in), "Align(%d)", tt.in)
	}
	assert.Equal(t, 4, AlignTo(3, 4))
}

func TestAllocateIsContiguous(t *testing.T) {
	storage := make([]byte, 32)
	b := New(storage)
	require.True(t, b.IsValid())

	off, head := b.Allocate(16)
	assert.Equal(t, 0, off)
	assert.Len(t, head, 16)

	off, body := b.Allocate(5)
	assert.Equal(t, 16, off)
	body[0] = 0xAB
	assert.Equal(t, byte(0xAB), storage[16], "writes land in borrowed storage")

	assert.Equal(t, 21, b.Cursor())
	assert.Equal(t, 11, b.Remaining())
	assert.Equal(t, storage[:21], b.Bytes())
}

func TestAllocateAlignedZeroesPadding(t *testing.T) {
	storage := make([]byte, 32)
	for i := range storage {
		storage[i] = 0xFF
	}
	b := New(storage)
	b.Allocate(3)

	off, _ := b.AllocateAligned(8, 8)
	assert.Equal(t, 8, off)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, storage[3:8])
}

func TestAllocateBeyondCapacityPanics(t *testing.T) {
	b := New(make([]byte, 8))
	b.Allocate(8)
	assert.Panics(t, func() { b.Allocate(1) })
	assert.Panics(t, func() { b.Allocate(-1) })
}

func TestSlicesCannotGrowIntoNextAllocation(t *testing.T) {
	storage := make([]byte, 16)
	b := New(storage)
	_, first := b.Allocate(4)
	_, second := b.Allocate(4)
	first = append(first, 0x7F)
	assert.Equal(t, byte(0), second[0])
	assert.Equal(t, 4, cap(second))
}

func TestNilBuffer(t *testing.T) {
	var b *Buffer
	assert.False(t, b.IsValid())
	assert.Equal(t, 0, b.Capacity())
	assert.Nil(t, b.Bytes())
}
