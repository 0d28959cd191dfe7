package handle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandle struct {
	closes int
	err    error
}

func (c *countingHandle) Close() error {
	c.closes++
	return c.err
}

func TestSetTakeMovesOwnership(t *testing.T) {
	a, b := &countingHandle{}, &countingHandle{}
	s := NewSet(a, b)
	assert.Equal(t, 2, s.Len())
	assert.Same(t, b, s.At(1))

	out := s.Take()
	require.Len(t, out, 2)
	assert.Same(t, a, out[0])
	assert.True(t, s.Moved())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, a.closes, "taking must not close")
}

func TestSetDoubleMoveIsFatal(t *testing.T) {
	s := NewSet(&countingHandle{})
	s.Take()
	assert.Panics(t, func() { s.Take() })
	assert.Panics(t, func() { _ = s.Close() })
}

func TestSetDoubleCloseIsFatal(t *testing.T) {
	h := &countingHandle{}
	s := NewSet(h)
	require.NoError(t, s.Close())
	assert.Equal(t, 1, h.closes)
	assert.Panics(t, func() { _ = s.Close() })
	assert.Panics(t, func() { s.Take() })
}

func TestSetCloseJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	s := NewSet(&countingHandle{err: boom}, &countingHandle{})
	assert.ErrorIs(t, s.Close(), boom)
}

func TestNewSetCopiesCallerSlice(t *testing.T) {
	handles := []Handle{&countingHandle{}}
	s := NewSet(handles...)
	handles[0] = nil
	assert.NotNil(t, s.At(0))
}

func TestNilSet(t *testing.T) {
	var s *Set
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Moved())
	assert.Panics(t, func() { s.Take() })
}

func TestFileHandle(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "cap"))
	require.NoError(t, err)

	h := NewFile(f)
	assert.Same(t, f, h.File())
	require.NoError(t, h.Close())
	assert.Nil(t, h.File())
	assert.ErrorIs(t, h.Close(), ErrHandleClosed)
}
