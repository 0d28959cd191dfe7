package message

import (
	"testing"

	"github.com/go-i2p/go-envelope/lib/handle"
	"github.com/stretchr/testify/require"
)

var testTag = NewTag("message.test")

type testValue struct {
	payload   []byte
	handles   []handle.Handle
	destroyed int
}

func (v *testValue) SerializedSize() (int, int) {
	return len(v.payload), len(v.handles)
}

func (v *testValue) SerializeHandles() []handle.Handle {
	out := v.handles
	v.handles = nil
	return out
}

func (v *testValue) SerializePayload(dst []byte) {
	copy(dst, v.payload)
}

func (v *testValue) Destroy() {
	v.destroyed++
}

type testHandle struct {
	id     int
	closes int
}

func (h *testHandle) Close() error {
	h.closes++
	return nil
}

func testHandles(n int) []handle.Handle {
	out := make([]handle.Handle, n)
	for i := range out {
		out[i] = &testHandle{id: i}
	}
	return out
}

func newTestContext(t *testing.T, name, flags uint32, value Value) *UnserializedContext {
	t.Helper()
	ctx, err := NewUnserializedContext(testTag, name, flags, value)
	require.NoError(t, err)
	return ctx
}
