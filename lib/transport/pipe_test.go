package transport

import (
	"context"
	"testing"
	"time"

	"github.com/go-i2p/go-envelope/lib/handle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipePassesDeferredObjects(t *testing.T) {
	a, b := NewPipe()
	assert.NotEqual(t, a.Name(), b.Name())

	ctx := &fakeContext{payload: []byte("x")}
	o, err := CreateMessage(ctx)
	require.NoError(t, err)
	require.NoError(t, a.WriteMessage(o))

	got, err := b.ReadMessage()
	require.NoError(t, err)
	assert.False(t, got.IsSerialized())
	c, err := got.Context()
	require.NoError(t, err)
	assert.Same(t, ctx, c)

	_, err = b.ReadMessage()
	assert.ErrorIs(t, err, ErrShouldWait)
}

func TestSerializingPipeCopies(t *testing.T) {
	a, b := NewSerializingPipe()
	h := &fakeHandle{}
	ctx := &fakeContext{payload: []byte("abc"), handles: []handle.Handle{h}}
	o, err := CreateMessage(ctx)
	require.NoError(t, err)
	require.NoError(t, a.WriteMessage(o))
	assert.Equal(t, 1, ctx.destroyed)

	got, err := b.ReadMessage()
	require.NoError(t, err)
	require.True(t, got.IsSerialized())

	dst := make([]handle.Handle, 1)
	data, n, err := got.SerializedContents(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
	assert.Equal(t, 1, n)
	assert.Same(t, h, dst[0])
}

func TestPipeWriteAfterPeerClose(t *testing.T) {
	a, b := NewPipe()
	require.NoError(t, b.Close())

	o, err := NewSerializedObject([]byte{1}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, a.WriteMessage(o), ErrPeerClosed)
	assert.True(t, o.IsSerialized(), "failed write leaves the object with the caller")

	_, err = a.ReadMessage()
	assert.ErrorIs(t, err, ErrPeerClosed)
	assert.ErrorIs(t, b.Close(), ErrInvalidArgument)
}

func TestCloseDropsQueuedMessages(t *testing.T) {
	a, b := NewPipe()
	ctx := &fakeContext{}
	o, err := CreateMessage(ctx)
	require.NoError(t, err)
	require.NoError(t, a.WriteMessage(o))
	require.NoError(t, b.Close())
	assert.Equal(t, 1, ctx.destroyed)
}

func TestBadMessageBreaksPipe(t *testing.T) {
	a, b := NewPipe()
	var reported string
	a.SetBadMessageHandler(func(reason string) { reported = reason })

	o, err := NewSerializedObject([]byte{1}, nil)
	require.NoError(t, err)
	require.NoError(t, a.WriteMessage(o))

	got, err := b.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, got.NotifyBadMessage("schema violation"))
	assert.Equal(t, "schema violation", reported)

	o2, err := NewSerializedObject([]byte{2}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, a.WriteMessage(o2), ErrPeerClosed)
	assert.ErrorIs(t, b.Wait(context.Background()), ErrPeerClosed)
}

func TestWaitWakesOnWrite(t *testing.T) {
	a, b := NewPipe()
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- b.Wait(ctx)
	}()

	o, err := NewSerializedObject([]byte{1}, nil)
	require.NoError(t, err)
	require.NoError(t, a.WriteMessage(o))
	require.NoError(t, <-done)
}

func TestWaitHonoursContext(t *testing.T) {
	_, b := NewPipe()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Wait(ctx), context.Canceled)
}

func TestEndpointTravelsAsHandle(t *testing.T) {
	a, b := NewPipe()
	c, d := NewPipe()

	o, err := NewSerializedObject([]byte{0}, []handle.Handle{d})
	require.NoError(t, err)
	require.NoError(t, a.WriteMessage(o))

	got, err := b.ReadMessage()
	require.NoError(t, err)
	dst := make([]handle.Handle, 1)
	_, _, err = got.SerializedContents(dst)
	require.NoError(t, err)

	moved, ok := dst[0].(*Endpoint)
	require.True(t, ok)
	o2, err := NewSerializedObject([]byte{9}, nil)
	require.NoError(t, err)
	require.NoError(t, c.WriteMessage(o2))
	_, err = moved.ReadMessage()
	require.NoError(t, err)
}
