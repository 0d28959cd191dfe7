package message

import (
	"context"
	"sync"
	"testing"

	"github.com/go-i2p/go-envelope/lib/header"
	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receiverFunc struct {
	accept    func(ctx context.Context, m *Message) bool
	serialize bool
}

func (r receiverFunc) Accept(ctx context.Context, m *Message) bool { return r.accept(ctx, m) }

func (r receiverFunc) PrefersSerializedMessages() bool { return r.serialize }

func mustNew(t *testing.T, name uint32) *Message {
	t.Helper()
	m, err := New(name, 0, 0, 0, nil)
	require.NoError(t, err)
	return m
}

func TestDispatchNestingOrder(t *testing.T) {
	s := NewDispatchStack()
	outer := s.EnterDispatch(mustNew(t, 1))
	inner := s.EnterDispatch(mustNew(t, 2))
	assert.Same(t, inner, s.CurrentDispatch())

	assert.Panics(t, outer.Exit)
	assert.Same(t, inner, s.CurrentDispatch(), "failed exit leaves the stack alone")

	inner.Exit()
	assert.Same(t, outer, s.CurrentDispatch())
	assert.Panics(t, inner.Exit)
	outer.Exit()
	assert.Nil(t, s.CurrentDispatch())
}

func TestReportBadMessageWithoutDispatchPanics(t *testing.T) {
	assert.Panics(t, func() { NewDispatchStack().ReportBadMessage("x") })
	assert.Panics(t, func() { ReportBadMessage(context.Background(), "x") })
	assert.Panics(t, func() { GetBadMessageCallback(context.Background()) })
}

func TestReportBadMessageBreaksPipe(t *testing.T) {
	a, b := transport.NewSerializingPipe()
	var reported []string
	a.SetBadMessageHandler(func(reason string) { reported = append(reported, reason) })

	require.NoError(t, WriteMessage(a, mustNew(t, 7)))
	got, err := ReadMessage(b)
	require.NoError(t, err)

	receiver := receiverFunc{accept: func(ctx context.Context, m *Message) bool {
		assert.Same(t, got, m)
		assert.Same(t, m, DispatchStackFrom(ctx).CurrentDispatch().Message())
		ReportBadMessage(ctx, "bad payload")
		return false
	}}
	ok, err := Dispatch(context.Background(), receiver, got)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"bad payload"}, reported)
	assert.True(t, got.IsNull(), "reporting consumes the message")
	assert.ErrorIs(t, WriteMessage(a, mustNew(t, 8)), transport.ErrPeerClosed)
}

func TestBadMessageCallbackOutlivesDispatch(t *testing.T) {
	a, b := transport.NewSerializingPipe()
	var reported []string
	a.SetBadMessageHandler(func(reason string) { reported = append(reported, reason) })
	require.NoError(t, WriteMessage(a, mustNew(t, 7)))
	got, err := ReadMessage(b)
	require.NoError(t, err)

	var callback ReportBadMessageCallback
	receiver := receiverFunc{accept: func(ctx context.Context, m *Message) bool {
		callback = GetBadMessageCallback(ctx)
		return true
	}}
	_, err = Dispatch(context.Background(), receiver, got)
	require.NoError(t, err)
	require.NotNil(t, callback)
	assert.Empty(t, reported)

	callback("late")
	callback("again")
	assert.Equal(t, []string{"late"}, reported)
}

func TestReportLocalMessageHasNoSender(t *testing.T) {
	receiver := receiverFunc{accept: func(ctx context.Context, m *Message) bool {
		ReportBadMessage(ctx, "nobody listens")
		return false
	}}
	m := mustNew(t, 3)
	assert.NotPanics(t, func() {
		_, err := Dispatch(context.Background(), receiver, m)
		assert.NoError(t, err)
	})
	assert.True(t, m.IsNull())
}

func TestDispatchSerializesWhenPreferred(t *testing.T) {
	m, err := NewFromContext(newTestContext(t, 4, 0, &testValue{payload: []byte("z")}))
	require.NoError(t, err)

	var serialized bool
	receiver := receiverFunc{serialize: true, accept: func(_ context.Context, m *Message) bool {
		serialized = m.Serialized()
		return true
	}}
	ok, err := Dispatch(context.Background(), receiver, m)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, serialized)
}

func TestDispatchStacksAreIndependent(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := New(uint32(i), 0, 0, 0, nil)
			if err != nil {
				return
			}
			receiver := receiverFunc{accept: func(ctx context.Context, got *Message) bool {
				return DispatchStackFrom(ctx).CurrentDispatch().Message().Name() == uint32(i)
			}}
			results[i], _ = Dispatch(context.Background(), receiver, m)
		}(i)
	}
	wg.Wait()
	for i, ok := range results {
		assert.True(t, ok, "goroutine %d saw a foreign dispatch", i)
	}
}

func TestSyncResponseCapture(t *testing.T) {
	s := NewDispatchStack()
	reply, err := New(9, header.FlagIsResponse|header.FlagIsSync, 0, 0, nil)
	require.NoError(t, err)
	reply.SetRequestID(5)

	assert.False(t, s.SetCurrentSyncResponseMessage(reply))
	assert.False(t, reply.IsNull(), "nothing captured, caller keeps the reply")

	c := s.EnterSyncResponse()
	assert.Same(t, c, s.CurrentSyncResponse())
	assert.True(t, c.Response().IsNull())

	require.True(t, s.SetCurrentSyncResponseMessage(reply))
	assert.True(t, reply.IsNull())
	assert.Equal(t, uint64(5), c.Response().RequestID())

	taken := c.TakeResponse()
	assert.True(t, taken.IsSync())
	assert.True(t, c.Response().IsNull())

	c.Exit()
	assert.Nil(t, s.CurrentSyncResponse())
}

func TestSyncResponseNesting(t *testing.T) {
	s := NewDispatchStack()
	outer := s.EnterSyncResponse()
	inner := s.EnterSyncResponse()

	require.True(t, s.SetCurrentSyncResponseMessage(mustNew(t, 1)))
	assert.True(t, outer.Response().IsNull())
	assert.False(t, inner.Response().IsNull())

	assert.Panics(t, outer.Exit)
	inner.Exit()
	outer.Exit()
}

func TestSyncResponseReportBadMessage(t *testing.T) {
	a, b := transport.NewSerializingPipe()
	var reported []string
	a.SetBadMessageHandler(func(reason string) { reported = append(reported, reason) })
	require.NoError(t, WriteMessage(a, mustNew(t, 7)))
	got, err := ReadMessage(b)
	require.NoError(t, err)

	s := NewDispatchStack()
	c := s.EnterSyncResponse()
	defer c.Exit()
	require.True(t, s.SetCurrentSyncResponseMessage(got))

	c.ReportBadMessage("bad reply")
	assert.Equal(t, []string{"bad reply"}, reported)
}
