package message

import (
	"context"
	"sync"

	"github.com/go-i2p/go-envelope/lib/util"
	"github.com/go-i2p/logger"
)

// ReportBadMessageCallback reports the message it was created for as bad.
// Only the first call has an effect.
type ReportBadMessageCallback func(reason string)

// DispatchStack holds the current dispatch context and the current
// sync-response context for one goroutine. It is not safe for concurrent
// use; give every dispatching goroutine its own stack.
type DispatchStack struct {
	dispatch     *DispatchContext
	syncResponse *SyncMessageResponseContext
}

// NewDispatchStack returns an empty stack.
func NewDispatchStack() *DispatchStack {
	return &DispatchStack{}
}

type dispatchStackKey struct{}

// WithDispatchStack returns a context carrying s.
func WithDispatchStack(ctx context.Context, s *DispatchStack) context.Context {
	return context.WithValue(ctx, dispatchStackKey{}, s)
}

// DispatchStackFrom returns the stack carried by ctx, or nil.
func DispatchStackFrom(ctx context.Context) *DispatchStack {
	s, _ := ctx.Value(dispatchStackKey{}).(*DispatchStack)
	return s
}

func badMessageCallback(m *Message) ReportBadMessageCallback {
	var once sync.Once
	return func(reason string) {
		ran := false
		once.Do(func() {
			ran = true
			if m.IsNull() {
				log.WithField("reason", reason).Warn("bad message reported after the message was released")
				return
			}
			if err := m.NotifyBadMessage(reason); err != nil {
				log.WithError(err).Warn("bad message notification not delivered")
			}
			m.Reset()
		})
		if !ran {
			log.WithField("reason", reason).Debug("bad message callback already ran")
		}
	}
}

// DispatchContext marks a message as being handled on the current goroutine.
type DispatchContext struct {
	stack    *DispatchStack
	outer    *DispatchContext
	message  *Message
	callback ReportBadMessageCallback
	exited   bool
}

// EnterDispatch installs a dispatch context for m on top of the stack.
func (s *DispatchStack) EnterDispatch(m *Message) *DispatchContext {
	d := &DispatchContext{stack: s, outer: s.dispatch, message: m}
	s.dispatch = d
	return d
}

// CurrentDispatch returns the innermost dispatch context, or nil.
func (s *DispatchStack) CurrentDispatch() *DispatchContext {
	return s.dispatch
}

// Exit restores the outer context. Exiting anything but the innermost
// context is a programming error.
func (d *DispatchContext) Exit() {
	if d.exited || d.stack.dispatch != d {
		util.Panicf("message: dispatch context exited out of order")
	}
	d.exited = true
	d.stack.dispatch = d.outer
}

// Message returns the message being dispatched. After
// GetBadMessageCallback has been called the message is empty.
func (d *DispatchContext) Message() *Message {
	return d.message
}

// GetBadMessageCallback returns a callback bound to the dispatched
// message. The first call moves the message into the callback so it can
// outlive the dispatch.
func (d *DispatchContext) GetBadMessageCallback() ReportBadMessageCallback {
	if d.callback == nil {
		d.callback = badMessageCallback(d.message.take())
	}
	return d.callback
}

// ReportBadMessage reports the message currently dispatched on s.
func (s *DispatchStack) ReportBadMessage(reason string) {
	s.GetBadMessageCallback()(reason)
}

// GetBadMessageCallback returns the callback for the message currently
// dispatched on s. Calling it with no dispatch in progress is a
// programming error.
func (s *DispatchStack) GetBadMessageCallback() ReportBadMessageCallback {
	if s == nil || s.dispatch == nil {
		util.Panicf("message: no message is being dispatched")
	}
	return s.dispatch.GetBadMessageCallback()
}

// ReportBadMessage reports the message currently dispatched on the
// goroutine that owns ctx's stack.
func ReportBadMessage(ctx context.Context, reason string) {
	log.WithFields(logger.Fields{
		"at":     "message.ReportBadMessage",
		"reason": reason,
	}).Debug("handler reported bad message")
	DispatchStackFrom(ctx).ReportBadMessage(reason)
}

// GetBadMessageCallback returns the callback for the message currently
// dispatched on ctx's stack.
func GetBadMessageCallback(ctx context.Context) ReportBadMessageCallback {
	return DispatchStackFrom(ctx).GetBadMessageCallback()
}

// SyncMessageResponseContext captures the reply produced while a
// synchronous call is waiting.
type SyncMessageResponseContext struct {
	stack    *DispatchStack
	outer    *SyncMessageResponseContext
	response *Message
	callback ReportBadMessageCallback
	exited   bool
}

// EnterSyncResponse installs a sync-response context on top of the stack.
func (s *DispatchStack) EnterSyncResponse() *SyncMessageResponseContext {
	c := &SyncMessageResponseContext{stack: s, outer: s.syncResponse, response: &Message{}}
	s.syncResponse = c
	return c
}

// CurrentSyncResponse returns the innermost sync-response context, or nil.
func (s *DispatchStack) CurrentSyncResponse() *SyncMessageResponseContext {
	return s.syncResponse
}

// Exit restores the outer context. Exiting anything but the innermost
// context is a programming error.
func (c *SyncMessageResponseContext) Exit() {
	if c.exited || c.stack.syncResponse != c {
		util.Panicf("message: sync response context exited out of order")
	}
	c.exited = true
	c.stack.syncResponse = c.outer
}

// Response returns the captured reply, which is empty until one arrives.
func (c *SyncMessageResponseContext) Response() *Message {
	return c.response
}

// TakeResponse moves the captured reply out.
func (c *SyncMessageResponseContext) TakeResponse() *Message {
	return c.response.take()
}

// ReportBadMessage reports the captured reply as bad.
func (c *SyncMessageResponseContext) ReportBadMessage(reason string) {
	c.GetBadMessageCallback()(reason)
}

// GetBadMessageCallback returns a callback bound to the captured reply.
func (c *SyncMessageResponseContext) GetBadMessageCallback() ReportBadMessageCallback {
	if c.callback == nil {
		c.callback = badMessageCallback(c.response.take())
	}
	return c.callback
}

// SetCurrentSyncResponseMessage moves m into the innermost sync-response
// context, if there is one, and reports whether it did.
func (s *DispatchStack) SetCurrentSyncResponseMessage(m *Message) bool {
	c := s.syncResponse
	if c == nil {
		return false
	}
	c.response.Reset()
	c.response = m.take()
	return true
}
