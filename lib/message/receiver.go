package message

import (
	"context"

	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// MessageReceiver consumes dispatched messages.
type MessageReceiver interface {
	// Accept handles m and reports whether it was valid.
	Accept(ctx context.Context, m *Message) bool
	// PrefersSerializedMessages asks Dispatch to serialize unserialized
	// messages before handing them over.
	PrefersSerializedMessages() bool
}

// PassThroughFilter accepts every message.
type PassThroughFilter struct{}

// Compile-time interface satisfaction check
var _ MessageReceiver = PassThroughFilter{}

func (PassThroughFilter) Accept(context.Context, *Message) bool { return true }

func (PassThroughFilter) PrefersSerializedMessages() bool { return false }

// Dispatch hands m to receiver inside a dispatch context on ctx's stack,
// creating a stack if ctx has none.
func Dispatch(ctx context.Context, receiver MessageReceiver, m *Message) (bool, error) {
	stack := DispatchStackFrom(ctx)
	if stack == nil {
		stack = NewDispatchStack()
		ctx = WithDispatchStack(ctx, stack)
	}
	if receiver.PrefersSerializedMessages() && !m.Serialized() {
		if err := m.SerializeIfNecessary(); err != nil {
			return false, err
		}
	}

	d := stack.EnterDispatch(m)
	defer d.Exit()
	return receiver.Accept(ctx, m), nil
}

// ReadMessage reads the next message from e without blocking.
func ReadMessage(e *transport.Endpoint) (*Message, error) {
	obj, err := e.ReadMessage()
	if err != nil {
		return nil, err
	}
	return FromTransport(obj), nil
}

// WriteMessage takes m's transport object and writes it to e. The message
// is empty afterwards; if the write fails its contents are released.
func WriteMessage(e *transport.Endpoint, m *Message) error {
	name := m.Name()
	obj := m.TakeTransportHandle()
	if err := e.WriteMessage(obj); err != nil {
		_ = obj.Close()
		log.WithFields(logger.Fields{
			"at":   "message.WriteMessage",
			"name": name,
			"port": e.Name().String(),
		}).WithError(err).Debug("write failed")
		return oops.Wrapf(err, "writing message %d", name)
	}
	return nil
}

// WriteContext sends an unserialized message without an envelope. A
// by-reference pipe delivers the context as is; a serializing pipe forces
// serialization first. On failure the context is destroyed.
func WriteContext(e *transport.Endpoint, ctx *UnserializedContext) error {
	obj, err := transport.CreateMessage(ctx)
	if err != nil {
		return err
	}
	if err := e.WriteMessage(obj); err != nil {
		_ = obj.Close()
		return oops.Wrapf(err, "writing unserialized message %d", ctx.MessageName())
	}
	return nil
}
