package transport

import (
	"github.com/go-i2p/go-envelope/lib/handle"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// Context is a deferred message representation attached to an Object.
// The transport calls SerializedSize, SerializeHandles and SerializePayload
// at most once each, in that order, and Destroy exactly once.
type Context interface {
	// SerializedSize reports the byte and handle counts the context needs.
	SerializedSize() (numBytes, numHandles int)
	// SerializeHandles moves numHandles handles out of the context.
	SerializeHandles() []handle.Handle
	// SerializePayload writes the whole message into storage, which is
	// exactly numBytes long and zeroed.
	SerializePayload(storage []byte)
	// Destroy releases the context. It runs whether or not serialization happened.
	Destroy()
}

type objectState interface {
	objectState()
}

type deferredState struct {
	context Context
}

type serializedState struct {
	data    []byte
	handles []handle.Handle
	// false once the handles have been extracted by a reader
	hasHandles bool
}

func (*deferredState) objectState()   {}
func (*serializedState) objectState() {}

// Object is a transport message. It is owned by one holder at a time.
type Object struct {
	state      objectState
	badMessage func(reason string)
}

// CreateMessage returns a deferred object carrying ctx. Ownership of ctx
// passes to the object.
func CreateMessage(ctx Context) (*Object, error) {
	if ctx == nil {
		return nil, oops.Wrapf(ErrInvalidArgument, "nil message context")
	}
	return &Object{state: &deferredState{context: ctx}}, nil
}

// NewSerializedObject returns an object already backed by data and handles,
// as produced by a peer. Ownership of both passes to the object.
func NewSerializedObject(data []byte, handles []handle.Handle) (*Object, error) {
	if !checkLimits(len(data), len(handles)) {
		return nil, oops.Wrapf(ErrResourceExhausted, "message of %d bytes with %d handles", len(data), len(handles))
	}
	return &Object{state: &serializedState{
		data:       data,
		handles:    handles,
		hasHandles: true,
	}}, nil
}

// IsSerialized reports whether bytes back the object.
func (o *Object) IsSerialized() bool {
	_, ok := o.state.(*serializedState)
	return ok
}

// Context returns the attached context without detaching it.
func (o *Object) Context() (Context, error) {
	switch s := o.state.(type) {
	case *deferredState:
		return s.context, nil
	default:
		return nil, ErrNotFound
	}
}

// ReleaseContext detaches and returns the attached context. The object is
// left empty; the caller now owns the context and must Destroy it.
func (o *Object) ReleaseContext() (Context, error) {
	s, ok := o.state.(*deferredState)
	if !ok {
		return nil, ErrNotFound
	}
	o.state = nil
	return s.context, nil
}

// Serialize materializes a deferred object. It returns ErrFailedPrecondition
// when the object is already serialized and ErrNotFound when it has no
// context at all.
func (o *Object) Serialize() error {
	var ctx Context
	switch s := o.state.(type) {
	case *serializedState:
		return ErrFailedPrecondition
	case *deferredState:
		ctx = s.context
	default:
		return ErrNotFound
	}

	numBytes, numHandles := ctx.SerializedSize()
	if !checkLimits(numBytes, numHandles) {
		log.WithFields(logger.Fields{
			"at":          "(Object) Serialize",
			"num_bytes":   numBytes,
			"num_handles": numHandles,
		}).Error("message exceeds transport limits")
		return oops.Wrapf(ErrResourceExhausted, "message of %d bytes with %d handles", numBytes, numHandles)
	}

	var handles []handle.Handle
	if numHandles > 0 {
		handles = ctx.SerializeHandles()
		if len(handles) != numHandles {
			_ = handle.CloseAll(handles)
			return oops.Wrapf(ErrInvalidArgument, "context produced %d handles, declared %d", len(handles), numHandles)
		}
	}

	storage := make([]byte, numBytes)
	ctx.SerializePayload(storage)
	ctx.Destroy()

	o.state = &serializedState{
		data:       storage,
		handles:    handles,
		hasHandles: true,
	}
	log.WithFields(logger.Fields{
		"at":          "(Object) Serialize",
		"num_bytes":   numBytes,
		"num_handles": numHandles,
	}).Debug("serialized message")
	return nil
}

// SerializedContents returns the message bytes and moves the object's
// handles into dst. When dst is too small the handles stay put and
// ErrResourceExhausted is returned along with the required count, so the
// caller can retry once with adequate storage.
func (o *Object) SerializedContents(dst []handle.Handle) ([]byte, int, error) {
	s, ok := o.state.(*serializedState)
	if !ok {
		return nil, 0, ErrFailedPrecondition
	}
	if !s.hasHandles {
		return s.data, 0, ErrNotFound
	}
	n := len(s.handles)
	if n > len(dst) {
		return s.data, n, ErrResourceExhausted
	}
	copy(dst, s.handles)
	s.handles = nil
	s.hasHandles = false
	return s.data, n, nil
}

// NumHandles returns how many handles are still attached to a serialized object.
func (o *Object) NumHandles() int {
	s, ok := o.state.(*serializedState)
	if !ok || !s.hasHandles {
		return 0
	}
	return len(s.handles)
}

// Truncate shortens a serialized object's bytes to n. Writers that reserved
// more room than they used call this before handing the object off.
func (o *Object) Truncate(n int) error {
	s, ok := o.state.(*serializedState)
	if !ok {
		return ErrFailedPrecondition
	}
	if n < 0 || n > len(s.data) {
		return oops.Wrapf(ErrInvalidArgument, "truncate to %d of %d bytes", n, len(s.data))
	}
	s.data = s.data[:n]
	return nil
}

// SetBadMessageHandler installs the callback run by NotifyBadMessage.
func (o *Object) SetBadMessageHandler(fn func(reason string)) {
	o.badMessage = fn
}

// NotifyBadMessage tells whoever delivered this object that it was
// malformed. Locally created objects have nobody to tell.
func (o *Object) NotifyBadMessage(reason string) error {
	if o.badMessage == nil {
		log.WithFields(logger.Fields{
			"at":     "(Object) NotifyBadMessage",
			"reason": reason,
		}).Warn("bad message reported on a message with no sender")
		return ErrNotFound
	}
	o.badMessage(reason)
	return nil
}

// Close releases whatever the object still holds: an attached context is
// destroyed and unextracted handles are closed. Close is idempotent.
func (o *Object) Close() error {
	if o == nil {
		return nil
	}
	state := o.state
	o.state = nil
	switch s := state.(type) {
	case *deferredState:
		s.context.Destroy()
	case *serializedState:
		if s.hasHandles {
			return handle.CloseAll(s.handles)
		}
	}
	return nil
}

// moveOut transfers the object's state into a fresh object and empties o.
func (o *Object) moveOut() *Object {
	moved := &Object{state: o.state}
	o.state = nil
	o.badMessage = nil
	return moved
}
