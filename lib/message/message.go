package message

import (
	"errors"
	"math"

	"github.com/go-i2p/go-envelope/lib/associated"
	"github.com/go-i2p/go-envelope/lib/buffer"
	"github.com/go-i2p/go-envelope/lib/handle"
	"github.com/go-i2p/go-envelope/lib/header"
	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/go-i2p/go-envelope/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Message is the envelope around one transport object. The zero value is
// an empty message, usable as an out-parameter target.
type Message struct {
	object *transport.Object

	// set only for messages laid out locally by New
	payloadBuffer *buffer.Buffer
	// view of the active representation for every other message
	data []byte

	handles                   *handle.Set
	associatedEndpointHandles []*associated.EndpointHandle

	transferable bool
	serialized   bool
}

// New lays out a serialized message with room for payloadSize payload bytes
// and an interfaceIDCount-entry interface-id table, and attaches handles.
// The payload region is reserved immediately; write it through Payload.
// On error the caller keeps ownership of handles.
func New(name, flags uint32, payloadSize, interfaceIDCount int, handles []handle.Handle) (*Message, error) {
	totalSize, err := header.ComputeSerializedMessageSize(flags, payloadSize, interfaceIDCount)
	if err != nil {
		return nil, err
	}
	info := &messageInfo{totalSize: totalSize, handles: handles}
	obj, err := transport.CreateMessage(info)
	if err != nil {
		return nil, err
	}
	if err := obj.Serialize(); err != nil {
		log.WithFields(logger.Fields{
			"at":          "message.New",
			"name":        name,
			"total_size":  totalSize,
			"num_handles": len(handles),
		}).WithError(err).Error("failed to allocate message")
		return nil, oops.Wrapf(err, "allocating %d byte message", totalSize)
	}

	buf := info.buffer
	buf.Zero()
	header.Write(buf, name, flags, interfaceIDCount)
	buf.Allocate(payloadSize)

	return &Message{
		object:        obj,
		payloadBuffer: buf,
		handles:       handle.NewSet(),
		transferable:  true,
		serialized:    true,
	}, nil
}

// NewFromContext wraps ctx without serializing it.
func NewFromContext(ctx *UnserializedContext) (*Message, error) {
	obj, err := transport.CreateMessage(ctx)
	if err != nil {
		return nil, err
	}
	return &Message{
		object:  obj,
		data:    ctx.header[:],
		handles: handle.NewSet(),
	}, nil
}

// FromTransport rebuilds an envelope from a received object and takes
// ownership of it. If the object's contents cannot be extracted the
// returned message is empty; check IsNull before use.
func FromTransport(obj *transport.Object) *Message {
	m := &Message{handles: handle.NewSet()}
	if obj == nil {
		return m
	}

	ctx, err := obj.Context()
	if err == nil {
		uc, ok := ctx.(*UnserializedContext)
		if !ok {
			log.WithField("at", "message.FromTransport").Warn("object carries a foreign context")
			_ = obj.Close()
			return m
		}
		// The view is V1-shaped: unserialized messages may need a request
		// id but never carry associated interface ids.
		m.data = uc.header[:]
		m.transferable = true
		m.object = obj
		return m
	}

	data, n, err := obj.SerializedContents(nil)
	var handles []handle.Handle
	if errors.Is(err, transport.ErrResourceExhausted) {
		handles = make([]handle.Handle, n)
		data, n, err = obj.SerializedContents(handles)
	} else {
		// No handles, so retransmitting it is safe.
		m.transferable = true
	}
	if err != nil {
		log.WithFields(logger.Fields{
			"at": "message.FromTransport",
		}).WithError(err).Warn("failed to extract serialized message contents")
		_ = obj.Close()
		return m
	}

	m.handles = handle.NewSet(handles[:n]...)
	m.data = data
	m.serialized = true
	m.object = obj
	return m
}

// IsNull reports whether the message holds nothing.
func (m *Message) IsNull() bool {
	return m == nil || m.object == nil
}

// Data returns the active byte view: the serialized message, or the
// header-only view of an unserialized one.
func (m *Message) Data() []byte {
	if m.payloadBuffer != nil {
		return m.payloadBuffer.Bytes()
	}
	return m.data
}

// DataNumBytes returns len(Data()).
func (m *Message) DataNumBytes() int {
	return len(m.Data())
}

// Transferable reports whether TakeTransportHandle may be called.
func (m *Message) Transferable() bool {
	return m.transferable
}

// Serialized reports whether bytes in wire format back the message.
func (m *Message) Serialized() bool {
	return m.serialized
}

// Validate decodes the header and checks every offset against the message
// size. Accessors below panic on the conditions Validate reports.
func (m *Message) Validate() error {
	_, err := header.Decode(m.Data())
	return err
}

func (m *Message) mustHeader() header.Header {
	h, err := header.Decode(m.Data())
	if err != nil {
		util.Panicf("message: protocol violation in header: %v", err)
	}
	return h
}

// Header returns the decoded header.
func (m *Message) Header() header.Header {
	return m.mustHeader()
}

// Version returns the header version.
func (m *Message) Version() uint32 {
	return m.mustHeader().Version
}

// Name returns the message name.
func (m *Message) Name() uint32 {
	return m.mustHeader().Name
}

// Flags returns the header flags.
func (m *Message) Flags() uint32 {
	return m.mustHeader().Flags
}

// HasFlag reports whether every bit of flag is set.
func (m *Message) HasFlag(flag uint32) bool {
	return m.Flags()&flag == flag
}

// ExpectsResponse reports FlagExpectsResponse.
func (m *Message) ExpectsResponse() bool {
	return m.HasFlag(header.FlagExpectsResponse)
}

// IsResponse reports FlagIsResponse.
func (m *Message) IsResponse() bool {
	return m.HasFlag(header.FlagIsResponse)
}

// IsSync reports FlagIsSync.
func (m *Message) IsSync() bool {
	return m.HasFlag(header.FlagIsSync)
}

// RequestID returns the request id. Only V1+ headers carry one.
func (m *Message) RequestID() uint64 {
	h := m.mustHeader()
	if h.Version < header.Version1 {
		util.Panicf("message: request_id read from a V%d header", h.Version)
	}
	return h.RequestID
}

// SetRequestID stores id in the header (or the captured header of an
// unserialized message).
func (m *Message) SetRequestID(id uint64) {
	header.SetRequestID(m.Data(), id)
}

// Payload returns the payload bytes. For V0 and V1 the payload directly
// follows the header; for V2 it starts at the header's payload pointer and
// ends at the interface-id table, or at the end of the message if there is
// no table. The slice aliases the message; writes go to the wire bytes.
func (m *Message) Payload() []byte {
	h := m.mustHeader()
	data := m.Data()
	if h.Version < header.Version2 {
		return data[h.NumBytes:]
	}
	end := uint64(len(data))
	if h.PayloadInterfaceIDOffset != 0 {
		end = h.PayloadInterfaceIDOffset
	}
	return data[h.PayloadOffset:end:end]
}

// PayloadNumBytes returns len(Payload()). A payload that does not fit in
// 32 bits is a protocol violation.
func (m *Message) PayloadNumBytes() uint32 {
	n := len(m.Payload())
	if uint64(n) > math.MaxUint32 {
		util.Panicf("message: payload of %d bytes exceeds 32 bits", n)
	}
	return uint32(n)
}

// PayloadInterfaceIDs returns the interface-id table, or nil if the message
// has none.
func (m *Message) PayloadInterfaceIDs() header.InterfaceIDs {
	h := m.mustHeader()
	if h.Version < header.Version2 || h.PayloadInterfaceIDOffset == 0 {
		return nil
	}
	ids, err := header.ReadInterfaceIDs(m.Data(), h.PayloadInterfaceIDOffset)
	if err != nil {
		util.Panicf("message: protocol violation in interface id table: %v", err)
	}
	return ids
}

// PayloadNumInterfaceIDs returns the number of interface-id table entries.
func (m *Message) PayloadNumInterfaceIDs() uint32 {
	return uint32(m.PayloadInterfaceIDs().Len())
}

// Handles returns the handles received with the message. Move them out
// with Take; the set is empty afterwards.
func (m *Message) Handles() *handle.Set {
	if m.handles == nil {
		m.handles = handle.NewSet()
	}
	return m.handles
}

// TakeTransportHandle hands the transport object to the caller and resets
// the message. Pending associated endpoints must have been serialized and
// the message must be transferable.
func (m *Message) TakeTransportHandle() *transport.Object {
	if len(m.associatedEndpointHandles) > 0 {
		util.Panicf("message: %d associated endpoint handles not serialized before transfer", len(m.associatedEndpointHandles))
	}
	if !m.transferable {
		util.Panicf("message: taking a non-transferable message")
	}
	obj := m.object
	if m.payloadBuffer != nil {
		if err := obj.Truncate(m.payloadBuffer.Cursor()); err != nil {
			util.Panicf("message: cannot trim message to %d bytes: %v", m.payloadBuffer.Cursor(), err)
		}
	}
	m.object = nil
	m.Reset()
	return obj
}

// SerializeIfNecessary forces an unserialized message into wire form and
// rebuilds the envelope from the result. It is a no-op on serialized
// messages. Pending associated endpoint handles stay with the message.
func (m *Message) SerializeIfNecessary() error {
	if m.object == nil {
		util.Panicf("message: SerializeIfNecessary on an empty message")
	}
	err := m.object.Serialize()
	if errors.Is(err, transport.ErrFailedPrecondition) {
		return nil
	}
	if err != nil {
		return err
	}
	obj := m.object
	pending := m.associatedEndpointHandles
	m.object = nil
	*m = *FromTransport(obj)
	m.associatedEndpointHandles = pending
	return nil
}

// TakeUnserializedContext detaches the message's context if it carries
// tag. On success the caller owns the context and the message is reset.
// It returns nil for serialized messages and for other tags.
func (m *Message) TakeUnserializedContext(tag *Tag) *UnserializedContext {
	if m.object == nil {
		util.Panicf("message: TakeUnserializedContext on an empty message")
	}
	ctx, err := m.object.Context()
	if err != nil {
		return nil
	}
	uc, ok := ctx.(*UnserializedContext)
	if !ok || uc.tag != tag {
		return nil
	}
	if _, err := m.object.ReleaseContext(); err != nil {
		util.Panicf("message: context vanished while detaching: %v", err)
	}
	m.Reset()
	return uc
}

// NotifyBadMessage reports the message as malformed to its sender.
func (m *Message) NotifyBadMessage(reason string) error {
	if m.object == nil {
		util.Panicf("message: NotifyBadMessage on an empty message")
	}
	return m.object.NotifyBadMessage(reason)
}

// Reset releases everything the message holds and leaves it empty.
func (m *Message) Reset() {
	if m.object != nil {
		if err := m.object.Close(); err != nil {
			log.WithError(err).Warn("failed to release transport object")
		}
		m.object = nil
	}
	if m.handles != nil && !m.handles.Moved() {
		if err := m.handles.Close(); err != nil {
			log.WithError(err).Warn("failed to close message handles")
		}
	}
	for _, h := range m.associatedEndpointHandles {
		_ = h.Close()
	}
	*m = Message{}
}

// Close is Reset for use with defer.
func (m *Message) Close() error {
	m.Reset()
	return nil
}

// take moves the message's contents into a new Message and leaves m empty
// without releasing anything.
func (m *Message) take() *Message {
	moved := *m
	*m = Message{}
	return &moved
}
