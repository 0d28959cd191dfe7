package message

import (
	"github.com/go-i2p/go-envelope/lib/buffer"
	"github.com/go-i2p/go-envelope/lib/handle"
	"github.com/go-i2p/go-envelope/lib/header"
	"github.com/go-i2p/go-envelope/lib/transport"
	"github.com/go-i2p/go-envelope/lib/util"
	"github.com/samber/oops"
)

// Tag identifies the concrete value type behind an UnserializedContext.
// Compare tags by pointer.
type Tag struct {
	name string
}

// NewTag returns a fresh tag. Create one per value type, at package scope.
func NewTag(name string) *Tag {
	return &Tag{name: name}
}

func (t *Tag) String() string {
	return t.name
}

// Value is the typed content of an unserialized message.
type Value interface {
	// SerializedSize returns the payload size and handle count.
	SerializedSize() (payloadBytes, numHandles int)
	// SerializeHandles moves the value's handles out, in placeholder order.
	SerializeHandles() []handle.Handle
	// SerializePayload writes the payload into dst, which is payloadBytes long.
	SerializePayload(dst []byte)
}

// Destroyer is implemented by values that hold resources of their own.
type Destroyer interface {
	Destroy()
}

// Compile-time interface satisfaction check
var _ transport.Context = (*UnserializedContext)(nil)

// UnserializedContext carries a message in typed form until it has to be
// laid out as bytes.
type UnserializedContext struct {
	tag       *Tag
	header    [header.SizeV1]byte
	value     Value
	destroyed bool
}

// NewUnserializedContext captures name and flags eagerly; the payload is
// produced by value only if serialization is forced. Flags that no header
// can carry are rejected with header.ErrInconsistentFlags.
func NewUnserializedContext(tag *Tag, name, flags uint32, value Value) (*UnserializedContext, error) {
	if err := header.CheckFlags(flags); err != nil {
		return nil, oops.Wrapf(err, "unserialized message %d with flags %s", name, header.FlagNames(flags))
	}
	c := &UnserializedContext{tag: tag, value: value}
	header.Header{
		NumBytes: header.SizeV1,
		Version:  header.Version1,
		Name:     name,
		Flags:    flags,
	}.Encode(c.header[:])
	return c, nil
}

// Tag returns the context's type tag.
func (c *UnserializedContext) Tag() *Tag {
	return c.tag
}

// Value returns the typed content.
func (c *UnserializedContext) Value() Value {
	return c.value
}

func (c *UnserializedContext) captured() header.Header {
	h, err := header.Decode(c.header[:])
	if err != nil {
		util.Panicf("message: unserialized context header corrupt: %v", err)
	}
	return h
}

// MessageName returns the captured message name.
func (c *UnserializedContext) MessageName() uint32 {
	return c.captured().Name
}

// MessageFlags returns the captured flags.
func (c *UnserializedContext) MessageFlags() uint32 {
	return c.captured().Flags
}

// SerializedSize implements transport.Context.
func (c *UnserializedContext) SerializedSize() (int, int) {
	payloadBytes, numHandles := c.value.SerializedSize()
	flags := c.MessageFlags()
	size := header.SizeForVersion(header.SelectVersion(flags, 0)) + payloadBytes
	return size, numHandles
}

// SerializeHandles implements transport.Context.
func (c *UnserializedContext) SerializeHandles() []handle.Handle {
	return c.value.SerializeHandles()
}

// SerializePayload implements transport.Context. The request id is copied
// from the captured header since it may be assigned after construction.
func (c *UnserializedContext) SerializePayload(storage []byte) {
	captured := c.captured()
	buf := buffer.New(storage)
	header.Write(buf, captured.Name, captured.Flags, 0)
	if header.ResponseFlags(captured.Flags) {
		header.SetRequestID(storage, captured.RequestID)
	}
	_, payload := buf.Allocate(buf.Remaining())
	c.value.SerializePayload(payload)
}

// Destroy implements transport.Context. Destroying twice is a programming error.
func (c *UnserializedContext) Destroy() {
	if c.destroyed {
		util.Panicf("message: unserialized context %s destroyed twice", c.tag)
	}
	c.destroyed = true
	if d, ok := c.value.(Destroyer); ok {
		d.Destroy()
	}
}

// Destroyed reports whether Destroy has run.
func (c *UnserializedContext) Destroyed() bool {
	return c.destroyed
}
