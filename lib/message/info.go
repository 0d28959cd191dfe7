package message

import (
	"github.com/go-i2p/go-envelope/lib/buffer"
	"github.com/go-i2p/go-envelope/lib/handle"
)

// messageInfo is the short-lived context used to make the transport
// allocate storage for an eagerly serialized message.
type messageInfo struct {
	totalSize int
	handles   []handle.Handle
	buffer    *buffer.Buffer
}

func (i *messageInfo) SerializedSize() (int, int) {
	return i.totalSize, len(i.handles)
}

func (i *messageInfo) SerializeHandles() []handle.Handle {
	out := i.handles
	i.handles = nil
	return out
}

func (i *messageInfo) SerializePayload(storage []byte) {
	i.buffer = buffer.New(storage)
}

func (i *messageInfo) Destroy() {}
