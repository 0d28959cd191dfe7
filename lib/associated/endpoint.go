package associated

import (
	"github.com/go-i2p/go-envelope/lib/header"
)

// EndpointHandle refers to one end of an associated interface.
type EndpointHandle struct {
	name    string
	id      uint32
	pending bool
	closed  bool
}

// NewPendingEndpointHandle returns a handle that still needs to be
// associated with a group before it can be sent.
func NewPendingEndpointHandle(name string) *EndpointHandle {
	return &EndpointHandle{name: name, id: header.InvalidInterfaceID, pending: true}
}

// Name is the interface name the handle was created for.
func (h *EndpointHandle) Name() string {
	return h.name
}

// ID is the interface id, or header.InvalidInterfaceID while pending.
func (h *EndpointHandle) ID() uint32 {
	return h.id
}

// PendingAssociation reports whether the handle still awaits an id.
func (h *EndpointHandle) PendingAssociation() bool {
	return h != nil && h.pending && !h.closed
}

// IsValid reports whether the handle refers to a live endpoint.
func (h *EndpointHandle) IsValid() bool {
	if h == nil || h.closed {
		return false
	}
	return h.pending || header.IsValidInterfaceID(h.id)
}

// Close invalidates the handle.
func (h *EndpointHandle) Close() error {
	if h != nil {
		h.closed = true
	}
	return nil
}
