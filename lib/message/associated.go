package message

import (
	"github.com/go-i2p/go-envelope/lib/associated"
	"github.com/go-i2p/go-envelope/lib/header"
	"github.com/go-i2p/go-envelope/lib/util"
	"github.com/go-i2p/logger"
)

// AddAssociatedEndpointHandle queues h to be resolved to an interface id
// by SerializeAssociatedEndpointHandles.
func (m *Message) AddAssociatedEndpointHandle(h *associated.EndpointHandle) {
	m.associatedEndpointHandles = append(m.associatedEndpointHandles, h)
}

// AssociatedEndpointHandles returns the pending (outgoing) or materialized
// (incoming) associated endpoint handles.
func (m *Message) AssociatedEndpointHandles() []*associated.EndpointHandle {
	return m.associatedEndpointHandles
}

// TakeAssociatedEndpointHandles moves the associated endpoint handles out.
func (m *Message) TakeAssociatedEndpointHandles() []*associated.EndpointHandle {
	out := m.associatedEndpointHandles
	m.associatedEndpointHandles = nil
	return out
}

// SerializeAssociatedEndpointHandles resolves every pending associated
// endpoint to an interface id through controller and writes the ids into a
// new interface-id table. It is a no-op without pending handles.
//
// The table lives in the room New reserved for interfaceIDCount entries;
// queueing more endpoints than were reserved is a programming error.
func (m *Message) SerializeAssociatedEndpointHandles(controller associated.Controller) {
	if len(m.associatedEndpointHandles) == 0 {
		return
	}
	h := m.mustHeader()
	if h.Version < header.Version2 {
		util.Panicf("message: associated endpoints need a V2 header, have V%d", h.Version)
	}
	if h.PayloadInterfaceIDOffset != 0 {
		util.Panicf("message: interface id table already written")
	}
	if m.payloadBuffer == nil {
		util.Panicf("message: associated endpoints on a message without a payload buffer")
	}
	pending := len(m.associatedEndpointHandles)
	if room := m.payloadBuffer.Remaining(); header.ArraySize(pending) > room {
		reserved := 0
		if room >= header.ArrayHeaderSize {
			reserved = (room - header.ArrayHeaderSize) / header.InterfaceIDSize
		}
		util.Panicf("message: %d associated endpoints pending, room reserved for %d", pending, reserved)
	}

	offset, ids := header.WriteInterfaceIDArray(m.payloadBuffer, pending)
	header.SetPayloadInterfaceIDs(m.Data(), offset)
	for i, endpoint := range m.associatedEndpointHandles {
		if !endpoint.PendingAssociation() {
			util.Panicf("message: associated endpoint %d is not pending association", i)
		}
		ids.Set(i, controller.AssociateInterface(endpoint))
	}
	log.WithFields(logger.Fields{
		"at":    "(Message) SerializeAssociatedEndpointHandles",
		"name":  h.Name,
		"count": ids.Len(),
	}).Debug("serialized associated endpoints")
	m.associatedEndpointHandles = nil
}

// DeserializeAssociatedEndpointHandles materializes a local endpoint for
// every id in the interface-id table and marks each entry consumed. A
// valid id that fails to materialize makes the call return false, but the
// remaining ids are still processed.
func (m *Message) DeserializeAssociatedEndpointHandles(controller associated.Controller) bool {
	m.associatedEndpointHandles = nil

	ids := m.PayloadInterfaceIDs()
	if ids.Len() == 0 {
		return true
	}

	m.associatedEndpointHandles = make([]*associated.EndpointHandle, 0, ids.Len())
	result := true
	for i := 0; i < ids.Len(); i++ {
		id := ids.At(i)
		endpoint := controller.CreateLocalEndpointHandle(id)
		if header.IsValidInterfaceID(id) && !endpoint.IsValid() {
			log.WithFields(logger.Fields{
				"at":           "(Message) DeserializeAssociatedEndpointHandles",
				"interface_id": id,
				"index":        i,
			}).Warn("failed to materialize associated endpoint")
			result = false
		}
		m.associatedEndpointHandles = append(m.associatedEndpointHandles, endpoint)
		ids.Set(i, header.InvalidInterfaceID)
	}
	return result
}
