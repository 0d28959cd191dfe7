package associated

import (
	"sync"

	"github.com/go-i2p/go-envelope/lib/header"
	"github.com/go-i2p/logger"
	"github.com/google/uuid"
)

var log = logger.GetGoI2PLogger()

// NamespaceBit marks ids allocated by the second group of a pair.
const NamespaceBit uint32 = 0x80000000

// Controller is the association authority a message consults when its
// associated endpoints cross the wire.
type Controller interface {
	// AssociateInterface consumes a pending handle and returns the id the
	// peer will use to claim it.
	AssociateInterface(h *EndpointHandle) uint32
	// CreateLocalEndpointHandle claims id and returns a local handle, or nil
	// if id cannot be materialized.
	CreateLocalEndpointHandle(id uint32) *EndpointHandle
}

// Compile-time interface satisfaction check
var _ Controller = (*Group)(nil)

type registry struct {
	mu      sync.Mutex
	pending map[uint32]string
}

// Group is one side of a connection's associated-interface namespace.
type Group struct {
	id        uuid.UUID
	registry  *registry
	namespace uint32

	mu     sync.Mutex
	nextID uint32
}

// NewGroupPair returns the two ends of one connection.
func NewGroupPair() (*Group, *Group) {
	r := &registry{pending: make(map[uint32]string)}
	a := &Group{id: uuid.New(), registry: r, nextID: 1}
	b := &Group{id: uuid.New(), registry: r, namespace: NamespaceBit, nextID: 1}
	log.WithFields(logger.Fields{
		"at":      "associated.NewGroupPair",
		"group_a": a.id.String(),
		"group_b": b.id.String(),
	}).Debug("created association group pair")
	return a, b
}

// ID identifies the group in logs.
func (g *Group) ID() uuid.UUID {
	return g.id
}

// AssociateInterface assigns the next id in this group's namespace to h.
// Handles that are not pending association yield header.InvalidInterfaceID.
func (g *Group) AssociateInterface(h *EndpointHandle) uint32 {
	if !h.PendingAssociation() {
		log.WithFields(logger.Fields{
			"at":    "(Group) AssociateInterface",
			"group": g.id.String(),
		}).Warn("handle is not pending association")
		return header.InvalidInterfaceID
	}

	g.mu.Lock()
	id := g.nextID | g.namespace
	g.nextID++
	g.mu.Unlock()

	g.registry.mu.Lock()
	g.registry.pending[id] = h.name
	g.registry.mu.Unlock()

	h.pending = false
	h.id = id
	return id
}

// CreateLocalEndpointHandle claims id. Every id can be claimed once.
func (g *Group) CreateLocalEndpointHandle(id uint32) *EndpointHandle {
	if !header.IsValidInterfaceID(id) {
		return nil
	}
	g.registry.mu.Lock()
	name, ok := g.registry.pending[id]
	delete(g.registry.pending, id)
	g.registry.mu.Unlock()

	if !ok {
		log.WithFields(logger.Fields{
			"at":           "(Group) CreateLocalEndpointHandle",
			"group":        g.id.String(),
			"interface_id": id,
		}).Warn("unknown interface id")
		return nil
	}
	return &EndpointHandle{name: name, id: id}
}

// Revoke forgets an id that has not been claimed yet.
func (g *Group) Revoke(id uint32) bool {
	g.registry.mu.Lock()
	defer g.registry.mu.Unlock()
	_, ok := g.registry.pending[id]
	delete(g.registry.pending, id)
	return ok
}
