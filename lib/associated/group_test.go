package associated

import (
	"testing"

	"github.com/go-i2p/go-envelope/lib/header"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociateThenClaim(t *testing.T) {
	local, remote := NewGroupPair()
	assert.NotEqual(t, local.ID(), remote.ID())

	h := NewPendingEndpointHandle("echo.Pinger")
	require.True(t, h.PendingAssociation())
	require.True(t, h.IsValid())

	id := local.AssociateInterface(h)
	assert.True(t, header.IsValidInterfaceID(id))
	assert.Zero(t, id&NamespaceBit)
	assert.False(t, h.PendingAssociation())
	assert.Equal(t, id, h.ID())

	claimed := remote.CreateLocalEndpointHandle(id)
	require.NotNil(t, claimed)
	assert.Equal(t, "echo.Pinger", claimed.Name())
	assert.True(t, claimed.IsValid())

	assert.Nil(t, remote.CreateLocalEndpointHandle(id), "ids are claimed once")
}

func TestNamespacesDoNotCollide(t *testing.T) {
	a, b := NewGroupPair()
	idA := a.AssociateInterface(NewPendingEndpointHandle("a"))
	idB := b.AssociateInterface(NewPendingEndpointHandle("b"))
	assert.NotEqual(t, idA, idB)
	assert.Equal(t, NamespaceBit, idB&NamespaceBit)
}

func TestAssociateRejectsNonPending(t *testing.T) {
	g, _ := NewGroupPair()
	h := NewPendingEndpointHandle("x")
	g.AssociateInterface(h)
	assert.Equal(t, header.InvalidInterfaceID, g.AssociateInterface(h))

	closed := NewPendingEndpointHandle("y")
	require.NoError(t, closed.Close())
	assert.False(t, closed.IsValid())
	assert.Equal(t, header.InvalidInterfaceID, g.AssociateInterface(closed))
}

func TestRevoke(t *testing.T) {
	a, b := NewGroupPair()
	id := a.AssociateInterface(NewPendingEndpointHandle("x"))
	assert.True(t, a.Revoke(id))
	assert.False(t, a.Revoke(id))
	assert.Nil(t, b.CreateLocalEndpointHandle(id))
	assert.Nil(t, b.CreateLocalEndpointHandle(header.InvalidInterfaceID))
}
