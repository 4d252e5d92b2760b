package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelswap/channelswap/internal/domain/notify"
)

func TestBroadcastToUser(t *testing.T) {
	hub := NewHub()
	alice := notify.NewClient("c1", "alice", nil)
	bob := notify.NewClient("c2", "bob", nil)
	hub.Register(alice)
	hub.Register(bob)

	msg := notify.NewMessage(notify.EventNotificationNew, nil)
	hub.BroadcastToUser("alice", msg)

	require.Len(t, alice.MessageChan, 1)
	assert.Len(t, bob.MessageChan, 0)
	assert.Equal(t, msg.ID, (<-alice.MessageChan).ID)
}

func TestBroadcastToGroup(t *testing.T) {
	hub := NewHub()
	in := notify.NewClient("c1", "alice", []string{"match:abc"})
	out := notify.NewClient("c2", "bob", []string{"match:other"})
	hub.Register(in)
	hub.Register(out)

	hub.BroadcastToGroup("match:abc", notify.NewMessage(notify.EventSwapStatusChanged, nil))

	assert.Len(t, in.MessageChan, 1)
	assert.Len(t, out.MessageChan, 0)
}

func TestSendToClientFullBufferDrops(t *testing.T) {
	hub := NewHub()
	client := notify.NewClient("c1", "alice", nil)
	hub.Register(client)

	for i := 0; i < cap(client.MessageChan); i++ {
		require.NoError(t, hub.SendToClient("c1", notify.NewMessage("e", nil)))
	}
	err := hub.SendToClient("c1", notify.NewMessage("e", nil))
	assert.ErrorIs(t, err, notify.ErrChannelFull)
}

func TestSendToUnknownClient(t *testing.T) {
	hub := NewHub()
	err := hub.SendToClient("missing", notify.NewMessage("e", nil))
	assert.ErrorIs(t, err, notify.ErrClientNotFound)
}

func TestUnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	client := notify.NewClient("c1", "alice", nil)
	hub.Register(client)
	hub.Unregister("c1")

	_, open := <-client.MessageChan
	assert.False(t, open)
	assert.Equal(t, 0, hub.GetClientCount())
}
