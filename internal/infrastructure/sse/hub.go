package sse

import (
	"sync"

	"github.com/channelswap/channelswap/internal/domain/notify"
)

// Hub manages SSE clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*notify.Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*notify.Client),
	}
}

func (h *Hub) Register(client *notify.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) GetClient(clientID string) *notify.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[clientID]
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) BroadcastToUser(userID string, msg *notify.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID == userID {
			trySend(c, msg)
		}
	}
}

func (h *Hub) BroadcastToGroup(group string, msg *notify.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		for _, g := range c.Groups {
			if g == group {
				trySend(c, msg)
				break
			}
		}
	}
}

func (h *Hub) SendToClient(clientID string, msg *notify.Message) error {
	h.mu.RLock()
	c := h.clients[clientID]
	h.mu.RUnlock()
	if c == nil {
		return notify.ErrClientNotFound
	}
	if !trySend(c, msg) {
		return notify.ErrChannelFull
	}
	return nil
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

// trySend drops the message when the client's buffer is full.
func trySend(c *notify.Client, msg *notify.Message) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}
