package notify

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event names on the wire. Delivery is at-most-once per connected client;
// the action log is the durable source of truth.
const (
	EventSwapStatusChanged = "swap:status-changed"
	EventNotificationNew   = "notification:new"
)

var (
	ErrClientNotFound = errors.New("SSE client not found")
	ErrChannelFull    = errors.New("SSE message channel full")
)

// MatchGroup is the room key for a match's status stream.
func MatchGroup(matchID uuid.UUID) string {
	return "match:" + matchID.String()
}

// Hub pushes messages to connected clients. Best-effort only: implementations
// must never block the caller.
type Hub interface {
	BroadcastToUser(userID string, msg *Message)
	BroadcastToGroup(group string, msg *Message)
}

// Message is one event pushed to clients.
type Message struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage builds a message with a fresh id.
func NewMessage(event string, data json.RawMessage) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// StatusChanged is the payload for swap:status-changed.
type StatusChanged struct {
	MatchID            uuid.UUID `json:"matchId"`
	OfferID            uuid.UUID `json:"offerId"`
	Status             string    `json:"status"`
	InitiatorConfirmed bool      `json:"initiatorConfirmed"`
	TargetConfirmed    bool      `json:"targetConfirmed"`
}

// UserNotification is the payload for notification:new.
type UserNotification struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// Client is an active SSE connection.
type Client struct {
	ClientID    string
	UserID      string
	Groups      []string
	ConnectedAt time.Time
	MessageChan chan *Message
}

// NewClient creates a client with a buffered message channel.
func NewClient(clientID, userID string, groups []string) *Client {
	return &Client{
		ClientID:    clientID,
		UserID:      userID,
		Groups:      groups,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *Message, 100),
	}
}

// Close closes the client's message channel.
func (c *Client) Close() {
	close(c.MessageChan)
}
