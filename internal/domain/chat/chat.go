package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Room is a conversation between the two participants of an accepted match.
// Created best-effort after acceptance commits; the exchange core never
// depends on it.
type Room struct {
	ID        int64     `json:"id"`
	RoomID    uuid.UUID `json:"roomId"`
	MatchID   uuid.UUID `json:"matchId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewRoom builds a room for a match.
func NewRoom(matchID uuid.UUID) *Room {
	return &Room{
		RoomID:    uuid.New(),
		MatchID:   matchID,
		CreatedAt: time.Now().UTC(),
	}
}

// Repository defines persistence for chat rooms.
type Repository interface {
	// GetOrCreateByMatch reuses the room for the match when one exists.
	GetOrCreateByMatch(ctx context.Context, matchID uuid.UUID) (*Room, error)
}
