package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/chat"
)

// ChatRepository implements chat.Repository over the store.
type ChatRepository struct {
	store *Store
}

func NewChatRepository(store *Store) *ChatRepository {
	return &ChatRepository{store: store}
}

func (r *ChatRepository) GetOrCreateByMatch(ctx context.Context, matchID uuid.UUID) (*chat.Room, error) {
	defer r.store.lock(ctx)()
	if room, ok := r.store.data.rooms[matchID]; ok {
		cp := *room
		return &cp, nil
	}
	room := chat.NewRoom(matchID)
	room.ID = r.store.nextID()
	r.store.data.rooms[matchID] = room
	cp := *room
	return &cp, nil
}
