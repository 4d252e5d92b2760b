package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/channelswap/channelswap/internal/domain/chat"
)

// ChatRepository implements chat.Repository.
type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) GetOrCreateByMatch(ctx context.Context, matchID uuid.UUID) (*chat.Room, error) {
	room := chat.NewRoom(matchID)
	row := db(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO chat_rooms (room_id, match_id, created_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (match_id) DO UPDATE SET match_id=EXCLUDED.match_id
		RETURNING id, room_id, match_id, created_at
	`, room.RoomID, room.MatchID, room.CreatedAt)

	var out chat.Room
	if err := row.Scan(&out.ID, &out.RoomID, &out.MatchID, &out.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
