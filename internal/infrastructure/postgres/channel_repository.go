package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/channelswap/channelswap/internal/domain/channel"
)

// ChannelRepository implements channel.Repository.
type ChannelRepository struct {
	pool *pgxpool.Pool
}

func NewChannelRepository(pool *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{pool: pool}
}

const channelColumns = `id, channel_id, owner_user_id, title, subscribers, active, flagged, demo, created_at, updated_at`

func (r *ChannelRepository) GetByID(ctx context.Context, channelID uuid.UUID) (*channel.Channel, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+channelColumns+`
		FROM channels
		WHERE channel_id=$1
	`, channelID)
	return scanChannel(row)
}

func (r *ChannelRepository) GetByIDForUpdate(ctx context.Context, channelID uuid.UUID) (*channel.Channel, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+channelColumns+`
		FROM channels
		WHERE channel_id=$1
		FOR UPDATE
	`, channelID)
	return scanChannel(row)
}

func (r *ChannelRepository) ListIDsByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT channel_id
		FROM channels
		WHERE owner_user_id=$1
		ORDER BY created_at ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *ChannelRepository) ListEligibleIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT channel_id
		FROM channels
		WHERE active AND NOT flagged AND NOT demo
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanChannel(row pgx.Row) (*channel.Channel, error) {
	var c channel.Channel
	if err := row.Scan(&c.ID, &c.ChannelID, &c.OwnerUserID, &c.Title, &c.Subscribers, &c.Active, &c.Flagged, &c.Demo, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
