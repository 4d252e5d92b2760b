package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/channelswap/channelswap/internal/domain/match"
)

// MatchRepository implements match.Repository.
type MatchRepository struct {
	pool *pgxpool.Pool
}

func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

const matchColumns = `id, match_id, offer_id, initiator_channel_id, target_channel_id, status, initiator_confirmed, target_confirmed, score, respond_by, completed_at, created_at, updated_at`

func (r *MatchRepository) Create(ctx context.Context, m *match.Match) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO matches
		(match_id, offer_id, initiator_channel_id, target_channel_id, status, initiator_confirmed, target_confirmed, score, respond_by, completed_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, m.MatchID, m.OfferID, m.InitiatorChannelID, m.TargetChannelID, m.Status, m.InitiatorConfirmed, m.TargetConfirmed, m.Score, m.RespondBy, m.CompletedAt, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID uuid.UUID) (*match.Match, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE match_id=$1
	`, matchID)
	return scanMatch(row)
}

func (r *MatchRepository) GetByIDForUpdate(ctx context.Context, matchID uuid.UUID) (*match.Match, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE match_id=$1
		FOR UPDATE
	`, matchID)
	return scanMatch(row)
}

func (r *MatchRepository) GetActiveByOfferAndInitiatorForUpdate(ctx context.Context, offerID, initiatorChannelID uuid.UUID) (*match.Match, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE offer_id=$1 AND initiator_channel_id=$2 AND status IN ('pending','accepted')
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`, offerID, initiatorChannelID)
	return scanMatch(row)
}

func (r *MatchRepository) UpdateStatus(ctx context.Context, matchID uuid.UUID, status match.Status, updatedAt time.Time) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE matches
		SET status=$1, updated_at=$2
		WHERE match_id=$3
	`, status, updatedAt, matchID)
	return err
}

func (r *MatchRepository) SetConfirmed(ctx context.Context, matchID uuid.UUID, side match.Side, updatedAt time.Time) error {
	column := "initiator_confirmed"
	if side == match.SideTarget {
		column = "target_confirmed"
	}
	_, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE matches
		SET `+column+`=TRUE, updated_at=$1
		WHERE match_id=$2
	`, updatedAt, matchID)
	return err
}

func (r *MatchRepository) MarkCompleted(ctx context.Context, matchID uuid.UUID, completedAt time.Time) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE matches
		SET status='completed', completed_at=$1, updated_at=$1
		WHERE match_id=$2
	`, completedAt, matchID)
	return err
}

func (r *MatchRepository) ExtendRespondBy(ctx context.Context, matchID uuid.UUID, respondBy, updatedAt time.Time) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE matches
		SET respond_by=$1, updated_at=$2
		WHERE match_id=$3
	`, respondBy, updatedAt, matchID)
	return err
}

func (r *MatchRepository) CountActiveByOffer(ctx context.Context, offerID uuid.UUID) (int, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(1)
		FROM matches
		WHERE offer_id=$1 AND status IN ('pending','accepted')
	`, offerID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MatchRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, status *match.Status, limit, offset int) ([]*match.Match, error) {
	var query string
	var args []any
	if status != nil {
		query = `
			SELECT ` + matchColumns + `
			FROM matches
			WHERE (initiator_channel_id=$1 OR target_channel_id=$1) AND status=$2
			ORDER BY created_at DESC
			LIMIT $3 OFFSET $4
		`
		args = []any{channelID, *status, limit, offset}
	} else {
		query = `
			SELECT ` + matchColumns + `
			FROM matches
			WHERE (initiator_channel_id=$1 OR target_channel_id=$1)
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`
		args = []any{channelID, limit, offset}
	}

	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*match.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMatch(row pgx.Row) (*match.Match, error) {
	var m match.Match
	if err := row.Scan(&m.ID, &m.MatchID, &m.OfferID, &m.InitiatorChannelID, &m.TargetChannelID, &m.Status, &m.InitiatorConfirmed, &m.TargetConfirmed, &m.Score, &m.RespondBy, &m.CompletedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
