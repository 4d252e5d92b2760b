package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/channelswap/channelswap/internal/domain/review"
)

// ReviewRepository implements review.Repository.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

const reviewColumns = `id, review_id, match_id, from_channel_id, rating, comment, created_at`

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO reviews
		(review_id, match_id, from_channel_id, rating, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, rv.ReviewID, rv.MatchID, rv.FromChannelID, rv.Rating, rv.Comment, rv.CreatedAt)
	return err
}

func (r *ReviewRepository) GetByMatchAndChannel(ctx context.Context, matchID, fromChannelID uuid.UUID) (*review.Review, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE match_id=$1 AND from_channel_id=$2
	`, matchID, fromChannelID)
	return scanReview(row)
}

func (r *ReviewRepository) ListByMatch(ctx context.Context, matchID uuid.UUID) ([]*review.Review, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE match_id=$1
		ORDER BY created_at ASC
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*review.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func scanReview(row pgx.Row) (*review.Review, error) {
	var rv review.Review
	if err := row.Scan(&rv.ID, &rv.ReviewID, &rv.MatchID, &rv.FromChannelID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rv, nil
}
