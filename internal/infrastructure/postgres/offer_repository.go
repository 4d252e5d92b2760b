package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/channelswap/channelswap/internal/domain/offer"
)

// OfferRepository implements offer.Repository.
type OfferRepository struct {
	pool *pgxpool.Pool
}

func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

const offerColumns = `id, offer_id, channel_id, kind, niche, language, min_subs, max_subs, status, created_at, updated_at`

func (r *OfferRepository) Create(ctx context.Context, o *offer.Offer) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO offers
		(offer_id, channel_id, kind, niche, language, min_subs, max_subs, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, o.OfferID, o.ChannelID, o.Kind, o.Niche, o.Language, o.MinSubs, o.MaxSubs, o.Status, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *OfferRepository) GetByID(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+offerColumns+`
		FROM offers
		WHERE offer_id=$1
	`, offerID)
	return scanOffer(row)
}

func (r *OfferRepository) GetByIDForUpdate(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+offerColumns+`
		FROM offers
		WHERE offer_id=$1
		FOR UPDATE
	`, offerID)
	return scanOffer(row)
}

func (r *OfferRepository) UpdateStatus(ctx context.Context, offerID uuid.UUID, status offer.Status, updatedAt time.Time) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE offers
		SET status=$1, updated_at=$2
		WHERE offer_id=$3
	`, status, updatedAt, offerID)
	return err
}

func (r *OfferRepository) Delete(ctx context.Context, offerID uuid.UUID) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		DELETE FROM offers
		WHERE offer_id=$1
	`, offerID)
	return err
}

func (r *OfferRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, limit, offset int) ([]*offer.Offer, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+offerColumns+`
		FROM offers
		WHERE channel_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, channelID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OfferRepository) ListOpen(ctx context.Context, excludeChannelID uuid.UUID, limit, offset int) ([]*offer.Offer, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+offerColumns+`
		FROM offers
		WHERE status='open' AND channel_id <> $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, excludeChannelID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OfferRepository) ChannelIDsWithOffers(ctx context.Context, channelIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT DISTINCT channel_id
		FROM offers
		WHERE channel_id = ANY($1)
	`, channelIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]bool, len(channelIDs))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func scanOffer(row pgx.Row) (*offer.Offer, error) {
	var o offer.Offer
	if err := row.Scan(&o.ID, &o.OfferID, &o.ChannelID, &o.Kind, &o.Niche, &o.Language, &o.MinSubs, &o.MaxSubs, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
