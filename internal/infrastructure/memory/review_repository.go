package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/review"
)

// ReviewRepository implements review.Repository over the store.
type ReviewRepository struct {
	store *Store
}

func NewReviewRepository(store *Store) *ReviewRepository {
	return &ReviewRepository{store: store}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	defer r.store.lock(ctx)()
	cp := *rv
	cp.ID = r.store.nextID()
	r.store.data.reviews = append(r.store.data.reviews, &cp)
	rv.ID = cp.ID
	return nil
}

func (r *ReviewRepository) GetByMatchAndChannel(ctx context.Context, matchID, fromChannelID uuid.UUID) (*review.Review, error) {
	defer r.store.lock(ctx)()
	for _, rv := range r.store.data.reviews {
		if rv.MatchID == matchID && rv.FromChannelID == fromChannelID {
			cp := *rv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *ReviewRepository) ListByMatch(ctx context.Context, matchID uuid.UUID) ([]*review.Review, error) {
	defer r.store.lock(ctx)()
	var out []*review.Review
	for _, rv := range r.store.data.reviews {
		if rv.MatchID == matchID {
			cp := *rv
			out = append(out, &cp)
		}
	}
	return out, nil
}
