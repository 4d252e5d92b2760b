package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/offer"
)

// OfferRepository implements offer.Repository over the store.
type OfferRepository struct {
	store *Store
}

func NewOfferRepository(store *Store) *OfferRepository {
	return &OfferRepository{store: store}
}

func (r *OfferRepository) Create(ctx context.Context, o *offer.Offer) error {
	defer r.store.lock(ctx)()
	cp := *o
	cp.ID = r.store.nextID()
	r.store.data.offers[cp.OfferID] = &cp
	o.ID = cp.ID
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	defer r.store.lock(ctx)()
	o, ok := r.store.data.offers[offerID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *OfferRepository) GetByIDForUpdate(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	return r.GetByID(ctx, offerID)
}

func (r *OfferRepository) UpdateStatus(ctx context.Context, offerID uuid.UUID, status offer.Status, updatedAt time.Time) error {
	defer r.store.lock(ctx)()
	if o, ok := r.store.data.offers[offerID]; ok {
		o.Status = status
		o.UpdatedAt = updatedAt
	}
	return nil
}

func (r *OfferRepository) Delete(ctx context.Context, offerID uuid.UUID) error {
	defer r.store.lock(ctx)()
	delete(r.store.data.offers, offerID)
	return nil
}

func (r *OfferRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, limit, offset int) ([]*offer.Offer, error) {
	defer r.store.lock(ctx)()
	var all []*offer.Offer
	for _, o := range r.store.data.offers {
		if o.ChannelID == channelID {
			cp := *o
			all = append(all, &cp)
		}
	}
	sortOffersNewestFirst(all)
	return page(all, limit, offset), nil
}

func (r *OfferRepository) ListOpen(ctx context.Context, excludeChannelID uuid.UUID, limit, offset int) ([]*offer.Offer, error) {
	defer r.store.lock(ctx)()
	var all []*offer.Offer
	for _, o := range r.store.data.offers {
		if o.Status == offer.StatusOpen && o.ChannelID != excludeChannelID {
			cp := *o
			all = append(all, &cp)
		}
	}
	sortOffersNewestFirst(all)
	return page(all, limit, offset), nil
}

func (r *OfferRepository) ChannelIDsWithOffers(ctx context.Context, channelIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	defer r.store.lock(ctx)()
	want := make(map[uuid.UUID]bool, len(channelIDs))
	for _, id := range channelIDs {
		want[id] = true
	}
	out := make(map[uuid.UUID]bool)
	for _, o := range r.store.data.offers {
		if want[o.ChannelID] {
			out[o.ChannelID] = true
		}
	}
	return out, nil
}

func sortOffersNewestFirst(offers []*offer.Offer) {
	sort.Slice(offers, func(i, j int) bool {
		if offers[i].CreatedAt.Equal(offers[j].CreatedAt) {
			return offers[i].ID > offers[j].ID
		}
		return offers[i].CreatedAt.After(offers[j].CreatedAt)
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
