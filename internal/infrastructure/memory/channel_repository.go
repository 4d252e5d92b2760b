package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/channel"
)

// ChannelRepository implements channel.Repository over the store.
type ChannelRepository struct {
	store *Store
}

func NewChannelRepository(store *Store) *ChannelRepository {
	return &ChannelRepository{store: store}
}

func (r *ChannelRepository) GetByID(ctx context.Context, channelID uuid.UUID) (*channel.Channel, error) {
	defer r.store.lock(ctx)()
	c, ok := r.store.data.channels[channelID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *ChannelRepository) GetByIDForUpdate(ctx context.Context, channelID uuid.UUID) (*channel.Channel, error) {
	return r.GetByID(ctx, channelID)
}

func (r *ChannelRepository) ListIDsByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]uuid.UUID, error) {
	defer r.store.lock(ctx)()
	var chans []*channel.Channel
	for _, c := range r.store.data.channels {
		if c.OwnerUserID == ownerUserID {
			chans = append(chans, c)
		}
	}
	return sortedChannelIDs(chans), nil
}

func (r *ChannelRepository) ListEligibleIDs(ctx context.Context) ([]uuid.UUID, error) {
	defer r.store.lock(ctx)()
	var chans []*channel.Channel
	for _, c := range r.store.data.channels {
		if c.EligibleForAutoOffer() {
			chans = append(chans, c)
		}
	}
	return sortedChannelIDs(chans), nil
}

func sortedChannelIDs(chans []*channel.Channel) []uuid.UUID {
	sort.Slice(chans, func(i, j int) bool { return chans[i].ID < chans[j].ID })
	out := make([]uuid.UUID, 0, len(chans))
	for _, c := range chans {
		out = append(out, c.ChannelID)
	}
	return out
}
