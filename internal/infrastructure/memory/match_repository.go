package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/match"
)

// MatchRepository implements match.Repository over the store.
type MatchRepository struct {
	store *Store
}

func NewMatchRepository(store *Store) *MatchRepository {
	return &MatchRepository{store: store}
}

func (r *MatchRepository) Create(ctx context.Context, m *match.Match) error {
	defer r.store.lock(ctx)()
	cp := *m
	cp.ID = r.store.nextID()
	r.store.data.matches[cp.MatchID] = &cp
	m.ID = cp.ID
	return nil
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID uuid.UUID) (*match.Match, error) {
	defer r.store.lock(ctx)()
	m, ok := r.store.data.matches[matchID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *MatchRepository) GetByIDForUpdate(ctx context.Context, matchID uuid.UUID) (*match.Match, error) {
	return r.GetByID(ctx, matchID)
}

func (r *MatchRepository) GetActiveByOfferAndInitiatorForUpdate(ctx context.Context, offerID, initiatorChannelID uuid.UUID) (*match.Match, error) {
	defer r.store.lock(ctx)()
	var found *match.Match
	for _, m := range r.store.data.matches {
		if m.OfferID == offerID && m.InitiatorChannelID == initiatorChannelID && m.IsActive() {
			if found == nil || m.CreatedAt.After(found.CreatedAt) {
				found = m
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (r *MatchRepository) UpdateStatus(ctx context.Context, matchID uuid.UUID, status match.Status, updatedAt time.Time) error {
	defer r.store.lock(ctx)()
	if m, ok := r.store.data.matches[matchID]; ok {
		m.Status = status
		m.UpdatedAt = updatedAt
	}
	return nil
}

func (r *MatchRepository) SetConfirmed(ctx context.Context, matchID uuid.UUID, side match.Side, updatedAt time.Time) error {
	defer r.store.lock(ctx)()
	if m, ok := r.store.data.matches[matchID]; ok {
		if side == match.SideInitiator {
			m.InitiatorConfirmed = true
		} else {
			m.TargetConfirmed = true
		}
		m.UpdatedAt = updatedAt
	}
	return nil
}

func (r *MatchRepository) MarkCompleted(ctx context.Context, matchID uuid.UUID, completedAt time.Time) error {
	defer r.store.lock(ctx)()
	if m, ok := r.store.data.matches[matchID]; ok {
		m.Status = match.StatusCompleted
		at := completedAt
		m.CompletedAt = &at
		m.UpdatedAt = completedAt
	}
	return nil
}

func (r *MatchRepository) ExtendRespondBy(ctx context.Context, matchID uuid.UUID, respondBy, updatedAt time.Time) error {
	defer r.store.lock(ctx)()
	if m, ok := r.store.data.matches[matchID]; ok {
		m.RespondBy = respondBy
		m.UpdatedAt = updatedAt
	}
	return nil
}

func (r *MatchRepository) CountActiveByOffer(ctx context.Context, offerID uuid.UUID) (int, error) {
	defer r.store.lock(ctx)()
	count := 0
	for _, m := range r.store.data.matches {
		if m.OfferID == offerID && m.IsActive() {
			count++
		}
	}
	return count, nil
}

func (r *MatchRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, status *match.Status, limit, offset int) ([]*match.Match, error) {
	defer r.store.lock(ctx)()
	var all []*match.Match
	for _, m := range r.store.data.matches {
		if m.InitiatorChannelID != channelID && m.TargetChannelID != channelID {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		cp := *m
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return page(all, limit, offset), nil
}
