package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/actionlog"
)

// ActionLogRepository implements actionlog.Repository over the store.
type ActionLogRepository struct {
	store *Store
}

func NewActionLogRepository(store *Store) *ActionLogRepository {
	return &ActionLogRepository{store: store}
}

func (r *ActionLogRepository) Create(ctx context.Context, e *actionlog.Entry) error {
	defer r.store.lock(ctx)()
	cp := *e
	cp.ID = r.store.nextID()
	r.store.data.entries = append(r.store.data.entries, &cp)
	e.ID = cp.ID
	return nil
}

func (r *ActionLogRepository) List(ctx context.Context, f actionlog.Filter, limit, offset int) ([]*actionlog.Entry, error) {
	defer r.store.lock(ctx)()
	var all []*actionlog.Entry
	for i := len(r.store.data.entries) - 1; i >= 0; i-- {
		e := r.store.data.entries[i]
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.ActorUserID != nil && (e.ActorUserID == nil || *e.ActorUserID != *f.ActorUserID) {
			continue
		}
		if f.Since != nil && e.CreatedAt.Before(*f.Since) {
			continue
		}
		if f.Until != nil && e.CreatedAt.After(*f.Until) {
			continue
		}
		cp := *e
		all = append(all, &cp)
	}
	return page(all, limit, offset), nil
}

func (r *ActionLogRepository) LatestByAction(ctx context.Context, action actionlog.Action) (*actionlog.Entry, error) {
	defer r.store.lock(ctx)()
	for i := len(r.store.data.entries) - 1; i >= 0; i-- {
		if r.store.data.entries[i].Action == action {
			cp := *r.store.data.entries[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *ActionLogRepository) CountOfferCreates(ctx context.Context, channelID uuid.UUID, since time.Time) (int, error) {
	defer r.store.lock(ctx)()
	count := 0
	for _, e := range r.store.data.entries {
		if e.Action != actionlog.ActionOfferCreated || e.CreatedAt.Before(since) {
			continue
		}
		var details struct {
			ChannelID string `json:"channel_id"`
		}
		if err := json.Unmarshal(e.Details, &details); err != nil {
			continue
		}
		if details.ChannelID == channelID.String() {
			count++
		}
	}
	return count, nil
}
