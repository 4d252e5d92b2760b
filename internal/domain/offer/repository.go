package offer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for the offer catalog. ForUpdate variants
// acquire a row lock and are only meaningful inside a transaction.
type Repository interface {
	Create(ctx context.Context, o *Offer) error
	GetByID(ctx context.Context, offerID uuid.UUID) (*Offer, error)
	GetByIDForUpdate(ctx context.Context, offerID uuid.UUID) (*Offer, error)
	UpdateStatus(ctx context.Context, offerID uuid.UUID, status Status, updatedAt time.Time) error
	Delete(ctx context.Context, offerID uuid.UUID) error
	ListByChannel(ctx context.Context, channelID uuid.UUID, limit, offset int) ([]*Offer, error)
	ListOpen(ctx context.Context, excludeChannelID uuid.UUID, limit, offset int) ([]*Offer, error)
	// ChannelIDsWithOffers returns the subset of channelIDs that already own
	// at least one offer of any status.
	ChannelIDsWithOffers(ctx context.Context, channelIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}
