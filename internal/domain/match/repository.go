package match

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for matches. ForUpdate variants acquire a
// row lock and are only meaningful inside a transaction.
type Repository interface {
	Create(ctx context.Context, m *Match) error
	GetByID(ctx context.Context, matchID uuid.UUID) (*Match, error)
	GetByIDForUpdate(ctx context.Context, matchID uuid.UUID) (*Match, error)
	// GetActiveByOfferAndInitiatorForUpdate locks and returns the active
	// (pending or accepted) match for the pair, or nil.
	GetActiveByOfferAndInitiatorForUpdate(ctx context.Context, offerID, initiatorChannelID uuid.UUID) (*Match, error)
	UpdateStatus(ctx context.Context, matchID uuid.UUID, status Status, updatedAt time.Time) error
	// SetConfirmed sets one side's confirmation flag. Flags are monotonic:
	// the update never unsets an already-true flag.
	SetConfirmed(ctx context.Context, matchID uuid.UUID, side Side, updatedAt time.Time) error
	MarkCompleted(ctx context.Context, matchID uuid.UUID, completedAt time.Time) error
	// ExtendRespondBy moves the advisory response deadline.
	ExtendRespondBy(ctx context.Context, matchID uuid.UUID, respondBy, updatedAt time.Time) error
	CountActiveByOffer(ctx context.Context, offerID uuid.UUID) (int, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID, status *Status, limit, offset int) ([]*Match, error)
}
