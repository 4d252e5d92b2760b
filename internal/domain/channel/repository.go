package channel

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines read access to the channel catalog. GetByIDForUpdate
// locks the row for the duration of the ambient transaction; it is the
// serialization point for per-channel writes (offer creation, synthesis).
type Repository interface {
	GetByID(ctx context.Context, channelID uuid.UUID) (*Channel, error)
	GetByIDForUpdate(ctx context.Context, channelID uuid.UUID) (*Channel, error)
	ListIDsByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]uuid.UUID, error)
	ListEligibleIDs(ctx context.Context) ([]uuid.UUID, error)
}
