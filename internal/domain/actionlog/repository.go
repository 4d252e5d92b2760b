package actionlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows audit queries.
type Filter struct {
	Action      *Action
	ActorUserID *uuid.UUID
	Since       *time.Time
	Until       *time.Time
}

// Repository defines persistence for the append-only action log. Create
// joins the ambient transaction when one is carried by ctx, so primary audit
// entries roll back together with the mutation they describe; compensating
// writes use a context without a transaction.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, error)
	// LatestByAction returns the most recent entry with the given action, or
	// nil. Used as a latest-value-wins projection for config-as-log.
	LatestByAction(ctx context.Context, action Action) (*Entry, error)
	// CountOfferCreates counts offer_created entries attributed to a channel
	// since the given instant. The channel id lives in the entry details.
	CountOfferCreates(ctx context.Context, channelID uuid.UUID, since time.Time) (int, error)
}
