package channel

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a YouTube channel registered on the platform. Channel records
// are populated by the OAuth/analytics ingestion pipeline; the exchange core
// only reads them.
type Channel struct {
	ID          int64     `json:"id"`
	ChannelID   uuid.UUID `json:"channelId"`
	OwnerUserID uuid.UUID `json:"ownerUserId"`
	Title       string    `json:"title"`
	Subscribers int       `json:"subscribers"`
	Active      bool      `json:"active"`
	Flagged     bool      `json:"flagged"`
	Demo        bool      `json:"demo"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EligibleForAutoOffer reports whether the catalog invariant applies to this
// channel: active, not flagged, not a demo account.
func (c *Channel) EligibleForAutoOffer() bool {
	return c.Active && !c.Flagged && !c.Demo
}
