package offer

import (
	"time"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/apperr"
)

// Kind describes what kind of traffic the offer trades.
type Kind string

const (
	KindSubs  Kind = "subs"
	KindViews Kind = "views"
)

// Status is the cached summary of the offer's matches. An offer is open
// whenever no match against it is active; the match state machine is
// responsible for keeping this in sync.
type Status string

const (
	StatusOpen      Status = "open"
	StatusMatched   Status = "matched"
	StatusCompleted Status = "completed"
)

const maxTextLen = 64

// Offer is a published intent by a channel to trade promotional traffic.
type Offer struct {
	ID        int64     `json:"id"`
	OfferID   uuid.UUID `json:"offerId"`
	ChannelID uuid.UUID `json:"channelId"`
	Kind      Kind      `json:"kind"`
	Niche     *string   `json:"niche,omitempty"`
	Language  *string   `json:"language,omitempty"`
	MinSubs   *int      `json:"minSubs,omitempty"`
	MaxSubs   *int      `json:"maxSubs,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Constraints are the audience bounds and tags an offer may carry.
type Constraints struct {
	Niche    *string
	Language *string
	MinSubs  *int
	MaxSubs  *int
}

// New validates the input and builds an open offer. Validation happens before
// any lock is acquired.
func New(channelID uuid.UUID, kind Kind, c Constraints) (*Offer, error) {
	if channelID == uuid.Nil {
		return nil, apperr.Validation("channel_id is required")
	}
	if kind != KindSubs && kind != KindViews {
		return nil, apperr.Validation("kind must be %q or %q", KindSubs, KindViews)
	}
	if c.Niche != nil && len(*c.Niche) > maxTextLen {
		return nil, apperr.Validation("niche must be at most %d characters", maxTextLen)
	}
	if c.Language != nil && len(*c.Language) > maxTextLen {
		return nil, apperr.Validation("language must be at most %d characters", maxTextLen)
	}
	if c.MinSubs != nil && *c.MinSubs < 0 {
		return nil, apperr.Validation("min_subs must not be negative")
	}
	if c.MaxSubs != nil && *c.MaxSubs < 0 {
		return nil, apperr.Validation("max_subs must not be negative")
	}
	if c.MinSubs != nil && c.MaxSubs != nil && *c.MinSubs > *c.MaxSubs {
		return nil, apperr.Validation("min_subs must not exceed max_subs")
	}

	now := time.Now().UTC()
	return &Offer{
		OfferID:   uuid.New(),
		ChannelID: channelID,
		Kind:      kind,
		Niche:     c.Niche,
		Language:  c.Language,
		MinSubs:   c.MinSubs,
		MaxSubs:   c.MaxSubs,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Default builds the synthesizer's default offer for a channel.
func Default(channelID uuid.UUID) *Offer {
	now := time.Now().UTC()
	return &Offer{
		OfferID:   uuid.New(),
		ChannelID: channelID,
		Kind:      KindSubs,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AcceptsSubscriberCount reports whether a counterparty channel with the
// given subscriber count falls inside the offer's audience bounds.
func (o *Offer) AcceptsSubscriberCount(subs int) bool {
	if o.MinSubs != nil && subs < *o.MinSubs {
		return false
	}
	if o.MaxSubs != nil && subs > *o.MaxSubs {
		return false
	}
	return true
}
