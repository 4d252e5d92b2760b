package actionlog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action tags every state transition the core performs. The log is
// append-only; entries are never updated or deleted.
type Action string

const (
	ActionOfferCreated             Action = "offer_created"
	ActionOfferDeleted             Action = "offer_deleted"
	ActionAutoOfferCreated         Action = "auto_offer_created"
	ActionMatchCreated             Action = "match_created"
	ActionMatchRespondIdempotent   Action = "match_respond_idempotent_hit"
	ActionSwapAccepted             Action = "swap_accepted"
	ActionSwapRejected             Action = "swap_rejected"
	ActionSwapDeferred             Action = "swap_deferred"
	ActionSwapCompletionConfirmed  Action = "swap_completion_confirmed"
	ActionSwapCompletionFailed     Action = "swap_completion_failed"
	ActionRateLimitOfferBlocked    Action = "rate_limit_offer_create_blocked"
	ActionAdminSystemLimitsUpdated Action = "admin_system_limits_updated"
	ActionReviewCreated            Action = "review_created"
)

// Entry is one immutable audit record. ActorUserID is nil for system-driven
// transitions (the synthesizer, background loops).
type Entry struct {
	ID          int64           `json:"id"`
	EntryID     uuid.UUID       `json:"entryId"`
	ActorUserID *uuid.UUID      `json:"actorUserId,omitempty"`
	Action      Action          `json:"action"`
	Details     json.RawMessage `json:"details,omitempty"`
	IP          string          `json:"ip,omitempty"`
	Signature   []byte          `json:"signature,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewEntry builds an entry with marshalled details. A nil details map is
// recorded as an absent payload.
func NewEntry(actorUserID *uuid.UUID, action Action, details map[string]interface{}, ip string) (*Entry, error) {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Entry{
		EntryID:     uuid.New(),
		ActorUserID: actorUserID,
		Action:      action,
		Details:     raw,
		IP:          ip,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
