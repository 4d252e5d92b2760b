package match

import (
	"time"

	"github.com/google/uuid"
)

// Status describes match state. completed and rejected are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Side identifies which participant of a match an actor represents.
type Side string

const (
	SideInitiator Side = "initiator"
	SideTarget    Side = "target"
)

// Advisory SLA windows. Display-only; no automatic transition enforces them.
const (
	RespondWindow  = 72 * time.Hour
	CompleteWindow = 10 * 24 * time.Hour
	DeferWindow    = 24 * time.Hour
)

// Match is a proposed exchange between an initiator channel and a target
// channel against exactly one offer.
type Match struct {
	ID                 int64      `json:"id"`
	MatchID            uuid.UUID  `json:"matchId"`
	OfferID            uuid.UUID  `json:"offerId"`
	InitiatorChannelID uuid.UUID  `json:"initiatorChannelId"`
	TargetChannelID    uuid.UUID  `json:"targetChannelId"`
	Status             Status     `json:"status"`
	InitiatorConfirmed bool       `json:"initiatorConfirmed"`
	TargetConfirmed    bool       `json:"targetConfirmed"`
	Score              float64    `json:"score"`
	RespondBy          time.Time  `json:"respondBy"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// New builds a pending match for an initiator responding to an offer.
func New(offerID, initiatorChannelID, targetChannelID uuid.UUID, score float64) *Match {
	now := time.Now().UTC()
	return &Match{
		MatchID:            uuid.New(),
		OfferID:            offerID,
		InitiatorChannelID: initiatorChannelID,
		TargetChannelID:    targetChannelID,
		Status:             StatusPending,
		Score:              score,
		RespondBy:          now.Add(RespondWindow),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// IsActive reports whether the match occupies its (offer, initiator) slot.
func (m *Match) IsActive() bool {
	return m.Status == StatusPending || m.Status == StatusAccepted
}

// IsTerminal reports whether no further transition is legal.
func (m *Match) IsTerminal() bool {
	return m.Status == StatusCompleted || m.Status == StatusRejected
}

// CanTransitionTo checks the state machine edges:
// pending -> accepted -> completed; pending|accepted -> rejected.
func (m *Match) CanTransitionTo(target Status) bool {
	switch m.Status {
	case StatusPending:
		return target == StatusAccepted || target == StatusRejected
	case StatusAccepted:
		return target == StatusCompleted || target == StatusRejected
	default:
		return false
	}
}

// SideOf returns the side the channel plays in this match, or empty when the
// channel is not a participant.
func (m *Match) SideOf(channelID uuid.UUID) Side {
	switch channelID {
	case m.InitiatorChannelID:
		return SideInitiator
	case m.TargetChannelID:
		return SideTarget
	default:
		return ""
	}
}

// ConfirmedBy reports whether the given side has already confirmed.
func (m *Match) ConfirmedBy(side Side) bool {
	if side == SideInitiator {
		return m.InitiatorConfirmed
	}
	return m.TargetConfirmed
}

// BothConfirmed reports whether the dual-confirmation protocol can finish.
func (m *Match) BothConfirmed() bool {
	return m.InitiatorConfirmed && m.TargetConfirmed
}

// CompleteBy is the advisory completion deadline once accepted.
func (m *Match) CompleteBy(acceptedAt time.Time) time.Time {
	return acceptedAt.Add(CompleteWindow)
}
