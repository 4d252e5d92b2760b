package fanout

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/channelswap/channelswap/internal/domain/channel"
	"github.com/channelswap/channelswap/internal/domain/match"
	"github.com/channelswap/channelswap/internal/domain/notify"
)

// Service pushes best-effort real-time events after state changes commit.
// Failures are logged and never propagate; the action log stays the durable
// record.
type Service struct {
	channelRepo channel.Repository
	hub         notify.Hub
	logger      zerolog.Logger
}

func NewService(channelRepo channel.Repository, hub notify.Hub, logger zerolog.Logger) *Service {
	return &Service{
		channelRepo: channelRepo,
		hub:         hub,
		logger:      logger.With().Str("service", "fanout").Logger(),
	}
}

// MatchStatusChanged pushes the match's new state to its room and to both
// participants' owners.
func (s *Service) MatchStatusChanged(ctx context.Context, m *match.Match) {
	payload, err := json.Marshal(notify.StatusChanged{
		MatchID:            m.MatchID,
		OfferID:            m.OfferID,
		Status:             string(m.Status),
		InitiatorConfirmed: m.InitiatorConfirmed,
		TargetConfirmed:    m.TargetConfirmed,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("matchId", m.MatchID.String()).Msg("failed to marshal status event")
		return
	}
	msg := notify.NewMessage(notify.EventSwapStatusChanged, payload)

	s.hub.BroadcastToGroup(notify.MatchGroup(m.MatchID), msg)
	for _, owner := range s.ownerIDs(ctx, m) {
		s.hub.BroadcastToUser(owner, msg)
	}
}

// NotifyUser pushes a notification:new event to one user.
func (s *Service) NotifyUser(userID string, n notify.UserNotification) {
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Error().Err(err).Str("userId", userID).Msg("failed to marshal notification")
		return
	}
	s.hub.BroadcastToUser(userID, notify.NewMessage(notify.EventNotificationNew, payload))
}

// NotifyCounterpart pushes a notification to the owner of the side opposite
// the acting one.
func (s *Service) NotifyCounterpart(ctx context.Context, m *match.Match, actingSide match.Side, n notify.UserNotification) {
	counterpartChannel := m.TargetChannelID
	if actingSide == match.SideTarget {
		counterpartChannel = m.InitiatorChannelID
	}
	c, err := s.channelRepo.GetByID(ctx, counterpartChannel)
	if err != nil || c == nil {
		s.logger.Warn().Str("channelId", counterpartChannel.String()).Msg("counterpart channel lookup failed")
		return
	}
	s.NotifyUser(c.OwnerUserID.String(), n)
}

func (s *Service) ownerIDs(ctx context.Context, m *match.Match) []string {
	var out []string
	seen := make(map[string]bool)
	for _, channelID := range []uuid.UUID{m.InitiatorChannelID, m.TargetChannelID} {
		c, err := s.channelRepo.GetByID(ctx, channelID)
		if err != nil || c == nil {
			continue
		}
		owner := c.OwnerUserID.String()
		if !seen[owner] {
			seen[owner] = true
			out = append(out, owner)
		}
	}
	return out
}
