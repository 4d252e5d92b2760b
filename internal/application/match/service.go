package match

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/channelswap/channelswap/internal/application/audit"
	"github.com/channelswap/channelswap/internal/application/fanout"
	"github.com/channelswap/channelswap/internal/domain/actionlog"
	"github.com/channelswap/channelswap/internal/domain/apperr"
	"github.com/channelswap/channelswap/internal/domain/channel"
	"github.com/channelswap/channelswap/internal/domain/chat"
	"github.com/channelswap/channelswap/internal/domain/match"
	"github.com/channelswap/channelswap/internal/domain/notify"
	"github.com/channelswap/channelswap/internal/domain/offer"
	"github.com/channelswap/channelswap/internal/domain/storage"
)

// Service drives the match state machine. Every transition runs in a single
// transaction that locks the rows it touches and writes its audit entry
// before committing; fan-out happens after commit, best-effort.
type Service struct {
	matchRepo   match.Repository
	offerRepo   offer.Repository
	channelRepo channel.Repository
	chatRepo    chat.Repository
	txm         storage.TxManager
	auditSvc    *appAudit.Service
	fanoutSvc   *fanout.Service
	logger      zerolog.Logger
}

func NewService(
	matchRepo match.Repository,
	offerRepo offer.Repository,
	channelRepo channel.Repository,
	chatRepo chat.Repository,
	txm storage.TxManager,
	auditSvc *appAudit.Service,
	fanoutSvc *fanout.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		matchRepo:   matchRepo,
		offerRepo:   offerRepo,
		channelRepo: channelRepo,
		chatRepo:    chatRepo,
		txm:         txm,
		auditSvc:    auditSvc,
		fanoutSvc:   fanoutSvc,
		logger:      logger.With().Str("service", "match").Logger(),
	}
}

// RespondToOffer creates a pending match for the initiator channel against
// the offer. Responding again while a previous match for the same pair is
// still active returns that match instead of creating a duplicate.
func (s *Service) RespondToOffer(ctx context.Context, actorUserID, initiatorChannelID, offerID uuid.UUID, ip string) (*match.Match, bool, error) {
	initiator, err := s.channelRepo.GetByID(ctx, initiatorChannelID)
	if err != nil {
		return nil, false, err
	}
	if initiator == nil {
		return nil, false, apperr.NotFound("channel not found: %s", initiatorChannelID)
	}
	if initiator.OwnerUserID != actorUserID {
		return nil, false, apperr.Forbidden("channel %s does not belong to the actor", initiatorChannelID)
	}

	var (
		m          *match.Match
		idempotent bool
	)
	err = s.txm.WithinTx(ctx, func(ctx context.Context) error {
		// Lock the offer row first so concurrent responses to the same offer
		// serialize here.
		o, err := s.offerRepo.GetByIDForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.NotFound("offer not found: %s", offerID)
		}
		if o.ChannelID == initiatorChannelID {
			return apperr.SelfMatch("cannot respond to an offer from the same channel")
		}

		owner, err := s.channelRepo.GetByID(ctx, o.ChannelID)
		if err != nil {
			return err
		}
		if owner != nil && owner.OwnerUserID == actorUserID {
			return apperr.SelfMatch("cannot respond to an offer from an owned channel")
		}

		existing, err := s.matchRepo.GetActiveByOfferAndInitiatorForUpdate(ctx, offerID, initiatorChannelID)
		if err != nil {
			return err
		}
		if existing != nil {
			m, idempotent = existing, true
			return s.auditSvc.LogSync(ctx, &actorUserID, actionlog.ActionMatchRespondIdempotent, map[string]interface{}{
				"match_id": existing.MatchID.String(),
				"offer_id": offerID.String(),
			}, ip)
		}

		if o.Status != offer.StatusOpen {
			return apperr.InvalidTransition("offer %s is not open", offerID)
		}

		m = match.New(offerID, initiatorChannelID, o.ChannelID, match.CompatibilityScore(o, initiator.Subscribers))
		if err := s.matchRepo.Create(ctx, m); err != nil {
			return err
		}
		if err := s.offerRepo.UpdateStatus(ctx, offerID, offer.StatusMatched, m.CreatedAt); err != nil {
			return err
		}
		return s.auditSvc.LogSync(ctx, &actorUserID, actionlog.ActionMatchCreated, map[string]interface{}{
			"match_id":             m.MatchID.String(),
			"offer_id":             offerID.String(),
			"initiator_channel_id": initiatorChannelID.String(),
			"target_channel_id":    m.TargetChannelID.String(),
		}, ip)
	})
	if err != nil {
		return nil, false, err
	}

	if !idempotent {
		s.fanoutSvc.MatchStatusChanged(ctx, m)
		s.fanoutSvc.NotifyCounterpart(ctx, m, match.SideInitiator, notify.UserNotification{
			Type:    "swap_request",
			Title:   "New swap request",
			Message: "A channel responded to your offer",
			Link:    "/matches/" + m.MatchID.String(),
		})
	}
	return m, idempotent, nil
}

// Accept moves a pending match to accepted. Target side only. A chat room is
// opened best-effort after the transition commits.
func (s *Service) Accept(ctx context.Context, actorUserID, matchID uuid.UUID, ip string) (*match.Match, error) {
	m, _, err := s.transition(ctx, actorUserID, matchID, match.StatusAccepted, actionlog.ActionSwapAccepted, ip, nil, func(m *match.Match, side match.Side) error {
		if side != match.SideTarget {
			return apperr.Forbidden("only the offer's channel can accept")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.chatRepo.GetOrCreateByMatch(ctx, matchID); err != nil {
		s.logger.Warn().Err(err).Str("matchId", matchID.String()).Msg("failed to open chat room")
	}

	s.fanoutSvc.MatchStatusChanged(ctx, m)
	s.fanoutSvc.NotifyCounterpart(ctx, m, match.SideTarget, notify.UserNotification{
		Type:    "swap_accepted",
		Title:   "Swap accepted",
		Message: "Your swap request was accepted",
		Link:    "/matches/" + m.MatchID.String(),
	})
	return m, nil
}

// Reject terminates a match. Either participant may reject a pending or
// accepted match; the offer reopens. An optional reason is recorded in the
// audit entry and the counterparty is notified.
func (s *Service) Reject(ctx context.Context, actorUserID, matchID uuid.UUID, reason, ip string) (*match.Match, error) {
	var extra map[string]interface{}
	if reason != "" {
		extra = map[string]interface{}{"reason": reason}
	}
	m, side, err := s.transition(ctx, actorUserID, matchID, match.StatusRejected, actionlog.ActionSwapRejected, ip, extra, nil)
	if err != nil {
		return nil, err
	}

	s.fanoutSvc.MatchStatusChanged(ctx, m)
	s.fanoutSvc.NotifyCounterpart(ctx, m, side, notify.UserNotification{
		Type:    "swap_rejected",
		Title:   "Swap rejected",
		Message: "Your swap was rejected",
		Link:    "/matches/" + m.MatchID.String(),
	})
	return m, nil
}

// transition runs the shared accept/reject path: lock, authorize, check the
// state machine edge, update, audit. The audit entry records the acting side
// plus any extra details; it returns the side for post-commit notifications.
func (s *Service) transition(ctx context.Context, actorUserID, matchID uuid.UUID, target match.Status, action actionlog.Action, ip string, extra map[string]interface{}, authorize func(m *match.Match, side match.Side) error) (*match.Match, match.Side, error) {
	var (
		out       *match.Match
		actedSide match.Side
	)
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("match not found: %s", matchID)
		}

		side, err := s.sideOfActor(ctx, m, actorUserID)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(m, side); err != nil {
				return err
			}
		}
		if !m.CanTransitionTo(target) {
			return apperr.InvalidTransition("match %s cannot go from %s to %s", matchID, m.Status, target)
		}

		now := time.Now().UTC()
		if err := s.matchRepo.UpdateStatus(ctx, matchID, target, now); err != nil {
			return err
		}
		if target == match.StatusRejected {
			if err := s.offerRepo.UpdateStatus(ctx, m.OfferID, offer.StatusOpen, now); err != nil {
				return err
			}
		}
		details := map[string]interface{}{
			"match_id": matchID.String(),
			"offer_id": m.OfferID.String(),
			"side":     string(side),
			"from":     string(m.Status),
			"to":       string(target),
		}
		for k, v := range extra {
			details[k] = v
		}
		if err := s.auditSvc.LogSync(ctx, &actorUserID, action, details, ip); err != nil {
			return err
		}

		m.Status = target
		m.UpdatedAt = now
		out = m
		actedSide = side
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return out, actedSide, nil
}

// Defer extends a pending match's advisory response deadline. Target side
// only; the match stays pending. An optional note is recorded in the audit
// entry.
func (s *Service) Defer(ctx context.Context, actorUserID, matchID uuid.UUID, note, ip string) (*match.Match, error) {
	var out *match.Match
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("match not found: %s", matchID)
		}

		side, err := s.sideOfActor(ctx, m, actorUserID)
		if err != nil {
			return err
		}
		if side != match.SideTarget {
			return apperr.Forbidden("only the offer's channel can defer")
		}
		if m.Status != match.StatusPending {
			return apperr.InvalidTransition("match %s is not pending", matchID)
		}

		now := time.Now().UTC()
		respondBy := now.Add(match.DeferWindow)
		if err := s.matchRepo.ExtendRespondBy(ctx, matchID, respondBy, now); err != nil {
			return err
		}
		details := map[string]interface{}{
			"match_id":   matchID.String(),
			"side":       string(side),
			"respond_by": respondBy.Format(time.RFC3339),
		}
		if note != "" {
			details["note"] = note
		}
		if err := s.auditSvc.LogSync(ctx, &actorUserID, actionlog.ActionSwapDeferred, details, ip); err != nil {
			return err
		}

		m.RespondBy = respondBy
		m.UpdatedAt = now
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fanoutSvc.MatchStatusChanged(ctx, out)
	return out, nil
}

// ConfirmCompletion records one side's completion confirmation. The match
// completes only when both sides have confirmed. Confirming the same side
// twice while the match is accepted is a no-op; confirming a match in any
// other status fails. Every failure leaves a compensating entry in the
// action log, written outside the rolled back transaction.
func (s *Service) ConfirmCompletion(ctx context.Context, actorUserID, matchID uuid.UUID, ip string) (*match.Match, error) {
	var (
		out       *match.Match
		completed bool
		side      match.Side
	)
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("match not found: %s", matchID)
		}

		side, err = s.sideOfActor(ctx, m, actorUserID)
		if err != nil {
			return err
		}

		if m.Status != match.StatusAccepted {
			return apperr.MatchNotAccepted("match %s is %s, confirmation requires an accepted match", matchID, m.Status)
		}

		now := time.Now().UTC()
		if !m.ConfirmedBy(side) {
			if err := s.matchRepo.SetConfirmed(ctx, matchID, side, now); err != nil {
				return err
			}
			if side == match.SideInitiator {
				m.InitiatorConfirmed = true
			} else {
				m.TargetConfirmed = true
			}
			m.UpdatedAt = now
		}

		if m.BothConfirmed() {
			if err := s.matchRepo.MarkCompleted(ctx, matchID, now); err != nil {
				return err
			}
			if err := s.offerRepo.UpdateStatus(ctx, m.OfferID, offer.StatusCompleted, now); err != nil {
				return err
			}
			m.Status = match.StatusCompleted
			m.CompletedAt = &now
			completed = true
		}

		if err := s.auditSvc.LogSync(ctx, &actorUserID, actionlog.ActionSwapCompletionConfirmed, map[string]interface{}{
			"match_id":  matchID.String(),
			"side":      string(side),
			"completed": completed,
		}, ip); err != nil {
			return err
		}

		out = m
		return nil
	})
	if err != nil {
		s.auditSvc.Log(&actorUserID, actionlog.ActionSwapCompletionFailed, map[string]interface{}{
			"match_id": matchID.String(),
			"reason":   err.Error(),
		}, ip)
		return nil, err
	}

	s.fanoutSvc.MatchStatusChanged(ctx, out)
	if completed {
		s.fanoutSvc.NotifyCounterpart(ctx, out, side, notify.UserNotification{
			Type:    "swap_completed",
			Title:   "Swap completed",
			Message: "Both sides confirmed the swap",
			Link:    "/matches/" + out.MatchID.String(),
		})
	} else if out.Status == match.StatusAccepted {
		s.fanoutSvc.NotifyCounterpart(ctx, out, side, notify.UserNotification{
			Type:    "swap_confirmation",
			Title:   "Partner confirmed",
			Message: "Your partner confirmed completion, confirm to finish",
			Link:    "/matches/" + out.MatchID.String(),
		})
	}
	return out, nil
}

// BulkAction applies accept, reject, or defer to several matches. Each match
// runs in its own transaction; one failure never blocks the rest.
type BulkResult struct {
	MatchID uuid.UUID     `json:"matchId"`
	OK      bool          `json:"ok"`
	Reason  apperr.Reason `json:"reason,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func (s *Service) BulkAction(ctx context.Context, actorUserID uuid.UUID, matchIDs []uuid.UUID, action, reason, ip string) ([]BulkResult, error) {
	if len(matchIDs) == 0 {
		return nil, apperr.Validation("match_ids is required")
	}
	if len(matchIDs) > 50 {
		return nil, apperr.Validation("at most 50 matches per request")
	}

	results := make([]BulkResult, 0, len(matchIDs))
	for _, id := range matchIDs {
		var err error
		switch action {
		case "accept":
			_, err = s.Accept(ctx, actorUserID, id, ip)
		case "reject":
			_, err = s.Reject(ctx, actorUserID, id, reason, ip)
		case "defer":
			_, err = s.Defer(ctx, actorUserID, id, reason, ip)
		default:
			return nil, apperr.Validation("action must be accept, reject, or defer")
		}

		r := BulkResult{MatchID: id, OK: err == nil}
		if err != nil {
			r.Reason = apperr.ReasonOf(err)
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results, nil
}

// GetMatch returns a match to one of its participants.
func (s *Service) GetMatch(ctx context.Context, actorUserID, matchID uuid.UUID) (*match.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.NotFound("match not found: %s", matchID)
	}
	if _, err := s.sideOfActor(ctx, m, actorUserID); err != nil {
		return nil, err
	}
	return m, nil
}

// ListByChannel lists a channel's matches for its owner.
func (s *Service) ListByChannel(ctx context.Context, actorUserID, channelID uuid.UUID, status *match.Status, limit, offset int) ([]*match.Match, error) {
	ch, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, apperr.NotFound("channel not found: %s", channelID)
	}
	if ch.OwnerUserID != actorUserID {
		return nil, apperr.Forbidden("channel %s does not belong to the actor", channelID)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.matchRepo.ListByChannel(ctx, channelID, status, limit, offset)
}

// sideOfActor resolves which side of the match the actor controls through
// channel ownership.
func (s *Service) sideOfActor(ctx context.Context, m *match.Match, actorUserID uuid.UUID) (match.Side, error) {
	for _, channelID := range []uuid.UUID{m.InitiatorChannelID, m.TargetChannelID} {
		c, err := s.channelRepo.GetByID(ctx, channelID)
		if err != nil {
			return "", err
		}
		if c != nil && c.OwnerUserID == actorUserID {
			return m.SideOf(channelID), nil
		}
	}
	return "", apperr.Forbidden("actor is not a participant of match %s", m.MatchID)
}
