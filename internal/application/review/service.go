package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/channelswap/channelswap/internal/application/audit"
	"github.com/channelswap/channelswap/internal/domain/actionlog"
	"github.com/channelswap/channelswap/internal/domain/apperr"
	"github.com/channelswap/channelswap/internal/domain/channel"
	"github.com/channelswap/channelswap/internal/domain/match"
	"github.com/channelswap/channelswap/internal/domain/review"
	"github.com/channelswap/channelswap/internal/domain/storage"
)

// Service handles post-completion reviews.
type Service struct {
	reviewRepo  review.Repository
	matchRepo   match.Repository
	channelRepo channel.Repository
	txm         storage.TxManager
	auditSvc    *appAudit.Service
	logger      zerolog.Logger
}

func NewService(
	reviewRepo review.Repository,
	matchRepo match.Repository,
	channelRepo channel.Repository,
	txm storage.TxManager,
	auditSvc *appAudit.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		reviewRepo:  reviewRepo,
		matchRepo:   matchRepo,
		channelRepo: channelRepo,
		txm:         txm,
		auditSvc:    auditSvc,
		logger:      logger.With().Str("service", "review").Logger(),
	}
}

// CreateReview records feedback from one participant of a completed match.
// One review per (match, channel).
func (s *Service) CreateReview(ctx context.Context, actorUserID, matchID uuid.UUID, rating int, comment *string, ip string) (*review.Review, error) {
	var out *review.Review
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("match not found: %s", matchID)
		}
		if m.Status != match.StatusCompleted {
			return apperr.InvalidTransition("match %s is not completed", matchID)
		}

		fromChannelID, err := s.participantChannel(ctx, m, actorUserID)
		if err != nil {
			return err
		}

		existing, err := s.reviewRepo.GetByMatchAndChannel(ctx, matchID, fromChannelID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("channel %s already reviewed match %s", fromChannelID, matchID)
		}

		rv, err := review.New(matchID, fromChannelID, rating, comment)
		if err != nil {
			return err
		}
		if err := s.reviewRepo.Create(ctx, rv); err != nil {
			return err
		}
		if err := s.auditSvc.LogSync(ctx, &actorUserID, actionlog.ActionReviewCreated, map[string]interface{}{
			"review_id":       rv.ReviewID.String(),
			"match_id":        matchID.String(),
			"from_channel_id": fromChannelID.String(),
			"rating":          rating,
		}, ip); err != nil {
			return err
		}

		out = rv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByMatch returns a match's reviews to one of its participants.
func (s *Service) ListByMatch(ctx context.Context, actorUserID, matchID uuid.UUID) ([]*review.Review, error) {
	m, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.NotFound("match not found: %s", matchID)
	}
	if _, err := s.participantChannel(ctx, m, actorUserID); err != nil {
		return nil, err
	}
	return s.reviewRepo.ListByMatch(ctx, matchID)
}

func (s *Service) participantChannel(ctx context.Context, m *match.Match, actorUserID uuid.UUID) (uuid.UUID, error) {
	for _, channelID := range []uuid.UUID{m.InitiatorChannelID, m.TargetChannelID} {
		c, err := s.channelRepo.GetByID(ctx, channelID)
		if err != nil {
			return uuid.Nil, err
		}
		if c != nil && c.OwnerUserID == actorUserID {
			return channelID, nil
		}
	}
	return uuid.Nil, apperr.Forbidden("actor is not a participant of match %s", m.MatchID)
}
