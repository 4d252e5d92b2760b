package offer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/channelswap/channelswap/internal/application/audit"
	"github.com/channelswap/channelswap/internal/application/guard"
	"github.com/channelswap/channelswap/internal/domain/actionlog"
	"github.com/channelswap/channelswap/internal/domain/apperr"
	"github.com/channelswap/channelswap/internal/domain/channel"
	"github.com/channelswap/channelswap/internal/domain/offer"
	"github.com/channelswap/channelswap/internal/domain/storage"
)

// Service handles the offer catalog.
type Service struct {
	offerRepo   offer.Repository
	channelRepo channel.Repository
	txm         storage.TxManager
	guardSvc    *guard.Service
	auditSvc    *appAudit.Service
	logger      zerolog.Logger
}

func NewService(
	offerRepo offer.Repository,
	channelRepo channel.Repository,
	txm storage.TxManager,
	guardSvc *guard.Service,
	auditSvc *appAudit.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		offerRepo:   offerRepo,
		channelRepo: channelRepo,
		txm:         txm,
		guardSvc:    guardSvc,
		auditSvc:    auditSvc,
		logger:      logger.With().Str("service", "offer").Logger(),
	}
}

// CreateOffer publishes an offer for a channel the actor owns. Validation
// runs before the transaction; the rate limit is checked inside it.
func (s *Service) CreateOffer(ctx context.Context, actorUserID, channelID uuid.UUID, kind offer.Kind, c offer.Constraints, ip string) (*offer.Offer, error) {
	o, err := offer.New(channelID, kind, c)
	if err != nil {
		return nil, err
	}

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

	err = s.txm.WithinTx(ctx, func(ctx context.Context) error {
		// Lock the channel row so concurrent creations for the same channel
		// serialize before the budget count.
		if _, err := s.channelRepo.GetByIDForUpdate(ctx, channelID); err != nil {
			return err
		}
		if err := s.guardSvc.AllowOfferCreate(ctx, actorUserID, channelID, ip); err != nil {
			return err
		}
		if err := s.offerRepo.Create(ctx, o); err != nil {
			return err
		}
		return s.auditSvc.LogSync(ctx, &actorUserID, actionlog.ActionOfferCreated, map[string]interface{}{
			"offer_id":   o.OfferID.String(),
			"channel_id": channelID.String(),
			"kind":       string(kind),
		}, ip)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("offerId", o.OfferID.String()).
		Str("channelId", channelID.String()).
		Msg("offer created")

	return o, nil
}

// DeleteOffer removes an open offer the actor owns. Offers with an active
// match cannot be removed.
func (s *Service) DeleteOffer(ctx context.Context, actorUserID, offerID uuid.UUID, ip string) error {
	return s.txm.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.offerRepo.GetByIDForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.NotFound("offer not found: %s", offerID)
		}

		ch, err := s.channelRepo.GetByID(ctx, o.ChannelID)
		if err != nil {
			return err
		}
		if ch == nil || ch.OwnerUserID != actorUserID {
			return apperr.Forbidden("offer %s does not belong to the actor", offerID)
		}
		if o.Status == offer.StatusMatched {
			return apperr.Conflict("offer %s has an active match", offerID)
		}

		if err := s.offerRepo.Delete(ctx, offerID); err != nil {
			return err
		}
		return s.auditSvc.LogSync(ctx, &actorUserID, actionlog.ActionOfferDeleted, map[string]interface{}{
			"offer_id":   offerID.String(),
			"channel_id": o.ChannelID.String(),
		}, ip)
	})
}

// GetOffer returns one offer.
func (s *Service) GetOffer(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	o, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NotFound("offer not found: %s", offerID)
	}
	return o, nil
}

// ListOpen lists the marketplace, excluding the viewer's own channel.
func (s *Service) ListOpen(ctx context.Context, excludeChannelID uuid.UUID, limit, offset int) ([]*offer.Offer, error) {
	limit, offset = clampPage(limit, offset)
	return s.offerRepo.ListOpen(ctx, excludeChannelID, limit, offset)
}

// ListByChannel lists a channel's own offers.
func (s *Service) ListByChannel(ctx context.Context, channelID uuid.UUID, limit, offset int) ([]*offer.Offer, error) {
	limit, offset = clampPage(limit, offset)
	return s.offerRepo.ListByChannel(ctx, channelID, limit, offset)
}

// EnsureOffers synthesizes a default offer for every eligible channel that
// has none, of any status. An explicit channelIDs slice narrows the sweep to
// those channels (still subject to eligibility); empty means all. Each channel
// commits independently so one failure cannot starve the rest. Returns the
// number created.
func (s *Service) EnsureOffers(ctx context.Context, channelIDs []uuid.UUID, reason string) (int, error) {
	var eligible []uuid.UUID
	var err error
	if len(channelIDs) == 0 {
		eligible, err = s.channelRepo.ListEligibleIDs(ctx)
		if err != nil {
			return 0, err
		}
	} else {
		for _, id := range channelIDs {
			ch, err := s.channelRepo.GetByID(ctx, id)
			if err != nil {
				return 0, err
			}
			if ch != nil && ch.EligibleForAutoOffer() {
				eligible = append(eligible, id)
			}
		}
	}
	if len(eligible) == 0 {
		return 0, nil
	}

	// Cheap pre-filter only; the authoritative existence check runs inside
	// each channel's transaction under the channel row lock, so concurrent
	// sweeps cannot both create for the same channel.
	existing, err := s.offerRepo.ChannelIDsWithOffers(ctx, eligible)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, channelID := range eligible {
		if existing[channelID] {
			continue
		}
		o := offer.Default(channelID)
		skipped := false
		err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := s.channelRepo.GetByIDForUpdate(ctx, channelID); err != nil {
				return err
			}
			has, err := s.offerRepo.ChannelIDsWithOffers(ctx, []uuid.UUID{channelID})
			if err != nil {
				return err
			}
			if has[channelID] {
				skipped = true
				return nil
			}
			if err := s.offerRepo.Create(ctx, o); err != nil {
				return err
			}
			return s.auditSvc.LogSync(ctx, nil, actionlog.ActionAutoOfferCreated, map[string]interface{}{
				"offer_id":   o.OfferID.String(),
				"channel_id": channelID.String(),
				"reason":     reason,
			}, "")
		})
		if err != nil {
			s.logger.Error().Err(err).
				Str("channelId", channelID.String()).
				Msg("failed to synthesize offer")
			continue
		}
		if !skipped {
			created++
		}
	}

	if created > 0 {
		s.logger.Info().Int("created", created).Str("reason", reason).Msg("auto-offer sync finished")
	}
	return created, nil
}

// RunSynthesizer runs EnsureOffers on a fixed interval until ctx is done.
func (s *Service) RunSynthesizer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.EnsureOffers(ctx, nil, "periodic"); err != nil {
				s.logger.Error().Err(err).Msg("auto-offer sync failed")
			}
		}
	}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
