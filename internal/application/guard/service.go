package guard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/channelswap/channelswap/internal/application/audit"
	"github.com/channelswap/channelswap/internal/domain/actionlog"
	"github.com/channelswap/channelswap/internal/domain/apperr"
)

// Defaults when no admin has ever adjusted the limits.
const (
	DefaultOfferMax    = 5
	DefaultOfferWindow = 7 * 24 * time.Hour
)

// OfferLimit is the per-channel offer creation budget.
type OfferLimit struct {
	Max    int           `json:"max"`
	Window time.Duration `json:"window"`
}

// Service enforces anti-abuse limits. The current limit is a
// latest-value-wins projection over admin_system_limits_updated entries; the
// log itself is the configuration store.
type Service struct {
	logRepo  actionlog.Repository
	auditSvc *appAudit.Service
	logger   zerolog.Logger
}

func NewService(logRepo actionlog.Repository, auditSvc *appAudit.Service, logger zerolog.Logger) *Service {
	return &Service{
		logRepo:  logRepo,
		auditSvc: auditSvc,
		logger:   logger.With().Str("service", "guard").Logger(),
	}
}

type limitDetails struct {
	OfferMax         int `json:"offer_max"`
	OfferWindowHours int `json:"offer_window_hours"`
}

// CurrentOfferLimit reconstructs the active limit from the log.
func (s *Service) CurrentOfferLimit(ctx context.Context) (OfferLimit, error) {
	limit := OfferLimit{Max: DefaultOfferMax, Window: DefaultOfferWindow}

	entry, err := s.logRepo.LatestByAction(ctx, actionlog.ActionAdminSystemLimitsUpdated)
	if err != nil {
		return limit, err
	}
	if entry == nil {
		return limit, nil
	}

	var d limitDetails
	if err := json.Unmarshal(entry.Details, &d); err != nil {
		s.logger.Warn().Err(err).
			Str("entryId", entry.EntryID.String()).
			Msg("unreadable limit entry, falling back to defaults")
		return limit, nil
	}
	if d.OfferMax > 0 {
		limit.Max = d.OfferMax
	}
	if d.OfferWindowHours > 0 {
		limit.Window = time.Duration(d.OfferWindowHours) * time.Hour
	}
	return limit, nil
}

// AllowOfferCreate checks the channel's creation budget. Blocked attempts are
// themselves recorded, outside the caller's transaction so the record
// survives the rollback.
func (s *Service) AllowOfferCreate(ctx context.Context, actorUserID uuid.UUID, channelID uuid.UUID, ip string) error {
	limit, err := s.CurrentOfferLimit(ctx)
	if err != nil {
		return err
	}

	since := time.Now().UTC().Add(-limit.Window)
	count, err := s.logRepo.CountOfferCreates(ctx, channelID, since)
	if err != nil {
		return err
	}
	if count < limit.Max {
		return nil
	}

	s.auditSvc.Log(&actorUserID, actionlog.ActionRateLimitOfferBlocked, map[string]interface{}{
		"channel_id": channelID.String(),
		"count":      count,
		"max":        limit.Max,
	}, ip)

	return apperr.RateLimited("channel %s reached %d offers in the current window", channelID, limit.Max)
}

// UpdateOfferLimit appends a new limit entry. Takes effect immediately for
// all subsequent checks.
func (s *Service) UpdateOfferLimit(ctx context.Context, actorUserID uuid.UUID, max, windowHours int, ip string) (OfferLimit, error) {
	if max < 1 {
		return OfferLimit{}, apperr.Validation("offer_max must be at least 1")
	}
	if windowHours < 1 {
		return OfferLimit{}, apperr.Validation("offer_window_hours must be at least 1")
	}

	err := s.auditSvc.LogSync(ctx, &actorUserID, actionlog.ActionAdminSystemLimitsUpdated, map[string]interface{}{
		"offer_max":          max,
		"offer_window_hours": windowHours,
	}, ip)
	if err != nil {
		return OfferLimit{}, err
	}

	s.logger.Info().
		Int("offerMax", max).
		Int("offerWindowHours", windowHours).
		Str("actor", actorUserID.String()).
		Msg("offer limit updated")

	return OfferLimit{Max: max, Window: time.Duration(windowHours) * time.Hour}, nil
}
