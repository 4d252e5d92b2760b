package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/channelswap/channelswap/internal/domain/actionlog"
)

// Service writes and queries the action log.
type Service struct {
	repo    actionlog.Repository
	logger  zerolog.Logger
	signKey []byte
}

// NewService creates an audit service. An empty signKey disables signing.
func NewService(repo actionlog.Repository, logger zerolog.Logger, signKey []byte) *Service {
	return &Service{
		repo:    repo,
		signKey: signKey,
		logger:  logger.With().Str("service", "audit").Logger(),
	}
}

// LogSync records an entry synchronously. It joins the transaction carried by
// ctx, so primary entries roll back together with the mutation they describe.
func (s *Service) LogSync(ctx context.Context, actorUserID *uuid.UUID, action actionlog.Action, details map[string]interface{}, ip string) error {
	entry, err := actionlog.NewEntry(actorUserID, action, details, ip)
	if err != nil {
		return fmt.Errorf("failed to build action log entry: %w", err)
	}

	if len(s.signKey) > 0 {
		sig, err := actionlog.Sign(entry, s.signKey)
		if err != nil {
			return fmt.Errorf("failed to sign action log entry: %w", err)
		}
		entry.Signature = sig
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to save action log entry: %w", err)
	}

	s.logger.Debug().
		Str("entryId", entry.EntryID.String()).
		Str("action", string(entry.Action)).
		Msg("action log entry created")

	return nil
}

// Log records an entry asynchronously on a background context, outside any
// open transaction. Used for compensating entries that must survive a
// rollback.
func (s *Service) Log(actorUserID *uuid.UUID, action actionlog.Action, details map[string]interface{}, ip string) {
	go func() {
		if err := s.LogSync(context.Background(), actorUserID, action, details, ip); err != nil {
			s.logger.Error().Err(err).
				Str("action", string(action)).
				Msg("failed to create action log entry")
		}
	}()
}

// Query lists entries matching the filter, newest first.
func (s *Service) Query(ctx context.Context, f actionlog.Filter, limit, offset int) ([]*actionlog.Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, f, limit, offset)
}

// Verify checks an entry's signature against the service key.
func (s *Service) Verify(e *actionlog.Entry) (bool, error) {
	if len(s.signKey) == 0 {
		return false, fmt.Errorf("signing is disabled")
	}
	return actionlog.VerifySignature(e, s.signKey)
}
