package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/apperr"
	"github.com/channelswap/channelswap/internal/domain/match"
)

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("channel_id")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "channel_id required")
		return
	}
	channelID, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid channel_id")
		return
	}

	var status *match.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st := match.Status(v)
		switch st {
		case match.StatusPending, match.StatusAccepted, match.StatusCompleted, match.StatusRejected:
			status = &st
		default:
			respondError(w, http.StatusBadRequest, "validation_error", "invalid status")
			return
		}
	}

	limit, offset := parseLimitOffset(r, 20, 100)
	actor := actorFromContext(r.Context())
	matches, err := s.matchSvc.ListByChannel(r.Context(), actor.UserID, channelID, status, limit, offset)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := parseUUIDParam(r, "matchId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid matchId")
		return
	}
	actor := actorFromContext(r.Context())
	m, err := s.matchSvc.GetMatch(r.Context(), actor.UserID, matchID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

type matchActionFn func(ctx context.Context, actorUserID, matchID uuid.UUID, ip string) (*match.Match, error)

func (s *Server) matchAction(w http.ResponseWriter, r *http.Request, fn matchActionFn) {
	matchID, err := parseUUIDParam(r, "matchId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid matchId")
		return
	}
	actor := actorFromContext(r.Context())
	m, err := fn(r.Context(), actor.UserID, matchID, actor.IP)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) acceptMatch(w http.ResponseWriter, r *http.Request) {
	s.matchAction(w, r, s.matchSvc.Accept)
}

type rejectMatchRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) rejectMatch(w http.ResponseWriter, r *http.Request) {
	var req rejectMatchRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
	}
	s.matchAction(w, r, func(ctx context.Context, actorUserID, matchID uuid.UUID, ip string) (*match.Match, error) {
		return s.matchSvc.Reject(ctx, actorUserID, matchID, req.Reason, ip)
	})
}

type deferMatchRequest struct {
	Note string `json:"note"`
}

func (s *Server) deferMatch(w http.ResponseWriter, r *http.Request) {
	var req deferMatchRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
	}
	s.matchAction(w, r, func(ctx context.Context, actorUserID, matchID uuid.UUID, ip string) (*match.Match, error) {
		return s.matchSvc.Defer(ctx, actorUserID, matchID, req.Note, ip)
	})
}

func (s *Server) confirmMatch(w http.ResponseWriter, r *http.Request) {
	s.matchAction(w, r, s.matchSvc.ConfirmCompletion)
}

type bulkMatchActionRequest struct {
	MatchIDs []string `json:"match_ids"`
	Action   string   `json:"action"`
	Reason   string   `json:"reason"`
}

type bulkSkippedEntry struct {
	MatchID uuid.UUID     `json:"matchId"`
	Reason  apperr.Reason `json:"reason"`
	Error   string        `json:"error,omitempty"`
}

func (s *Server) bulkMatchAction(w http.ResponseWriter, r *http.Request) {
	var req bulkMatchActionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	matchIDs := make([]uuid.UUID, 0, len(req.MatchIDs))
	for _, raw := range req.MatchIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "invalid match id: "+raw)
			return
		}
		matchIDs = append(matchIDs, id)
	}

	actor := actorFromContext(r.Context())
	results, err := s.matchSvc.BulkAction(r.Context(), actor.UserID, matchIDs, req.Action, req.Reason, actor.IP)
	if err != nil {
		respondAppError(w, err)
		return
	}

	processed := make([]uuid.UUID, 0, len(results))
	skipped := make([]bulkSkippedEntry, 0)
	for _, res := range results {
		if res.OK {
			processed = append(processed, res.MatchID)
		} else {
			skipped = append(skipped, bulkSkippedEntry{MatchID: res.MatchID, Reason: res.Reason, Error: res.Error})
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"processed": processed,
		"skipped":   skipped,
	})
}
