package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/actionlog"
)

func (s *Server) getLimits(w http.ResponseWriter, r *http.Request) {
	limit, err := s.guardSvc.CurrentOfferLimit(r.Context())
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"offer_max":          limit.Max,
		"offer_window_hours": int(limit.Window.Hours()),
	})
}

type updateLimitsRequest struct {
	OfferMax         int `json:"offer_max"`
	OfferWindowHours int `json:"offer_window_hours"`
}

func (s *Server) updateLimits(w http.ResponseWriter, r *http.Request) {
	var req updateLimitsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	actor := actorFromContext(r.Context())
	limit, err := s.guardSvc.UpdateOfferLimit(r.Context(), actor.UserID, req.OfferMax, req.OfferWindowHours, actor.IP)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"offer_max":          limit.Max,
		"offer_window_hours": int(limit.Window.Hours()),
	})
}

type syncOffersRequest struct {
	ChannelIDs []string `json:"channel_ids"`
	Reason     string   `json:"reason"`
}

func (s *Server) syncOffers(w http.ResponseWriter, r *http.Request) {
	var req syncOffersRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "admin_sync"
	}

	channelIDs := make([]uuid.UUID, 0, len(req.ChannelIDs))
	for _, raw := range req.ChannelIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "invalid channel id: "+raw)
			return
		}
		channelIDs = append(channelIDs, id)
	}

	created, err := s.offerSvc.EnsureOffers(r.Context(), channelIDs, req.Reason)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"created": created})
}

func (s *Server) queryAudit(w http.ResponseWriter, r *http.Request) {
	var f actionlog.Filter
	if v := r.URL.Query().Get("action"); v != "" {
		action := actionlog.Action(v)
		f.Action = &action
	}
	if v := r.URL.Query().Get("actor_user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "invalid actor_user_id")
			return
		}
		f.ActorUserID = &id
	}
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "invalid since")
			return
		}
		f.Since = &t
	}
	if v := r.URL.Query().Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "invalid until")
			return
		}
		f.Until = &t
	}

	limit, offset := parseLimitOffset(r, 50, 200)
	entries, err := s.auditSvc.Query(r.Context(), f, limit, offset)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
