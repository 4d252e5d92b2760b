package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/channelswap/channelswap/internal/domain/offer"
)

type createOfferRequest struct {
	ChannelID string  `json:"channel_id"`
	Kind      string  `json:"kind"`
	Niche     *string `json:"niche,omitempty"`
	Language  *string `json:"language,omitempty"`
	MinSubs   *int    `json:"min_subs,omitempty"`
	MaxSubs   *int    `json:"max_subs,omitempty"`
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	channelID, err := uuid.Parse(req.ChannelID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid channel_id")
		return
	}

	actor := actorFromContext(r.Context())
	o, err := s.offerSvc.CreateOffer(r.Context(), actor.UserID, channelID, offer.Kind(req.Kind), offer.Constraints{
		Niche:    req.Niche,
		Language: req.Language,
		MinSubs:  req.MinSubs,
		MaxSubs:  req.MaxSubs,
	}, actor.IP)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (s *Server) listOffers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 20, 100)

	// channel_id switches from the marketplace view to the channel's own
	// catalog. exclude_channel_id hides the viewer's channel from the
	// marketplace.
	if raw := r.URL.Query().Get("channel_id"); raw != "" {
		channelID, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "invalid channel_id")
			return
		}
		offers, err := s.offerSvc.ListByChannel(r.Context(), channelID, limit, offset)
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"offers": offers})
		return
	}

	var exclude uuid.UUID
	if raw := r.URL.Query().Get("exclude_channel_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "invalid exclude_channel_id")
			return
		}
		exclude = id
	}

	offers, err := s.offerSvc.ListOpen(r.Context(), exclude, limit, offset)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"offers": offers})
}

func (s *Server) getOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid offerId")
		return
	}
	o, err := s.offerSvc.GetOffer(r.Context(), offerID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) deleteOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid offerId")
		return
	}
	actor := actorFromContext(r.Context())
	if err := s.offerSvc.DeleteOffer(r.Context(), actor.UserID, offerID, actor.IP); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"offer_id": offerID, "deleted": true})
}

type respondToOfferRequest struct {
	ChannelID string `json:"channel_id"`
}

func (s *Server) respondToOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid offerId")
		return
	}
	var req respondToOfferRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	channelID, err := uuid.Parse(req.ChannelID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid channel_id")
		return
	}

	actor := actorFromContext(r.Context())
	m, idempotent, err := s.matchSvc.RespondToOffer(r.Context(), actor.UserID, channelID, offerID, actor.IP)
	if err != nil {
		respondAppError(w, err)
		return
	}

	status := http.StatusCreated
	if idempotent {
		status = http.StatusOK
	}
	respondJSON(w, status, map[string]interface{}{
		"match":      m,
		"idempotent": idempotent,
	})
}
