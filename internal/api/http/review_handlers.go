package httpapi

import (
	"net/http"
)

type createReviewRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	matchID, err := parseUUIDParam(r, "matchId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid matchId")
		return
	}
	var req createReviewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	actor := actorFromContext(r.Context())
	rv, err := s.reviewSvc.CreateReview(r.Context(), actor.UserID, matchID, req.Rating, req.Comment, actor.IP)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rv)
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	matchID, err := parseUUIDParam(r, "matchId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid matchId")
		return
	}
	actor := actorFromContext(r.Context())
	reviews, err := s.reviewSvc.ListByMatch(r.Context(), actor.UserID, matchID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}
