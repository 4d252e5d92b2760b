package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appAudit "github.com/channelswap/channelswap/internal/application/audit"
	appGuard "github.com/channelswap/channelswap/internal/application/guard"
	appMatch "github.com/channelswap/channelswap/internal/application/match"
	appOffer "github.com/channelswap/channelswap/internal/application/offer"
	appReview "github.com/channelswap/channelswap/internal/application/review"
	"github.com/channelswap/channelswap/internal/domain/apperr"
	"github.com/channelswap/channelswap/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	offerSvc  *appOffer.Service
	matchSvc  *appMatch.Service
	reviewSvc *appReview.Service
	guardSvc  *appGuard.Service
	auditSvc  *appAudit.Service
	sseHub    *sse.Hub
}

func NewServer(
	offerSvc *appOffer.Service,
	matchSvc *appMatch.Service,
	reviewSvc *appReview.Service,
	guardSvc *appGuard.Service,
	auditSvc *appAudit.Service,
	sseHub *sse.Hub,
) *Server {
	return &Server{
		offerSvc:  offerSvc,
		matchSvc:  matchSvc,
		reviewSvc: reviewSvc,
		guardSvc:  guardSvc,
		auditSvc:  auditSvc,
		sseHub:    sseHub,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireActor)

			r.Route("/offers", func(r chi.Router) {
				r.Post("/", s.createOffer)
				r.Get("/", s.listOffers)
				r.Get("/{offerId}", s.getOffer)
				r.Delete("/{offerId}", s.deleteOffer)
				r.Post("/{offerId}/respond", s.respondToOffer)
			})

			r.Route("/matches", func(r chi.Router) {
				r.Get("/", s.listMatches)
				r.Post("/bulk", s.bulkMatchAction)
				r.Get("/{matchId}", s.getMatch)
				r.Post("/{matchId}/accept", s.acceptMatch)
				r.Post("/{matchId}/reject", s.rejectMatch)
				r.Post("/{matchId}/defer", s.deferMatch)
				r.Post("/{matchId}/confirm", s.confirmMatch)
				r.Post("/{matchId}/reviews", s.createReview)
				r.Get("/{matchId}/reviews", s.listReviews)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Get("/limits", s.getLimits)
				r.Put("/limits", s.updateLimits)
				r.Post("/offers/sync", s.syncOffers)
				r.Get("/audit", s.queryAudit)
			})

			r.Get("/events", s.sseEndpoint)
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondAppError maps a service error to its HTTP status through the stable
// failure reason.
func respondAppError(w http.ResponseWriter, err error) {
	reason := apperr.ReasonOf(err)
	status := http.StatusInternalServerError
	switch reason {
	case apperr.ReasonValidation:
		status = http.StatusBadRequest
	case apperr.ReasonForbidden:
		status = http.StatusForbidden
	case apperr.ReasonNotFound:
		status = http.StatusNotFound
	case apperr.ReasonInvalidTransition, apperr.ReasonSelfMatch, apperr.ReasonMatchNotAccepted, apperr.ReasonConflict:
		status = http.StatusConflict
	case apperr.ReasonRateLimited:
		status = http.StatusTooManyRequests
	}
	code := string(reason)
	if code == "" {
		code = "internal_error"
	}
	respondError(w, status, code, err.Error())
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, key))
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := []string{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
