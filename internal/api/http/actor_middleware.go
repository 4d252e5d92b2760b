package httpapi

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"
)

// Actor is the authenticated caller. Authentication happens upstream; the
// gateway forwards the verified user id in X-User-ID.
type Actor struct {
	UserID uuid.UUID
	IP     string
}

type actorCtxKey struct{}

// requireActor rejects requests that carry no verified identity.
func (s *Server) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "X-User-ID header required")
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid X-User-ID header")
			return
		}

		actor := Actor{UserID: userID, IP: requestIP(r)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorCtxKey{}, actor)))
	})
}

func actorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorCtxKey{}).(Actor)
	return actor
}

func requestIP(r *http.Request) string {
	// middleware.RealIP already rewrote RemoteAddr from the forwarding
	// headers when present.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
