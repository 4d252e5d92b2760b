package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appAudit "github.com/channelswap/channelswap/internal/application/audit"
	"github.com/channelswap/channelswap/internal/application/fanout"
	"github.com/channelswap/channelswap/internal/application/guard"
	appMatch "github.com/channelswap/channelswap/internal/application/match"
	appOffer "github.com/channelswap/channelswap/internal/application/offer"
	appReview "github.com/channelswap/channelswap/internal/application/review"
	"github.com/channelswap/channelswap/internal/domain/channel"
	"github.com/channelswap/channelswap/internal/infrastructure/memory"
	"github.com/channelswap/channelswap/internal/infrastructure/sse"
)

type apiFixture struct {
	router http.Handler
	hub    *sse.Hub

	userA, userB       uuid.UUID
	channelA, channelB uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	offerRepo := memory.NewOfferRepository(store)
	matchRepo := memory.NewMatchRepository(store)
	channelRepo := memory.NewChannelRepository(store)
	logRepo := memory.NewActionLogRepository(store)
	chatRepo := memory.NewChatRepository(store)
	reviewRepo := memory.NewReviewRepository(store)

	logger := zerolog.Nop()
	hub := sse.NewHub()
	auditSvc := appAudit.NewService(logRepo, logger, nil)
	guardSvc := guard.NewService(logRepo, auditSvc, logger)
	fanoutSvc := fanout.NewService(channelRepo, hub, logger)
	offerSvc := appOffer.NewService(offerRepo, channelRepo, txm, guardSvc, auditSvc, logger)
	matchSvc := appMatch.NewService(matchRepo, offerRepo, channelRepo, chatRepo, txm, auditSvc, fanoutSvc, logger)
	reviewSvc := appReview.NewService(reviewRepo, matchRepo, channelRepo, txm, auditSvc, logger)

	f := &apiFixture{
		router:   NewServer(offerSvc, matchSvc, reviewSvc, guardSvc, auditSvc, hub).Router(),
		hub:      hub,
		userA:    uuid.New(),
		userB:    uuid.New(),
		channelA: uuid.New(),
		channelB: uuid.New(),
	}

	now := time.Now().UTC()
	store.SeedChannel(&channel.Channel{ChannelID: f.channelA, OwnerUserID: f.userA, Subscribers: 500, Active: true, CreatedAt: now, UpdatedAt: now})
	store.SeedChannel(&channel.Channel{ChannelID: f.channelB, OwnerUserID: f.userB, Subscribers: 900, Active: true, CreatedAt: now, UpdatedAt: now})
	return f
}

func (f *apiFixture) do(t *testing.T, user uuid.UUID, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != uuid.Nil {
		req.Header.Set("X-User-ID", user.String())
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestMissingIdentityRejected(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, uuid.Nil, http.MethodGet, "/v1/offers", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOfferLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, f.userB, http.MethodPost, "/v1/offers", map[string]interface{}{
		"channel_id": f.channelB.String(),
		"kind":       "subs",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	offerID := decodeJSON(t, rec)["offerId"].(string)

	// Responding to your own offer conflicts.
	rec = f.do(t, f.userB, http.MethodPost, "/v1/offers/"+offerID+"/respond", map[string]interface{}{
		"channel_id": f.channelB.String(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "self_match", decodeJSON(t, rec)["error"])

	rec = f.do(t, f.userA, http.MethodPost, "/v1/offers/"+offerID+"/respond", map[string]interface{}{
		"channel_id": f.channelA.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, false, body["idempotent"])
	matchID := body["match"].(map[string]interface{})["matchId"].(string)

	// A repeated response returns the same match.
	rec = f.do(t, f.userA, http.MethodPost, "/v1/offers/"+offerID+"/respond", map[string]interface{}{
		"channel_id": f.channelA.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeJSON(t, rec)
	assert.Equal(t, true, body["idempotent"])
	assert.Equal(t, matchID, body["match"].(map[string]interface{})["matchId"])

	rec = f.do(t, f.userB, http.MethodPost, "/v1/matches/"+matchID+"/accept", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "accepted", decodeJSON(t, rec)["status"])

	rec = f.do(t, f.userA, http.MethodPost, "/v1/matches/"+matchID+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, f.userB, http.MethodPost, "/v1/matches/"+matchID+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decodeJSON(t, rec)["status"])

	rec = f.do(t, f.userA, http.MethodPost, "/v1/matches/"+matchID+"/reviews", map[string]interface{}{
		"rating": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestStrangerCannotActOnMatch(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, f.userB, http.MethodPost, "/v1/offers", map[string]interface{}{
		"channel_id": f.channelB.String(),
		"kind":       "views",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	offerID := decodeJSON(t, rec)["offerId"].(string)

	rec = f.do(t, f.userA, http.MethodPost, "/v1/offers/"+offerID+"/respond", map[string]interface{}{
		"channel_id": f.channelA.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	matchID := decodeJSON(t, rec)["match"].(map[string]interface{})["matchId"].(string)

	stranger := uuid.New()
	rec = f.do(t, stranger, http.MethodPost, "/v1/matches/"+matchID+"/accept", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, stranger, http.MethodGet, "/v1/matches/"+matchID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBulkMatchActionOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, f.userB, http.MethodPost, "/v1/offers", map[string]interface{}{
		"channel_id": f.channelB.String(),
		"kind":       "subs",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	offerID := decodeJSON(t, rec)["offerId"].(string)

	rec = f.do(t, f.userA, http.MethodPost, "/v1/offers/"+offerID+"/respond", map[string]interface{}{
		"channel_id": f.channelA.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	matchID := decodeJSON(t, rec)["match"].(map[string]interface{})["matchId"].(string)

	bogus := uuid.New().String()
	rec = f.do(t, f.userB, http.MethodPost, "/v1/matches/bulk", map[string]interface{}{
		"match_ids": []string{matchID, bogus},
		"action":    "accept",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)

	processed := body["processed"].([]interface{})
	require.Len(t, processed, 1)
	assert.Equal(t, matchID, processed[0])

	skipped := body["skipped"].([]interface{})
	require.Len(t, skipped, 1)
	entry := skipped[0].(map[string]interface{})
	assert.Equal(t, bogus, entry["matchId"])
	assert.Equal(t, "not_found", entry["reason"])
}

func TestRejectWithReasonOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, f.userB, http.MethodPost, "/v1/offers", map[string]interface{}{
		"channel_id": f.channelB.String(),
		"kind":       "subs",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	offerID := decodeJSON(t, rec)["offerId"].(string)

	rec = f.do(t, f.userA, http.MethodPost, "/v1/offers/"+offerID+"/respond", map[string]interface{}{
		"channel_id": f.channelA.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	matchID := decodeJSON(t, rec)["match"].(map[string]interface{})["matchId"].(string)

	rec = f.do(t, f.userB, http.MethodPost, "/v1/matches/"+matchID+"/reject", map[string]interface{}{
		"reason": "not a fit",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "rejected", decodeJSON(t, rec)["status"])

	// A bodyless reject works too.
	rec = f.do(t, f.userA, http.MethodPost, "/v1/offers/"+offerID+"/respond", map[string]interface{}{
		"channel_id": f.channelA.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	matchID = decodeJSON(t, rec)["match"].(map[string]interface{})["matchId"].(string)
	rec = f.do(t, f.userB, http.MethodPost, "/v1/matches/"+matchID+"/reject", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAdminLimits(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, f.userA, http.MethodGet, "/v1/admin/limits", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, float64(guard.DefaultOfferMax), body["offer_max"])

	rec = f.do(t, f.userA, http.MethodPut, "/v1/admin/limits", map[string]interface{}{
		"offer_max":          2,
		"offer_window_hours": 24,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, f.userA, http.MethodGet, "/v1/admin/limits", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeJSON(t, rec)
	assert.Equal(t, float64(2), body["offer_max"])
	assert.Equal(t, float64(24), body["offer_window_hours"])
}

func TestAdminOfferSync(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, f.userA, http.MethodPost, "/v1/admin/offers/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeJSON(t, rec)["created"])

	// Second run finds nothing to do.
	rec = f.do(t, f.userA, http.MethodPost, "/v1/admin/offers/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeJSON(t, rec)["created"])
}

func TestEventsDuplicateClientID(t *testing.T) {
	f := newAPIFixture(t)

	stream := func(ctx context.Context, user uuid.UUID) chan struct{} {
		done := make(chan struct{})
		go func() {
			defer close(done)
			req := httptest.NewRequest(http.MethodGet, "/v1/events?client_id=dup", nil).WithContext(ctx)
			req.Header.Set("X-User-ID", user.String())
			f.router.ServeHTTP(httptest.NewRecorder(), req)
		}()
		return done
	}

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	done1 := stream(ctx1, f.userA)
	require.Eventually(t, func() bool { return f.hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	done2 := stream(ctx2, f.userB)

	// The second connection registers under its own id instead of displacing
	// the first.
	require.Eventually(t, func() bool { return f.hub.GetClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.NotNil(t, f.hub.GetClient("dup"))

	// Closing the first stream leaves the second connected.
	cancel1()
	<-done1
	require.Eventually(t, func() bool { return f.hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel2()
	<-done2
}

func TestAuditQuery(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, f.userB, http.MethodPost, "/v1/offers", map[string]interface{}{
		"channel_id": f.channelB.String(),
		"kind":       "subs",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, f.userA, http.MethodGet, "/v1/admin/audit?action=offer_created", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeJSON(t, rec)["entries"].([]interface{})
	assert.Len(t, entries, 1)
}
