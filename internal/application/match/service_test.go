package match

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appAudit "github.com/channelswap/channelswap/internal/application/audit"
	"github.com/channelswap/channelswap/internal/application/fanout"
	"github.com/channelswap/channelswap/internal/domain/actionlog"
	"github.com/channelswap/channelswap/internal/domain/apperr"
	"github.com/channelswap/channelswap/internal/domain/channel"
	"github.com/channelswap/channelswap/internal/domain/match"
	"github.com/channelswap/channelswap/internal/domain/notify"
	"github.com/channelswap/channelswap/internal/domain/offer"
	"github.com/channelswap/channelswap/internal/infrastructure/memory"
	"github.com/channelswap/channelswap/internal/infrastructure/sse"
)

type fixture struct {
	svc       *Service
	store     *memory.Store
	offerRepo *memory.OfferRepository
	matchRepo *memory.MatchRepository
	logRepo   *memory.ActionLogRepository
	hub       *sse.Hub

	userA, userB, userC          uuid.UUID
	channelA, channelB, channelC uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	offerRepo := memory.NewOfferRepository(store)
	matchRepo := memory.NewMatchRepository(store)
	channelRepo := memory.NewChannelRepository(store)
	logRepo := memory.NewActionLogRepository(store)
	chatRepo := memory.NewChatRepository(store)

	logger := zerolog.Nop()
	auditSvc := appAudit.NewService(logRepo, logger, []byte("test-key"))
	hub := sse.NewHub()
	fanoutSvc := fanout.NewService(channelRepo, hub, logger)

	f := &fixture{
		svc:       NewService(matchRepo, offerRepo, channelRepo, chatRepo, txm, auditSvc, fanoutSvc, logger),
		store:     store,
		offerRepo: offerRepo,
		matchRepo: matchRepo,
		logRepo:   logRepo,
		hub:       hub,
		userA:     uuid.New(),
		userB:     uuid.New(),
		userC:     uuid.New(),
		channelA:  uuid.New(),
		channelB:  uuid.New(),
		channelC:  uuid.New(),
	}

	now := time.Now().UTC()
	for _, c := range []*channel.Channel{
		{ChannelID: f.channelA, OwnerUserID: f.userA, Title: "A", Subscribers: 500, Active: true, CreatedAt: now, UpdatedAt: now},
		{ChannelID: f.channelB, OwnerUserID: f.userB, Title: "B", Subscribers: 800, Active: true, CreatedAt: now, UpdatedAt: now},
		{ChannelID: f.channelC, OwnerUserID: f.userC, Title: "C", Subscribers: 300, Active: true, CreatedAt: now, UpdatedAt: now},
	} {
		store.SeedChannel(c)
	}
	return f
}

// openOffer publishes an offer from channelB directly through the repo.
func (f *fixture) openOffer(t *testing.T) *offer.Offer {
	t.Helper()
	o, err := offer.New(f.channelB, offer.KindSubs, offer.Constraints{})
	require.NoError(t, err)
	require.NoError(t, f.offerRepo.Create(context.Background(), o))
	return o
}

func (f *fixture) countEntries(t *testing.T, action actionlog.Action) int {
	t.Helper()
	entries, err := f.logRepo.List(context.Background(), actionlog.Filter{Action: &action}, 100, 0)
	require.NoError(t, err)
	return len(entries)
}

func TestRespondToOfferCreatesPendingMatch(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, idempotent, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "198.51.100.1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.False(t, idempotent)
	assert.Equal(t, match.StatusPending, m.Status)
	assert.Equal(t, f.channelA, m.InitiatorChannelID)
	assert.Equal(t, f.channelB, m.TargetChannelID)
	assert.GreaterOrEqual(t, m.Score, 0.0)
	assert.LessOrEqual(t, m.Score, 1.0)

	stored, err := f.offerRepo.GetByID(ctx, o.OfferID)
	require.NoError(t, err)
	assert.Equal(t, offer.StatusMatched, stored.Status)

	assert.Equal(t, 1, f.countEntries(t, actionlog.ActionMatchCreated))
}

func TestRespondToOwnOfferRejected(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)

	_, _, err := f.svc.RespondToOffer(context.Background(), f.userB, f.channelB, o.OfferID, "")
	assert.True(t, apperr.Is(err, apperr.ReasonSelfMatch), "got %v", err)
}

func TestRespondIdempotent(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	first, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	second, idempotent, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)
	assert.True(t, idempotent)
	assert.Equal(t, first.MatchID, second.MatchID)

	count, err := f.matchRepo.CountActiveByOffer(ctx, o.OfferID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, f.countEntries(t, actionlog.ActionMatchRespondIdempotent))
}

func TestRespondToMatchedOfferBlocked(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	_, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	_, _, err = f.svc.RespondToOffer(ctx, f.userC, f.channelC, o.OfferID, "")
	assert.True(t, apperr.Is(err, apperr.ReasonInvalidTransition), "got %v", err)
}

func TestRespondConcurrentSamePair(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
			if m != nil {
				ids[i] = m.MatchID
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	count, err := f.matchRepo.CountActiveByOffer(ctx, o.OfferID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAcceptByTarget(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	accepted, err := f.svc.Accept(ctx, f.userB, m.MatchID, "")
	require.NoError(t, err)
	assert.Equal(t, match.StatusAccepted, accepted.Status)
	assert.Equal(t, 1, f.countEntries(t, actionlog.ActionSwapAccepted))
}

func TestAcceptByInitiatorForbidden(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, f.userA, m.MatchID, "")
	assert.True(t, apperr.Is(err, apperr.ReasonForbidden), "got %v", err)
}

func TestAcceptByStrangerForbidden(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, f.userC, m.MatchID, "")
	assert.True(t, apperr.Is(err, apperr.ReasonForbidden), "got %v", err)
}

func TestRejectReopensOffer(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, f.userA, m.MatchID, "", "")
	require.NoError(t, err)
	assert.Equal(t, match.StatusRejected, rejected.Status)

	stored, err := f.offerRepo.GetByID(ctx, o.OfferID)
	require.NoError(t, err)
	assert.Equal(t, offer.StatusOpen, stored.Status)

	// The slot is free again: a new response creates a fresh match.
	again, idempotent, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)
	assert.False(t, idempotent)
	assert.NotEqual(t, m.MatchID, again.MatchID)
}

func TestRejectRecordsReasonAndSide(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, f.userB, m.MatchID, "audience mismatch", "")
	require.NoError(t, err)

	action := actionlog.ActionSwapRejected
	entries, err := f.logRepo.List(ctx, actionlog.Filter{Action: &action}, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(entries[0].Details, &details))
	assert.Equal(t, "audience mismatch", details["reason"])
	assert.Equal(t, string(match.SideTarget), details["side"])
}

func TestRejectNotifiesCounterparty(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	client := notify.NewClient("c1", f.userA.String(), nil)
	f.hub.Register(client)
	defer f.hub.Unregister("c1")

	_, err = f.svc.Reject(ctx, f.userB, m.MatchID, "", "")
	require.NoError(t, err)

	found := false
	for len(client.MessageChan) > 0 {
		msg := <-client.MessageChan
		if msg.Event != notify.EventNotificationNew {
			continue
		}
		var n notify.UserNotification
		require.NoError(t, json.Unmarshal(msg.Data, &n))
		if n.Type == "swap_rejected" {
			found = true
		}
	}
	assert.True(t, found, "initiator never received the rejection notification")
}

func TestDeferRecordsNote(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	_, err = f.svc.Defer(ctx, f.userB, m.MatchID, "back next week", "")
	require.NoError(t, err)

	action := actionlog.ActionSwapDeferred
	entries, err := f.logRepo.List(ctx, actionlog.Filter{Action: &action}, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(entries[0].Details, &details))
	assert.Equal(t, "back next week", details["note"])
	assert.Equal(t, string(match.SideTarget), details["side"])
}

func TestRejectAcceptedMatch(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.userB, m.MatchID, "")
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, f.userB, m.MatchID, "", "")
	require.NoError(t, err)
	assert.Equal(t, match.StatusRejected, rejected.Status)

	stored, err := f.offerRepo.GetByID(ctx, o.OfferID)
	require.NoError(t, err)
	assert.Equal(t, offer.StatusOpen, stored.Status)
}

func TestRejectTerminalMatchFails(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.userA, m.MatchID, "", "")
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, f.userA, m.MatchID, "", "")
	assert.True(t, apperr.Is(err, apperr.ReasonInvalidTransition), "got %v", err)
}

func TestDeferExtendsDeadline(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	deferred, err := f.svc.Defer(ctx, f.userB, m.MatchID, "", "")
	require.NoError(t, err)
	assert.Equal(t, match.StatusPending, deferred.Status)
	assert.WithinDuration(t, time.Now().UTC().Add(match.DeferWindow), deferred.RespondBy, time.Minute)
	assert.Equal(t, 1, f.countEntries(t, actionlog.ActionSwapDeferred))
}

func TestDeferByInitiatorForbidden(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	_, err = f.svc.Defer(ctx, f.userA, m.MatchID, "", "")
	assert.True(t, apperr.Is(err, apperr.ReasonForbidden), "got %v", err)
}

func TestConfirmDualCompletion(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.userB, m.MatchID, "")
	require.NoError(t, err)

	afterFirst, err := f.svc.ConfirmCompletion(ctx, f.userA, m.MatchID, "")
	require.NoError(t, err)
	assert.Equal(t, match.StatusAccepted, afterFirst.Status)
	assert.True(t, afterFirst.InitiatorConfirmed)
	assert.False(t, afterFirst.TargetConfirmed)

	afterSecond, err := f.svc.ConfirmCompletion(ctx, f.userB, m.MatchID, "")
	require.NoError(t, err)
	assert.Equal(t, match.StatusCompleted, afterSecond.Status)
	assert.True(t, afterSecond.BothConfirmed())
	require.NotNil(t, afterSecond.CompletedAt)

	stored, err := f.offerRepo.GetByID(ctx, o.OfferID)
	require.NoError(t, err)
	assert.Equal(t, offer.StatusCompleted, stored.Status)
	assert.Equal(t, 2, f.countEntries(t, actionlog.ActionSwapCompletionConfirmed))
}

func TestConfirmTwiceSameSideDoesNotComplete(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.userB, m.MatchID, "")
	require.NoError(t, err)

	_, err = f.svc.ConfirmCompletion(ctx, f.userA, m.MatchID, "")
	require.NoError(t, err)
	again, err := f.svc.ConfirmCompletion(ctx, f.userA, m.MatchID, "")
	require.NoError(t, err)

	assert.Equal(t, match.StatusAccepted, again.Status)
	assert.False(t, again.TargetConfirmed)
}

func TestConfirmConcurrentBothSides(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.userB, m.MatchID, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, user := range []uuid.UUID{f.userA, f.userB} {
		wg.Add(1)
		go func(user uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.ConfirmCompletion(ctx, user, m.MatchID, "")
			assert.NoError(t, err)
		}(user)
	}
	wg.Wait()

	stored, err := f.matchRepo.GetByID(ctx, m.MatchID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusCompleted, stored.Status)
	assert.True(t, stored.BothConfirmed())
}

func TestConfirmPendingMatchFails(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	_, err = f.svc.ConfirmCompletion(ctx, f.userA, m.MatchID, "")
	assert.True(t, apperr.Is(err, apperr.ReasonMatchNotAccepted), "got %v", err)

	// The failure leaves a compensating entry, written outside the rolled
	// back transaction.
	require.Eventually(t, func() bool {
		return f.countEntries(t, actionlog.ActionSwapCompletionFailed) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConfirmCompletedMatchFails(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.userB, m.MatchID, "")
	require.NoError(t, err)
	_, err = f.svc.ConfirmCompletion(ctx, f.userA, m.MatchID, "")
	require.NoError(t, err)
	_, err = f.svc.ConfirmCompletion(ctx, f.userB, m.MatchID, "")
	require.NoError(t, err)

	_, err = f.svc.ConfirmCompletion(ctx, f.userA, m.MatchID, "")
	assert.True(t, apperr.Is(err, apperr.ReasonMatchNotAccepted), "got %v", err)

	stored, err := f.matchRepo.GetByID(ctx, m.MatchID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusCompleted, stored.Status)

	require.Eventually(t, func() bool {
		return f.countEntries(t, actionlog.ActionSwapCompletionFailed) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConfirmByStrangerLeavesFailureRecord(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.userB, m.MatchID, "")
	require.NoError(t, err)

	_, err = f.svc.ConfirmCompletion(ctx, f.userC, m.MatchID, "")
	assert.True(t, apperr.Is(err, apperr.ReasonForbidden), "got %v", err)

	require.Eventually(t, func() bool {
		return f.countEntries(t, actionlog.ActionSwapCompletionFailed) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBulkAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.openOffer(t)
	m1, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, first.OfferID, "")
	require.NoError(t, err)

	second := f.openOffer(t)
	m2, _, err := f.svc.RespondToOffer(ctx, f.userC, f.channelC, second.OfferID, "")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.userB, m2.MatchID, "", "")
	require.NoError(t, err)

	results, err := f.svc.BulkAction(ctx, f.userB, []uuid.UUID{m1.MatchID, m2.MatchID}, "accept", "", "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.Equal(t, apperr.ReasonInvalidTransition, results[1].Reason)

	stored, err := f.matchRepo.GetByID(ctx, m1.MatchID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusAccepted, stored.Status)
}

func TestBulkActionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BulkAction(ctx, f.userB, nil, "accept", "", "")
	assert.True(t, apperr.Is(err, apperr.ReasonValidation))

	_, err = f.svc.BulkAction(ctx, f.userB, []uuid.UUID{uuid.New()}, "explode", "", "")
	assert.True(t, apperr.Is(err, apperr.ReasonValidation))
}

func TestGetMatchRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	o := f.openOffer(t)
	ctx := context.Background()

	m, _, err := f.svc.RespondToOffer(ctx, f.userA, f.channelA, o.OfferID, "")
	require.NoError(t, err)

	_, err = f.svc.GetMatch(ctx, f.userC, m.MatchID)
	assert.True(t, apperr.Is(err, apperr.ReasonForbidden), "got %v", err)

	got, err := f.svc.GetMatch(ctx, f.userB, m.MatchID)
	require.NoError(t, err)
	assert.Equal(t, m.MatchID, got.MatchID)
}
