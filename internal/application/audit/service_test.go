package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelswap/channelswap/internal/domain/actionlog"
	"github.com/channelswap/channelswap/internal/infrastructure/memory"
)

func TestLogSyncSignsEntries(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewActionLogRepository(store)
	svc := NewService(repo, zerolog.Nop(), []byte("test-key"))
	ctx := context.Background()

	actor := uuid.New()
	require.NoError(t, svc.LogSync(ctx, &actor, actionlog.ActionOfferCreated, map[string]interface{}{
		"channel_id": uuid.New().String(),
	}, "198.51.100.1"))

	action := actionlog.ActionOfferCreated
	entries, err := repo.List(ctx, actionlog.Filter{Action: &action}, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].Signature)

	ok, err := svc.Verify(entries[0])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogSyncWithoutKeySkipsSignature(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewActionLogRepository(store)
	svc := NewService(repo, zerolog.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, svc.LogSync(ctx, nil, actionlog.ActionAutoOfferCreated, nil, ""))

	entries, err := repo.List(ctx, actionlog.Filter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Signature)
	assert.Nil(t, entries[0].ActorUserID)
}

func TestQueryClampsLimit(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewActionLogRepository(store)
	svc := NewService(repo, zerolog.Nop(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.LogSync(ctx, nil, actionlog.ActionMatchCreated, nil, ""))
	}

	entries, err := svc.Query(ctx, actionlog.Filter{}, -1, -5)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
