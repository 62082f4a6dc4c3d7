package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

func TestSettingsStore_UpsertGetList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSettingsStore(pool)

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	s := &domain.UserTradeSettings{
		UserID:              "user-1",
		MinLiquidity:        50_000,
		TakeProfitPercent:   100,
		StopLossPercent:     30,
		TradeAmount:         0.5,
		MaxConcurrentTrades: 3,
		Priority:            domain.PriorityTurbo,
		CategoryFilters:     []string{"meme"},
		Blacklist:           []string{"BadMint"},
		Whitelist:           []string{},
	}
	require.NoError(t, store.Upsert(ctx, s))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	// Upsert replaces in place.
	s.TradeAmount = 1.5
	s.Blacklist = []string{"BadMint", "WorseMint"}
	require.NoError(t, store.Upsert(ctx, s))

	got, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.TradeAmount)
	assert.Equal(t, []string{"BadMint", "WorseMint"}, got.Blacklist)

	require.NoError(t, store.Upsert(ctx, &domain.UserTradeSettings{
		UserID:          "user-0",
		Priority:        domain.PriorityNormal,
		CategoryFilters: []string{},
		Blacklist:       []string{},
		Whitelist:       []string{},
	}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "user-0", list[0].UserID)
	assert.Equal(t, "user-1", list[1].UserID)
}
