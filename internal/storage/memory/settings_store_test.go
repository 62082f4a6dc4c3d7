package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

func TestSettingsStore_UpsertAndGet(t *testing.T) {
	store := NewSettingsStore()
	ctx := context.Background()

	s := &domain.UserTradeSettings{
		UserID:              "user-1",
		MinLiquidity:        25_000,
		TakeProfitPercent:   100,
		StopLossPercent:     30,
		TradeAmount:         0.5,
		MaxConcurrentTrades: 3,
		Priority:            domain.PriorityFast,
		Blacklist:           []string{"BadMint"},
	}
	require.NoError(t, store.Upsert(ctx, s))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	// Stored copy is independent of the caller's value.
	s.MinLiquidity = 99
	got2, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 25_000.0, got2.MinLiquidity)
}

func TestSettingsStore_UpsertReplaces(t *testing.T) {
	store := NewSettingsStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.UserTradeSettings{UserID: "user-1", TradeAmount: 0.1}))
	require.NoError(t, store.Upsert(ctx, &domain.UserTradeSettings{UserID: "user-1", TradeAmount: 0.2}))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0.2, got.TradeAmount)
}

func TestSettingsStore_GetMissing(t *testing.T) {
	store := NewSettingsStore()

	_, err := store.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSettingsStore_ListSorted(t *testing.T) {
	store := NewSettingsStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.UserTradeSettings{UserID: "user-b"}))
	require.NoError(t, store.Upsert(ctx, &domain.UserTradeSettings{UserID: "user-a"}))
	require.NoError(t, store.Upsert(ctx, &domain.UserTradeSettings{UserID: "user-c"}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "user-a", list[0].UserID)
	assert.Equal(t, "user-b", list[1].UserID)
	assert.Equal(t, "user-c", list[2].UserID)
}

func TestAuditStore_AppendIsolation(t *testing.T) {
	store := NewAuditStore()
	ctx := context.Background()

	r := &domain.AuditRecord{
		Kind:      domain.AuditAdmission,
		UserID:    "user-1",
		Mint:      "MintA",
		Verdict:   "REJECTED",
		Reasons:   []string{"liquidity below minimum"},
		Timestamp: 1700000000000,
	}
	require.NoError(t, store.Append(ctx, r))

	r.Reasons[0] = "mutated"
	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "liquidity below minimum", records[0].Reasons[0])
}
