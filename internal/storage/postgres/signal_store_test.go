package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

func newTestSignal(id, userID, mint string) *domain.TradeSignal {
	return &domain.TradeSignal{
		SignalID:    id,
		UserID:      userID,
		Mint:        mint,
		Symbol:      "TEST",
		Amount:      0.5,
		SlippageBps: domain.SlippageFastBps,
		Status:      domain.SignalPending,
		CreatedAt:   1700000000000,
		ExpiresAt:   1700000300000,
	}
}

func TestSignalStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	sig := newTestSignal("sig-1", "user-1", "MintA")
	require.NoError(t, store.Insert(ctx, sig))

	got, err := store.GetByID(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	require.NoError(t, store.Insert(ctx, newTestSignal("sig-1", "user-1", "MintA")))

	// Deterministic IDs make a retried issue collide here.
	err := store.Insert(ctx, newTestSignal("sig-1", "user-1", "MintA"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSignalStore_UpdateStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	require.NoError(t, store.Insert(ctx, newTestSignal("sig-1", "user-1", "MintA")))
	require.NoError(t, store.UpdateStatus(ctx, "sig-1", domain.SignalExecuted))

	got, err := store.GetByID(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SignalExecuted, got.Status)

	err = store.UpdateStatus(ctx, "missing", domain.SignalCancelled)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStore_CountByStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	require.NoError(t, store.Insert(ctx, newTestSignal("sig-1", "user-1", "MintA")))
	require.NoError(t, store.Insert(ctx, newTestSignal("sig-2", "user-1", "MintB")))
	require.NoError(t, store.Insert(ctx, newTestSignal("sig-3", "user-2", "MintA")))
	require.NoError(t, store.UpdateStatus(ctx, "sig-2", domain.SignalExpired))

	count, err := store.CountByStatus(ctx, "user-1", domain.SignalPending)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountByStatus(ctx, "user-2", domain.SignalPending)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountByStatus(ctx, "user-3", domain.SignalPending)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
