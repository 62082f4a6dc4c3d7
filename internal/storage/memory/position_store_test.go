package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

func testPosition(id, userID, mint string) *domain.Position {
	return &domain.Position{
		PositionID:        id,
		UserID:            userID,
		Mint:              mint,
		EntryPrice:        1.0,
		Amount:            100,
		EntryValue:        100,
		TakeProfitPercent: 50,
		StopLossPercent:   20,
		Status:            domain.PositionOpen,
		ExitReason:        domain.ExitReasonNone,
		OpenedAt:          1700000000000,
	}
}

func TestPositionStore_InsertAndGet(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := testPosition("pos-1", "user-1", "MintA")
	require.NoError(t, store.Insert(ctx, p))

	got, err := store.GetByID(ctx, "pos-1")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestPositionStore_UniqueOpenPerUserAndMint(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testPosition("pos-1", "user-1", "MintA")))

	// Same user+mint while open: rejected.
	err := store.Insert(ctx, testPosition("pos-2", "user-1", "MintA"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Different mint or user: fine.
	require.NoError(t, store.Insert(ctx, testPosition("pos-3", "user-1", "MintB")))
	require.NoError(t, store.Insert(ctx, testPosition("pos-4", "user-2", "MintA")))

	// After closing, the user may re-enter the same mint.
	require.NoError(t, store.Close(ctx, "pos-1", domain.ExitReasonTakeProfit, 1700000100000))
	require.NoError(t, store.Insert(ctx, testPosition("pos-5", "user-1", "MintA")))
}

func TestPositionStore_GetOpenOrdered(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	late := testPosition("pos-late", "user-1", "MintA")
	late.OpenedAt = 1700000002000
	early := testPosition("pos-early", "user-2", "MintB")
	early.OpenedAt = 1700000001000
	closed := testPosition("pos-closed", "user-3", "MintC")
	closed.Status = domain.PositionClosed

	require.NoError(t, store.Insert(ctx, late))
	require.NoError(t, store.Insert(ctx, early))
	require.NoError(t, store.Insert(ctx, closed))

	open, err := store.GetOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2, "closed positions excluded")
	assert.Equal(t, "pos-early", open[0].PositionID)
	assert.Equal(t, "pos-late", open[1].PositionID)
}

func TestPositionStore_CountOpen(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testPosition("pos-1", "user-1", "MintA")))
	require.NoError(t, store.Insert(ctx, testPosition("pos-2", "user-1", "MintB")))
	require.NoError(t, store.Close(ctx, "pos-2", domain.ExitReasonStopLoss, 1700000100000))

	count, err := store.CountOpen(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPositionStore_UpdatePrice(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testPosition("pos-1", "user-1", "MintA")))
	require.NoError(t, store.UpdatePrice(ctx, "pos-1", 1.5, 150))

	got, err := store.GetByID(ctx, "pos-1")
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.CurrentPrice)
	assert.Equal(t, 150.0, got.CurrentValue)
}

func TestPositionStore_CloseIsTerminal(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testPosition("pos-1", "user-1", "MintA")))
	require.NoError(t, store.Close(ctx, "pos-1", domain.ExitReasonSoldExternally, 1700000100000))

	got, err := store.GetByID(ctx, "pos-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PositionClosed, got.Status)
	assert.Equal(t, domain.ExitReasonSoldExternally, got.ExitReason)
	assert.Equal(t, int64(1700000100000), got.ClosedAt)

	// No transition out of closed.
	err = store.Close(ctx, "pos-1", domain.ExitReasonTakeProfit, 1700000200000)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestPositionStore_MarkPendingSignature(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testPosition("pos-1", "user-1", "MintA")))
	require.NoError(t, store.MarkPendingSignature(ctx, "pos-1"))

	got, err := store.GetByID(ctx, "pos-1")
	require.NoError(t, err)
	assert.True(t, got.PendingSignature)
	assert.Equal(t, domain.PositionOpen, got.Status, "pending signature keeps the position open")
}
