package storage

import (
	"context"

	"solana-trade-sentry/internal/domain"
)

// SettingsStore provides access to per-user trade settings.
type SettingsStore interface {
	// Get retrieves a user's settings. Returns ErrNotFound if not exists.
	Get(ctx context.Context, userID string) (*domain.UserTradeSettings, error)

	// Upsert inserts or replaces a user's settings.
	Upsert(ctx context.Context, s *domain.UserTradeSettings) error

	// List retrieves settings for every configured user.
	List(ctx context.Context) ([]*domain.UserTradeSettings, error)
}

// SignalStore provides access to trade signal storage.
type SignalStore interface {
	// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, s *domain.TradeSignal) error

	// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, signalID string) (*domain.TradeSignal, error)

	// UpdateStatus moves a signal to a new status. Returns ErrNotFound if
	// the signal does not exist.
	UpdateStatus(ctx context.Context, signalID string, status domain.SignalStatus) error

	// CountByStatus returns how many of the user's signals are in the
	// given status. Used by the issuer's concurrency cap check.
	CountByStatus(ctx context.Context, userID string, status domain.SignalStatus) (int, error)
}

// PositionStore provides access to position storage. Positions are never
// deleted; closing is a status transition.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if position_id
	// exists or the user already has an open position for the mint.
	Insert(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, positionID string) (*domain.Position, error)

	// GetOpen retrieves all open positions across users, ordered by
	// opened_at ASC. The exit engine's poll works off this set.
	GetOpen(ctx context.Context) ([]*domain.Position, error)

	// CountOpen returns the user's open position count. Used by the
	// issuer's concurrency cap check.
	CountOpen(ctx context.Context, userID string) (int, error)

	// UpdatePrice refreshes the position's current price and value.
	UpdatePrice(ctx context.Context, positionID string, price, value float64) error

	// MarkPendingSignature flags an exit awaiting external signing. The
	// position stays open.
	MarkPendingSignature(ctx context.Context, positionID string) error

	// Close transitions an open position to closed with the exit reason.
	// Closing an already-closed position returns ErrInvalidInput: there is
	// no transition back.
	Close(ctx context.Context, positionID string, exitReason string, closedAtMs int64) error
}

// AuditStore is the append-only decision trace sink.
type AuditStore interface {
	// Append writes one audit record. Append-only: no reads, no updates.
	Append(ctx context.Context, r *domain.AuditRecord) error
}
