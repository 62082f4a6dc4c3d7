package postgres

import (
	"context"
	"fmt"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
// The signal ID is deterministic, so a retried issue request collides here
// instead of producing a second executable signal.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.TradeSignal) error {
	query := `
		INSERT INTO trade_signals (
			signal_id, user_id, mint, symbol,
			amount, slippage_bps, status, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		sig.SignalID, sig.UserID, sig.Mint, sig.Symbol,
		sig.Amount, sig.SlippageBps, string(sig.Status), sig.CreatedAt, sig.ExpiresAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, signalID string) (*domain.TradeSignal, error) {
	query := `
		SELECT signal_id, user_id, mint, symbol,
			amount, slippage_bps, status, created_at, expires_at
		FROM trade_signals
		WHERE signal_id = $1
	`

	var sig domain.TradeSignal
	err := s.pool.QueryRow(ctx, query, signalID).Scan(
		&sig.SignalID, &sig.UserID, &sig.Mint, &sig.Symbol,
		&sig.Amount, &sig.SlippageBps, &sig.Status, &sig.CreatedAt, &sig.ExpiresAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade signal by id: %w", err)
	}
	return &sig, nil
}

// UpdateStatus moves a signal to a new status. Returns ErrNotFound if the
// signal does not exist.
func (s *SignalStore) UpdateStatus(ctx context.Context, signalID string, status domain.SignalStatus) error {
	query := `UPDATE trade_signals SET status = $2 WHERE signal_id = $1`

	tag, err := s.pool.Exec(ctx, query, signalID, string(status))
	if err != nil {
		return fmt.Errorf("update trade signal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountByStatus returns how many of the user's signals are in the given status.
func (s *SignalStore) CountByStatus(ctx context.Context, userID string, status domain.SignalStatus) (int, error) {
	query := `SELECT COUNT(*) FROM trade_signals WHERE user_id = $1 AND status = $2`

	var count int
	if err := s.pool.QueryRow(ctx, query, userID, string(status)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count trade signals by status: %w", err)
	}
	return count, nil
}
