package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
//
// A partial unique index on (user_id, mint) WHERE status = 'OPEN' enforces
// the one-open-position-per-user-per-mint rule at the database level, so
// concurrent inserts race safely.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists
// or the user already has an open position for the mint.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions (
			position_id, user_id, mint, symbol,
			entry_price, amount, entry_value,
			current_price, current_value,
			take_profit_percent, stop_loss_percent,
			status, exit_reason, pending_signature,
			opened_at, closed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9,
			$10, $11,
			$12, $13, $14,
			$15, $16
		)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PositionID, p.UserID, p.Mint, p.Symbol,
		p.EntryPrice, p.Amount, p.EntryValue,
		p.CurrentPrice, p.CurrentValue,
		p.TakeProfitPercent, p.StopLossPercent,
		string(p.Status), p.ExitReason, p.PendingSignature,
		p.OpenedAt, p.ClosedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, positionID string) (*domain.Position, error) {
	query := selectPositionColumns + ` WHERE position_id = $1`

	row := s.pool.QueryRow(ctx, query, positionID)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// GetOpen retrieves all open positions across users, ordered by opened_at.
func (s *PositionStore) GetOpen(ctx context.Context) ([]*domain.Position, error) {
	query := selectPositionColumns + `
		WHERE status = 'OPEN'
		ORDER BY opened_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return positions, nil
}

// CountOpen returns the user's open position count.
func (s *PositionStore) CountOpen(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM positions WHERE user_id = $1 AND status = 'OPEN'`

	var count int
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count open positions: %w", err)
	}
	return count, nil
}

// UpdatePrice refreshes the position's current price and value.
func (s *PositionStore) UpdatePrice(ctx context.Context, positionID string, price, value float64) error {
	query := `UPDATE positions SET current_price = $2, current_value = $3 WHERE position_id = $1`

	tag, err := s.pool.Exec(ctx, query, positionID, price, value)
	if err != nil {
		return fmt.Errorf("update position price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkPendingSignature flags an exit awaiting external signing.
func (s *PositionStore) MarkPendingSignature(ctx context.Context, positionID string) error {
	query := `UPDATE positions SET pending_signature = TRUE WHERE position_id = $1`

	tag, err := s.pool.Exec(ctx, query, positionID)
	if err != nil {
		return fmt.Errorf("mark position pending signature: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close transitions an open position to closed. The WHERE clause restricts
// the update to open rows; a zero row count on an existing position means it
// was already closed, which is ErrInvalidInput rather than ErrNotFound.
func (s *PositionStore) Close(ctx context.Context, positionID string, exitReason string, closedAtMs int64) error {
	query := `
		UPDATE positions
		SET status = 'CLOSED', exit_reason = $2, closed_at = $3, pending_signature = FALSE
		WHERE position_id = $1 AND status != 'CLOSED'
	`

	tag, err := s.pool.Exec(ctx, query, positionID, exitReason, closedAtMs)
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM positions WHERE position_id = $1)`
		if err := s.pool.QueryRow(ctx, checkQuery, positionID).Scan(&exists); err != nil {
			return fmt.Errorf("check position exists: %w", err)
		}
		if exists {
			return storage.ErrInvalidInput
		}
		return storage.ErrNotFound
	}
	return nil
}

const selectPositionColumns = `
	SELECT
		position_id, user_id, mint, symbol,
		entry_price, amount, entry_value,
		current_price, current_value,
		take_profit_percent, stop_loss_percent,
		status, exit_reason, pending_signature,
		opened_at, closed_at
	FROM positions`

// scanPosition scans a single row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position

	err := row.Scan(
		&p.PositionID, &p.UserID, &p.Mint, &p.Symbol,
		&p.EntryPrice, &p.Amount, &p.EntryValue,
		&p.CurrentPrice, &p.CurrentValue,
		&p.TakeProfitPercent, &p.StopLossPercent,
		&p.Status, &p.ExitReason, &p.PendingSignature,
		&p.OpenedAt, &p.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}
