package postgres

import (
	"context"
	"fmt"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

// SettingsStore implements storage.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *Pool
}

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(pool *Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettingsStore = (*SettingsStore)(nil)

// Get retrieves a user's settings. Returns ErrNotFound if not exists.
func (s *SettingsStore) Get(ctx context.Context, userID string) (*domain.UserTradeSettings, error) {
	query := `
		SELECT user_id, min_liquidity, take_profit_percent, stop_loss_percent,
			trade_amount, max_concurrent_trades, priority,
			category_filters, blacklist, whitelist
		FROM user_trade_settings
		WHERE user_id = $1
	`

	var u domain.UserTradeSettings
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&u.UserID, &u.MinLiquidity, &u.TakeProfitPercent, &u.StopLossPercent,
		&u.TradeAmount, &u.MaxConcurrentTrades, &u.Priority,
		&u.CategoryFilters, &u.Blacklist, &u.Whitelist,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user trade settings: %w", err)
	}
	return &u, nil
}

// Upsert inserts or replaces a user's settings.
func (s *SettingsStore) Upsert(ctx context.Context, u *domain.UserTradeSettings) error {
	query := `
		INSERT INTO user_trade_settings (
			user_id, min_liquidity, take_profit_percent, stop_loss_percent,
			trade_amount, max_concurrent_trades, priority,
			category_filters, blacklist, whitelist
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			min_liquidity = EXCLUDED.min_liquidity,
			take_profit_percent = EXCLUDED.take_profit_percent,
			stop_loss_percent = EXCLUDED.stop_loss_percent,
			trade_amount = EXCLUDED.trade_amount,
			max_concurrent_trades = EXCLUDED.max_concurrent_trades,
			priority = EXCLUDED.priority,
			category_filters = EXCLUDED.category_filters,
			blacklist = EXCLUDED.blacklist,
			whitelist = EXCLUDED.whitelist
	`

	_, err := s.pool.Exec(ctx, query,
		u.UserID, u.MinLiquidity, u.TakeProfitPercent, u.StopLossPercent,
		u.TradeAmount, u.MaxConcurrentTrades, string(u.Priority),
		u.CategoryFilters, u.Blacklist, u.Whitelist,
	)
	if err != nil {
		return fmt.Errorf("upsert user trade settings: %w", err)
	}
	return nil
}

// List retrieves settings for every configured user.
func (s *SettingsStore) List(ctx context.Context) ([]*domain.UserTradeSettings, error) {
	query := `
		SELECT user_id, min_liquidity, take_profit_percent, stop_loss_percent,
			trade_amount, max_concurrent_trades, priority,
			category_filters, blacklist, whitelist
		FROM user_trade_settings
		ORDER BY user_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list user trade settings: %w", err)
	}
	defer rows.Close()

	var settings []*domain.UserTradeSettings
	for rows.Next() {
		var u domain.UserTradeSettings
		err := rows.Scan(
			&u.UserID, &u.MinLiquidity, &u.TakeProfitPercent, &u.StopLossPercent,
			&u.TradeAmount, &u.MaxConcurrentTrades, &u.Priority,
			&u.CategoryFilters, &u.Blacklist, &u.Whitelist,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user trade settings row: %w", err)
		}
		settings = append(settings, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user trade settings rows: %w", err)
	}
	return settings, nil
}
