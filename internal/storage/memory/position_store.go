package memory

import (
	"context"
	"sort"
	"sync"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
// It enforces the same uniqueness constraint as the SQL schema: at most one
// open position per user and mint.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by position_id
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists
// or the user already holds the mint open.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" || p.UserID == "" || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; exists {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.data {
		if existing.UserID == p.UserID && existing.Mint == p.Mint && existing.Status == domain.PositionOpen {
			return storage.ErrDuplicateKey
		}
	}

	pCopy := *p
	s.data[p.PositionID] = &pCopy
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	pCopy := *p
	return &pCopy, nil
}

// GetOpen retrieves all open positions, ordered by opened_at ASC.
func (s *PositionStore) GetOpen(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Position, 0)
	for _, p := range s.data {
		if p.Status == domain.PositionOpen {
			pCopy := *p
			out = append(out, &pCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt != out[j].OpenedAt {
			return out[i].OpenedAt < out[j].OpenedAt
		}
		return out[i].PositionID < out[j].PositionID
	})
	return out, nil
}

// CountOpen returns the user's open position count.
func (s *PositionStore) CountOpen(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.data {
		if p.UserID == userID && p.Status == domain.PositionOpen {
			count++
		}
	}
	return count, nil
}

// UpdatePrice refreshes the position's current price and value.
func (s *PositionStore) UpdatePrice(_ context.Context, positionID string, price, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[positionID]
	if !exists {
		return storage.ErrNotFound
	}

	p.CurrentPrice = price
	p.CurrentValue = value
	return nil
}

// MarkPendingSignature flags an exit awaiting external signing.
func (s *PositionStore) MarkPendingSignature(_ context.Context, positionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[positionID]
	if !exists {
		return storage.ErrNotFound
	}

	p.PendingSignature = true
	return nil
}

// Close transitions an open position to closed with the exit reason.
func (s *PositionStore) Close(_ context.Context, positionID string, exitReason string, closedAtMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[positionID]
	if !exists {
		return storage.ErrNotFound
	}
	if p.Status == domain.PositionClosed {
		return storage.ErrInvalidInput
	}

	p.Status = domain.PositionClosed
	p.ExitReason = exitReason
	p.ClosedAt = closedAtMs
	p.PendingSignature = false
	return nil
}
