package memory

import (
	"context"
	"sync"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeSignal // keyed by signal_id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.TradeSignal),
	}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.TradeSignal) error {
	if sig == nil || sig.SignalID == "" || sig.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	sigCopy := *sig
	s.data[sig.SignalID] = &sigCopy
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(_ context.Context, signalID string) (*domain.TradeSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	sigCopy := *sig
	return &sigCopy, nil
}

// UpdateStatus moves a signal to a new status.
func (s *SignalStore) UpdateStatus(_ context.Context, signalID string, status domain.SignalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, exists := s.data[signalID]
	if !exists {
		return storage.ErrNotFound
	}

	sig.Status = status
	return nil
}

// CountByStatus returns how many of the user's signals are in the status.
func (s *SignalStore) CountByStatus(_ context.Context, userID string, status domain.SignalStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sig := range s.data {
		if sig.UserID == userID && sig.Status == status {
			count++
		}
	}
	return count, nil
}
