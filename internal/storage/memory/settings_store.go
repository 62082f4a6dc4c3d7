package memory

import (
	"context"
	"sort"
	"sync"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

// SettingsStore is an in-memory implementation of storage.SettingsStore.
type SettingsStore struct {
	mu   sync.RWMutex
	data map[string]*domain.UserTradeSettings // keyed by user_id
}

// NewSettingsStore creates a new in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		data: make(map[string]*domain.UserTradeSettings),
	}
}

// Compile-time interface check.
var _ storage.SettingsStore = (*SettingsStore)(nil)

// Get retrieves a user's settings. Returns ErrNotFound if not exists.
func (s *SettingsStore) Get(_ context.Context, userID string) (*domain.UserTradeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, exists := s.data[userID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy to prevent external mutation.
	settingsCopy := *settings
	return &settingsCopy, nil
}

// Upsert inserts or replaces a user's settings.
func (s *SettingsStore) Upsert(_ context.Context, settings *domain.UserTradeSettings) error {
	if settings == nil || settings.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settingsCopy := *settings
	s.data[settings.UserID] = &settingsCopy
	return nil
}

// List retrieves settings for every configured user, ordered by user_id.
func (s *SettingsStore) List(_ context.Context) ([]*domain.UserTradeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.UserTradeSettings, 0, len(s.data))
	for _, settings := range s.data {
		settingsCopy := *settings
		out = append(out, &settingsCopy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
