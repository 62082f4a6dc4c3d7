package memory

import (
	"context"
	"sync"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

// AuditStore is an in-memory implementation of storage.AuditStore.
// Used in tests and when no ClickHouse sink is configured.
type AuditStore struct {
	mu      sync.Mutex
	records []*domain.AuditRecord
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Compile-time interface check.
var _ storage.AuditStore = (*AuditStore)(nil)

// Append writes one audit record.
func (s *AuditStore) Append(_ context.Context, r *domain.AuditRecord) error {
	if r == nil || r.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rCopy := *r
	rCopy.Reasons = append([]string(nil), r.Reasons...)
	s.records = append(s.records, &rCopy)
	return nil
}

// Records returns a snapshot of everything appended so far. Test helper.
func (s *AuditStore) Records() []*domain.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}
