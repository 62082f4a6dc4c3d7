package clickhouse

import (
	"context"
	"fmt"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/storage"
)

// AuditStore implements storage.AuditStore using ClickHouse.
//
// Audit records are an append-only trace, which fits the MergeTree model:
// inserts only, no updates, no uniqueness enforcement. A record that is
// written twice under retry shows up twice in the trace, which is acceptable
// for an audit log and cheaper than deduplicating on the hot path.
type AuditStore struct {
	conn *Conn
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(conn *Conn) *AuditStore {
	return &AuditStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditStore = (*AuditStore)(nil)

// Append writes one audit record.
func (s *AuditStore) Append(ctx context.Context, r *domain.AuditRecord) error {
	query := `
		INSERT INTO audit_records (
			kind, user_id, mint, verdict, reasons, pnl_percent, timestamp_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		r.Kind, r.UserID, r.Mint, r.Verdict, r.Reasons, r.PnlPercent, uint64(r.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// AppendBulk writes multiple audit records in one insert. ClickHouse favors
// few large inserts over many small ones, so anything holding more than a
// handful of records should prefer this over looping Append.
func (s *AuditStore) AppendBulk(ctx context.Context, records []*domain.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO audit_records (
			kind, user_id, mint, verdict, reasons, pnl_percent, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare audit batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.Kind, r.UserID, r.Mint, r.Verdict, r.Reasons, r.PnlPercent, uint64(r.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append to audit batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send audit batch: %w", err)
	}

	return nil
}
