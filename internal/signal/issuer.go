package signal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-trade-sentry/internal/admission"
	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/idhash"
	"solana-trade-sentry/internal/observability"
	"solana-trade-sentry/internal/storage"
)

// ErrConcurrencyCap is returned when the user's open positions plus pending
// signals already fill their configured trade slots.
var ErrConcurrencyCap = errors.New("signal: concurrent trade cap reached")

// Issuer turns an approved admission decision into an executable trade
// signal. It owns the concurrency cap check and the audit trail of issued
// signals.
type Issuer struct {
	signals   storage.SignalStore
	positions storage.PositionStore
	audits    storage.AuditStore
	logger    *zap.Logger

	now func() time.Time
}

// NewIssuer creates an Issuer backed by the given stores.
func NewIssuer(signals storage.SignalStore, positions storage.PositionStore, audits storage.AuditStore, logger *zap.Logger) *Issuer {
	return &Issuer{
		signals:   signals,
		positions: positions,
		audits:    audits,
		logger:    logger,
		now:       time.Now,
	}
}

// Issue creates a pending trade signal for an approved asset.
//
// The cap counts open positions plus pending signals: a signal that has not
// executed yet still reserves a slot, otherwise a burst of approvals could
// overshoot the user's limit before the first fill lands.
//
// The signal ID is a deterministic hash of (user, mint, created-at), so a
// retried call with the same inputs finds the existing row instead of
// issuing a second executable signal. In that case the stored signal is
// returned as-is.
func (i *Issuer) Issue(ctx context.Context, settings *domain.UserTradeSettings, asset *domain.Asset, params admission.TradeParams) (*domain.TradeSignal, error) {
	open, err := i.positions.CountOpen(ctx, settings.UserID)
	if err != nil {
		return nil, fmt.Errorf("count open positions: %w", err)
	}
	pending, err := i.signals.CountByStatus(ctx, settings.UserID, domain.SignalPending)
	if err != nil {
		return nil, fmt.Errorf("count pending signals: %w", err)
	}
	if open+pending >= settings.MaxConcurrentTrades {
		i.logger.Info("signal refused: trade cap reached",
			zap.String("user_id", settings.UserID),
			zap.String("mint", asset.Mint),
			zap.Int("open", open),
			zap.Int("pending", pending),
			zap.Int("max", settings.MaxConcurrentTrades),
		)
		i.audit(ctx, &domain.AuditRecord{
			Kind:    domain.AuditSignal,
			UserID:  settings.UserID,
			Mint:    asset.Mint,
			Verdict: "REFUSED",
			Reasons: []string{fmt.Sprintf("concurrent trades at cap: %d open, %d pending, max %d", open, pending, settings.MaxConcurrentTrades)},
		})
		observability.RecordSignalRefused()
		return nil, ErrConcurrencyCap
	}

	createdAt := i.now().UnixMilli()
	sig := &domain.TradeSignal{
		SignalID:    idhash.ComputeSignalID(settings.UserID, asset.Mint, createdAt),
		UserID:      settings.UserID,
		Mint:        asset.Mint,
		Symbol:      asset.Symbol,
		Amount:      params.Amount,
		SlippageBps: params.SlippageBps,
		Status:      domain.SignalPending,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt + domain.SignalTTL.Milliseconds(),
	}

	err = i.signals.Insert(ctx, sig)
	if errors.Is(err, storage.ErrDuplicateKey) {
		existing, getErr := i.signals.GetByID(ctx, sig.SignalID)
		if getErr != nil {
			return nil, fmt.Errorf("load existing signal: %w", getErr)
		}
		i.logger.Debug("signal already issued", zap.String("signal_id", sig.SignalID))
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert signal: %w", err)
	}

	i.logger.Info("signal issued",
		zap.String("signal_id", sig.SignalID),
		zap.String("user_id", sig.UserID),
		zap.String("mint", sig.Mint),
		zap.Float64("amount", sig.Amount),
		zap.Int("slippage_bps", sig.SlippageBps),
	)
	i.audit(ctx, &domain.AuditRecord{
		Kind:    domain.AuditSignal,
		UserID:  sig.UserID,
		Mint:    sig.Mint,
		Verdict: "ISSUED",
		Reasons: []string{"signal " + sig.SignalID},
	})
	observability.RecordSignalIssued()

	return sig, nil
}

// ExpireStale sweeps pending signals past their TTL into EXPIRED. Returns
// the count of signals expired.
func (i *Issuer) ExpireStale(ctx context.Context, signalIDs []string) (int, error) {
	nowMs := i.now().UnixMilli()

	expired := 0
	for _, id := range signalIDs {
		sig, err := i.signals.GetByID(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return expired, fmt.Errorf("load signal %s: %w", id, err)
		}
		if sig.Status != domain.SignalPending || !sig.Expired(nowMs) {
			continue
		}
		if err := i.signals.UpdateStatus(ctx, id, domain.SignalExpired); err != nil {
			return expired, fmt.Errorf("expire signal %s: %w", id, err)
		}
		expired++
	}

	if expired > 0 {
		i.logger.Info("expired stale signals", zap.Int("count", expired))
		observability.RecordSignalsExpired(expired)
	}
	return expired, nil
}

func (i *Issuer) audit(ctx context.Context, r *domain.AuditRecord) {
	r.Timestamp = i.now().UnixMilli()
	if err := i.audits.Append(ctx, r); err != nil {
		i.logger.Warn("audit append failed", zap.Error(err))
	}
}
