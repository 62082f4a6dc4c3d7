package exit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/observability"
	"solana-trade-sentry/internal/route"
	"solana-trade-sentry/internal/storage"
)

// PriceSource supplies the current price for a mint.
type PriceSource interface {
	CurrentPrice(ctx context.Context, mint string) (float64, error)
}

// BalanceSource reads the wallet's token balance for a mint.
type BalanceSource interface {
	GetTokenBalance(ctx context.Context, wallet, mint string) (float64, error)
}

// RouteChecker confirms a sell route exists before an exit is acted on.
type RouteChecker interface {
	Verify(ctx context.Context, asset *domain.Asset) route.Verdict
}

// Options configures the exit Engine.
type Options struct {
	// WalletAddress is the holding wallet checked for external sales.
	// Empty disables the external-sale check.
	WalletAddress string

	// ExternalSaleGuard is the minimum position age before the balance
	// check runs. Right after entry the token account may not reflect the
	// fill yet, and a zero balance then would misread as an external sale.
	ExternalSaleGuard time.Duration

	// ExternalSaleFraction: a balance below this fraction of the recorded
	// amount means the holding left the wallet outside this system.
	ExternalSaleFraction float64

	// AutoExecute closes positions directly when an exit fires. When
	// false the position is flagged pending-signature and stays open
	// until the signed close is observed.
	AutoExecute bool
}

// Engine polls open positions and acts on exit conditions. Positions are
// only ever closed by a fired threshold or an observed external sale; a
// missing route or a failed price refresh holds the position for the next
// tick rather than forcing anything.
type Engine struct {
	positions storage.PositionStore
	audits    storage.AuditStore
	prices    PriceSource
	balances  BalanceSource
	routes    RouteChecker
	evaluator *Evaluator
	opts      Options
	logger    *zap.Logger

	now func() time.Time
}

// NewEngine creates an exit Engine.
func NewEngine(
	positions storage.PositionStore,
	audits storage.AuditStore,
	prices PriceSource,
	balances BalanceSource,
	routes RouteChecker,
	evaluator *Evaluator,
	opts Options,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		positions: positions,
		audits:    audits,
		prices:    prices,
		balances:  balances,
		routes:    routes,
		evaluator: evaluator,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Poll runs one pass over all open positions. Each position is handled
// independently: a failure on one is logged and does not stop the sweep.
func (e *Engine) Poll(ctx context.Context) error {
	open, err := e.positions.GetOpen(ctx)
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}
	observability.UpdateOpenPositions(len(open))

	for _, p := range open {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.CheckPosition(ctx, p); err != nil {
			e.logger.Error("position check failed",
				zap.String("position_id", p.PositionID),
				zap.Error(err),
			)
		}
	}
	observability.DefaultMetrics.LastSuccessfulPoll.SetToCurrentTime()
	return nil
}

// CheckPosition refreshes one position's price, checks for an external
// sale, evaluates exit thresholds and acts on the verdict.
func (e *Engine) CheckPosition(ctx context.Context, p *domain.Position) error {
	nowMs := e.now().UnixMilli()

	// Price refresh. On failure the last recorded price stands and the
	// evaluation still runs against it.
	price, err := e.prices.CurrentPrice(ctx, p.Mint)
	if err != nil {
		e.logger.Warn("price refresh failed, using last recorded",
			zap.String("position_id", p.PositionID),
			zap.String("mint", p.Mint),
			zap.Error(err),
		)
	} else {
		p.CurrentPrice = price
		p.CurrentValue = price * p.Amount
		if err := e.positions.UpdatePrice(ctx, p.PositionID, p.CurrentPrice, p.CurrentValue); err != nil {
			return fmt.Errorf("update price: %w", err)
		}
	}

	sold, err := e.checkExternalSale(ctx, p, nowMs)
	if err != nil {
		e.logger.Warn("external sale check failed, skipping",
			zap.String("position_id", p.PositionID),
			zap.Error(err),
		)
	} else if sold {
		return nil
	}

	verdict := e.evaluator.Evaluate(p)
	observability.RecordExitCheck()

	auditVerdict := "HOLD"
	if verdict.ShouldExit {
		auditVerdict = "EXIT"
	}
	e.audit(ctx, &domain.AuditRecord{
		Kind:       domain.AuditExitCheck,
		UserID:     p.UserID,
		Mint:       p.Mint,
		Verdict:    auditVerdict,
		Reasons:    []string{verdict.Reason},
		PnlPercent: verdict.PnlPercent,
	})

	if !verdict.ShouldExit {
		return nil
	}
	if p.PendingSignature {
		// Exit already dispatched, waiting on the signed close.
		return nil
	}
	return e.executeExit(ctx, p, verdict, nowMs)
}

// checkExternalSale detects holdings that left the wallet outside this
// system. Reports true when the position was closed.
func (e *Engine) checkExternalSale(ctx context.Context, p *domain.Position, nowMs int64) (bool, error) {
	if e.balances == nil || e.opts.WalletAddress == "" {
		return false, nil
	}
	if p.AgeMs(nowMs) <= e.opts.ExternalSaleGuard.Milliseconds() {
		return false, nil
	}

	balance, err := e.balances.GetTokenBalance(ctx, e.opts.WalletAddress, p.Mint)
	if err != nil {
		return false, fmt.Errorf("get token balance: %w", err)
	}
	if balance >= p.Amount*e.opts.ExternalSaleFraction {
		return false, nil
	}

	e.logger.Info("position sold externally",
		zap.String("position_id", p.PositionID),
		zap.String("mint", p.Mint),
		zap.Float64("recorded_amount", p.Amount),
		zap.Float64("wallet_balance", balance),
	)
	if err := e.positions.Close(ctx, p.PositionID, domain.ExitReasonSoldExternally, nowMs); err != nil {
		return false, fmt.Errorf("close position: %w", err)
	}
	observability.RecordPositionClosed(domain.ExitReasonSoldExternally)
	e.audit(ctx, &domain.AuditRecord{
		Kind:    domain.AuditExitAction,
		UserID:  p.UserID,
		Mint:    p.Mint,
		Verdict: "CLOSED",
		Reasons: []string{domain.ExitReasonSoldExternally},
	})
	return true, nil
}

// executeExit acts on a fired threshold. The sell route is re-verified
// first: an untradable token stays open and is retried next tick, never
// force-closed at a recorded price nobody can realize.
func (e *Engine) executeExit(ctx context.Context, p *domain.Position, verdict Verdict, nowMs int64) error {
	if e.routes != nil {
		asset := &domain.Asset{Mint: p.Mint, Symbol: p.Symbol, Chain: "solana"}
		rv := e.routes.Verify(ctx, asset)
		if !rv.Tradable {
			e.logger.Warn("exit fired but no sell route, holding",
				zap.String("position_id", p.PositionID),
				zap.String("mint", p.Mint),
				zap.String("reason", verdict.Reason),
				zap.String("route_reason", rv.Reason),
			)
			e.audit(ctx, &domain.AuditRecord{
				Kind:       domain.AuditExitAction,
				UserID:     p.UserID,
				Mint:       p.Mint,
				Verdict:    "HELD_NO_ROUTE",
				Reasons:    []string{verdict.Reason, rv.Reason},
				PnlPercent: verdict.PnlPercent,
			})
			observability.RecordPositionHeld("no_route")
			return nil
		}
	}

	if !e.opts.AutoExecute {
		if err := e.positions.MarkPendingSignature(ctx, p.PositionID); err != nil {
			return fmt.Errorf("mark pending signature: %w", err)
		}
		e.audit(ctx, &domain.AuditRecord{
			Kind:       domain.AuditExitAction,
			UserID:     p.UserID,
			Mint:       p.Mint,
			Verdict:    "PENDING_SIGNATURE",
			Reasons:    []string{verdict.Reason},
			PnlPercent: verdict.PnlPercent,
		})
		observability.RecordPositionHeld("pending_signature")
		return nil
	}

	if err := e.positions.Close(ctx, p.PositionID, verdict.Reason, nowMs); err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	observability.RecordPositionClosed(verdict.Reason)
	e.logger.Info("position closed",
		zap.String("position_id", p.PositionID),
		zap.String("mint", p.Mint),
		zap.String("reason", verdict.Reason),
		zap.Float64("pnl_percent", verdict.PnlPercent),
	)
	e.audit(ctx, &domain.AuditRecord{
		Kind:       domain.AuditExitAction,
		UserID:     p.UserID,
		Mint:       p.Mint,
		Verdict:    "CLOSED",
		Reasons:    []string{verdict.Reason},
		PnlPercent: verdict.PnlPercent,
	})
	return nil
}

func (e *Engine) audit(ctx context.Context, r *domain.AuditRecord) {
	r.Timestamp = e.now().UnixMilli()
	if err := e.audits.Append(ctx, r); err != nil {
		e.logger.Warn("audit append failed", zap.Error(err))
	}
}
