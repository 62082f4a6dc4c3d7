package exit

import (
	"math"

	"go.uber.org/zap"

	"solana-trade-sentry/internal/domain"
)

// Verdict is the outcome of one exit evaluation.
type Verdict struct {
	ShouldExit bool
	Reason     string // domain.ExitReason* constant
	PnlPercent float64
}

// Evaluator computes exit verdicts from position state. Pure arithmetic:
// no stores, no network, every effect stays with the engine.
type Evaluator struct {
	clampMin float64
	clampMax float64
	logger   *zap.Logger
}

// NewEvaluator creates an Evaluator with the given pnl clamp band.
func NewEvaluator(clampMin, clampMax float64, logger *zap.Logger) *Evaluator {
	return &Evaluator{clampMin: clampMin, clampMax: clampMax, logger: logger}
}

// Evaluate computes the pnl and checks take-profit and stop-loss thresholds.
//
// A corrupt price feed must never trigger a trade: non-finite or
// non-positive prices produce a hold verdict with zero pnl instead of
// propagating into the thresholds. Pnl outside the clamp band is treated
// as a feed glitch, clamped and logged, so a misquoted tick cannot report
// a fantasy gain or a sub -100% loss.
func (e *Evaluator) Evaluate(p *domain.Position) Verdict {
	if !validPrice(p.EntryPrice) || !validPrice(p.CurrentPrice) {
		e.logger.Warn("exit evaluation skipped: invalid price",
			zap.String("position_id", p.PositionID),
			zap.Float64("entry_price", p.EntryPrice),
			zap.Float64("current_price", p.CurrentPrice),
		)
		return Verdict{ShouldExit: false, Reason: domain.ExitReasonNone, PnlPercent: 0}
	}

	pnl := (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100

	if pnl < e.clampMin || pnl > e.clampMax {
		clamped := math.Min(math.Max(pnl, e.clampMin), e.clampMax)
		e.logger.Warn("pnl outside plausible band, clamping",
			zap.String("position_id", p.PositionID),
			zap.Float64("pnl_percent", pnl),
			zap.Float64("clamped", clamped),
		)
		pnl = clamped
	}

	switch {
	case pnl >= p.TakeProfitPercent:
		return Verdict{ShouldExit: true, Reason: domain.ExitReasonTakeProfit, PnlPercent: pnl}
	case pnl <= -p.StopLossPercent:
		return Verdict{ShouldExit: true, Reason: domain.ExitReasonStopLoss, PnlPercent: pnl}
	default:
		return Verdict{ShouldExit: false, Reason: domain.ExitReasonNone, PnlPercent: pnl}
	}
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
