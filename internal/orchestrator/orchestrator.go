// Package orchestrator coordinates one admission cycle: fetch candidate
// assets, run each user's admission pipeline over them and issue signals
// for approvals.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-trade-sentry/internal/admission"
	"solana-trade-sentry/internal/config"
	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/observability"
	"solana-trade-sentry/internal/ratelimit"
	"solana-trade-sentry/internal/signal"
	"solana-trade-sentry/internal/storage"
)

// AssetSource supplies candidate assets for an admission cycle.
type AssetSource interface {
	FetchAssets(ctx context.Context) ([]domain.Asset, error)
}

// AdmissionGate runs the full admission pipeline on one asset.
type AdmissionGate interface {
	Evaluate(ctx context.Context, asset *domain.Asset, settings *domain.UserTradeSettings) *admission.Decision
}

// SignalIssuer converts an approved decision into a trade signal.
type SignalIssuer interface {
	Issue(ctx context.Context, settings *domain.UserTradeSettings, asset *domain.Asset, params admission.TradeParams) (*domain.TradeSignal, error)
}

// Orchestrator runs admission cycles across all configured users.
type Orchestrator struct {
	assets   AssetSource
	settings storage.SettingsStore
	audits   storage.AuditStore
	gate     AdmissionGate
	issuer   SignalIssuer
	limiter  *ratelimit.Limiter
	cfg      config.RateLimitConfig

	concurrency int
	logger      *zap.Logger

	now func() time.Time
}

// Options for creating an Orchestrator.
type Options struct {
	Assets   AssetSource
	Settings storage.SettingsStore
	Audits   storage.AuditStore
	Gate     AdmissionGate
	Issuer   SignalIssuer
	Limiter  *ratelimit.Limiter

	RateLimit config.RateLimitConfig

	// Concurrency bounds the number of assets evaluated in parallel per
	// user. The route check behind each evaluation fans out HTTP calls,
	// so this is the lever on upstream pressure.
	Concurrency int

	Logger *zap.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		assets:      opts.Assets,
		settings:    opts.Settings,
		audits:      opts.Audits,
		gate:        opts.Gate,
		issuer:      opts.Issuer,
		limiter:     opts.Limiter,
		cfg:         opts.RateLimit,
		concurrency: concurrency,
		logger:      opts.Logger,
		now:         time.Now,
	}
}

// RunResult summarizes one admission cycle.
type RunResult struct {
	Users         int
	Assets        int
	Evaluated     int
	Approved      int
	SignalsIssued int
	RateLimited   int
	Errors        []string
}

// Run executes one admission cycle. Asset evaluation is parallel per user,
// bounded by the configured concurrency; one user's failures never stop
// another user's cycle.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	started := o.now()
	result := &RunResult{}

	assets, err := o.assets.FetchAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch assets: %w", err)
	}
	result.Assets = len(assets)

	users, err := o.settings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user settings: %w", err)
	}
	result.Users = len(users)

	if len(assets) == 0 || len(users) == 0 {
		return result, nil
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		o.runUserCycle(ctx, user, assets, result)
	}

	o.logger.Info("admission cycle complete",
		zap.Int("users", result.Users),
		zap.Int("assets", result.Assets),
		zap.Int("evaluated", result.Evaluated),
		zap.Int("approved", result.Approved),
		zap.Int("signals_issued", result.SignalsIssued),
		zap.Int("rate_limited", result.RateLimited),
		zap.Int("errors", len(result.Errors)),
	)
	observability.RecordCycleLatency(time.Since(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulCycle.SetToCurrentTime()
	return result, nil
}

// runUserCycle evaluates every asset for one user. Results are merged into
// the shared RunResult under a lock; the gate and issuer do their own
// locking internally.
func (o *Orchestrator) runUserCycle(ctx context.Context, user *domain.UserTradeSettings, assets []domain.Asset, result *RunResult) {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i := range assets {
		asset := &assets[i]

		// The rate limit is checked on the dispatching goroutine so the
		// sliding window sees requests in submission order.
		rl := o.limiter.Check("admission:"+user.UserID, o.cfg.AdmissionMax, o.cfg.AdmissionWindow)
		if !rl.Allowed {
			mu.Lock()
			result.RateLimited++
			mu.Unlock()
			o.audit(ctx, &domain.AuditRecord{
				Kind:    domain.AuditRateLimit,
				UserID:  user.UserID,
				Mint:    asset.Mint,
				Verdict: "DROPPED",
				Reasons: []string{fmt.Sprintf("admission rate limit: retry in %s", rl.Reset)},
			})
			observability.RecordRateLimited("admission")
			continue
		}

		g.Go(func() error {
			decision := o.gate.Evaluate(gctx, asset, user)

			verdict := "REJECTED"
			if decision.Approved {
				verdict = "APPROVED"
			}
			observability.RecordAdmission(decision.Approved, decision.FailedRule())
			o.audit(gctx, &domain.AuditRecord{
				Kind:    domain.AuditAdmission,
				UserID:  user.UserID,
				Mint:    asset.Mint,
				Verdict: verdict,
				Reasons: decision.Reasons(),
			})

			mu.Lock()
			result.Evaluated++
			if decision.Approved {
				result.Approved++
			}
			mu.Unlock()

			if !decision.Approved {
				return nil
			}

			// Issuance has its own, tighter quota than evaluation; only
			// approvals consume it.
			sigRL := o.limiter.Check("signal:"+user.UserID, o.cfg.SignalMax, o.cfg.SignalWindow)
			if !sigRL.Allowed {
				mu.Lock()
				result.RateLimited++
				mu.Unlock()
				o.audit(gctx, &domain.AuditRecord{
					Kind:    domain.AuditRateLimit,
					UserID:  user.UserID,
					Mint:    asset.Mint,
					Verdict: "DROPPED",
					Reasons: []string{fmt.Sprintf("signal rate limit: retry in %s", sigRL.Reset)},
				})
				observability.RecordRateLimited("signal")
				return nil
			}

			sig, err := o.issuer.Issue(gctx, user, asset, *decision.Params)
			if errors.Is(err, signal.ErrConcurrencyCap) {
				return nil
			}
			if err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, fmt.Sprintf("issue signal for %s/%s: %v", user.UserID, asset.Mint, err))
				mu.Unlock()
				return nil
			}

			mu.Lock()
			result.SignalsIssued++
			mu.Unlock()
			o.logger.Debug("signal issued",
				zap.String("user_id", user.UserID),
				zap.String("mint", asset.Mint),
				zap.String("signal_id", sig.SignalID),
			)
			return nil
		})
	}

	// Workers only return nil; the group is used for bounding, not errors.
	_ = g.Wait()
}

func (o *Orchestrator) audit(ctx context.Context, r *domain.AuditRecord) {
	r.Timestamp = o.now().UnixMilli()
	if err := o.audits.Append(ctx, r); err != nil {
		o.logger.Warn("audit append failed", zap.Error(err))
	}
}
