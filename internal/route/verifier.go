// Package route decides whether an asset currently has a usable trade
// route. Checks are ordered cheapest-first and short-circuit; a transport
// outage fails open rather than starving the pipeline of approvals.
package route

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/fetch"
	"solana-trade-sentry/internal/observability"
	"solana-trade-sentry/internal/oracle"
)

// Source records which stage of verification produced the verdict.
type Source string

const (
	SourceInvalidAddress  Source = "invalid-address"
	SourceTrustedSignal   Source = "trusted-signal"
	SourceBondingCurve    Source = "bonding-curve"
	SourceGraduated       Source = "graduated"
	SourceAggregator      Source = "aggregator"
	SourceNetworkFallback Source = "network-fallback"
	SourceLiquidity       Source = "liquidity-heuristic"
	SourceNoRoute         Source = "no-route"
)

// Verdict is the result of route verification.
type Verdict struct {
	Tradable bool
	Reason   string
	Source   Source
}

// CurveMarket is the bonding-curve lookup dependency.
type CurveMarket interface {
	Lookup(ctx context.Context, mint string) (*oracle.CurveState, error)
}

// Aggregator is one swap-quote provider probe.
type Aggregator interface {
	QuoteCall(inputMint, outputMint string, amount uint64, slippageBps int) fetch.Call
	ProviderName() string
}

// Verifier runs the ordered verification pipeline.
type Verifier struct {
	curve       CurveMarket
	aggregators []Aggregator
	fetcher     *fetch.Fetcher
	// fallbackLiquidity is the generous threshold above which an asset is
	// approved even when every network check came back undecided.
	fallbackLiquidity float64
	logger            *zap.Logger
}

// New creates a Verifier.
func New(curve CurveMarket, aggregators []Aggregator, fetcher *fetch.Fetcher, fallbackLiquidity float64, logger *zap.Logger) *Verifier {
	return &Verifier{
		curve:             curve,
		aggregators:       aggregators,
		fetcher:           fetcher,
		fallbackLiquidity: fallbackLiquidity,
		logger:            logger,
	}
}

// Verify runs the checks in order, returning at the first conclusive stage.
func (v *Verifier) Verify(ctx context.Context, asset *domain.Asset) Verdict {
	verdict := v.verify(ctx, asset)
	observability.RecordRouteVerdict(string(verdict.Source))
	return verdict
}

func (v *Verifier) verify(ctx context.Context, asset *domain.Asset) Verdict {
	// 1. Address grammar is a hard rule: a malformed mint can never trade.
	if asset.Chain != "" && asset.Chain != "solana" {
		return Verdict{
			Reason: fmt.Sprintf("unsupported chain %q", asset.Chain),
			Source: SourceInvalidAddress,
		}
	}
	if !ValidMintAddress(asset.Mint) {
		return Verdict{
			Reason: fmt.Sprintf("malformed mint address %q", asset.Mint),
			Source: SourceInvalidAddress,
		}
	}

	// 2. Prior trust signals were verified upstream; re-checking burns
	// provider quota and is the dominant source of false rejects when DNS
	// or the network is flaky.
	if asset.IsPumpFun {
		return Verdict{Tradable: true, Reason: "pump.fun token, curve route assumed", Source: SourceTrustedSignal}
	}
	if asset.IsTradeable {
		return Verdict{Tradable: true, Reason: "route already verified upstream", Source: SourceTrustedSignal}
	}
	if asset.Source == domain.SourcePumpFun {
		return Verdict{Tradable: true, Reason: "discovered via trusted origin", Source: SourceTrustedSignal}
	}

	// 3. Direct bonding-curve lookup. A query failure is inconclusive, not
	// a rejection.
	if v.curve != nil {
		state, err := v.curve.Lookup(ctx, asset.Mint)
		switch {
		case err != nil:
			v.logger.Debug("bonding curve lookup failed",
				zap.String("mint", asset.Mint), zap.Error(err))
		case state.Found && !state.Graduated:
			return Verdict{Tradable: true, Reason: "active on bonding curve", Source: SourceBondingCurve}
		case state.Found && state.Graduated:
			return Verdict{Tradable: true, Reason: "graduated to open market", Source: SourceGraduated}
		}
	}

	// 4. Aggregator test quotes, in parallel. First success wins.
	return v.verifyViaAggregators(ctx, asset)
}

func (v *Verifier) verifyViaAggregators(ctx context.Context, asset *domain.Asset) Verdict {
	if len(v.aggregators) == 0 {
		return v.undecided(asset, "no aggregators configured")
	}

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan fetch.Outcome, len(v.aggregators))
	var wg sync.WaitGroup
	for _, agg := range v.aggregators {
		wg.Add(1)
		go func(agg Aggregator) {
			defer wg.Done()
			call := agg.QuoteCall(oracle.WSOL, asset.Mint, oracle.TestQuoteLamports, domain.SlippageNormalBps)
			results <- v.fetcher.Do(probeCtx, call)
		}(agg)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	sawNoRoute := false
	for outcome := range results {
		switch outcome.Status {
		case fetch.StatusSuccess:
			cancel() // stop the slower probe
			return Verdict{Tradable: true, Reason: "aggregator returned test quote", Source: SourceAggregator}
		case fetch.StatusNoRoute:
			sawNoRoute = true
		}
	}

	// 5. Every failure was transport-level: a dead provider is not an
	// untradable asset, and discovery already filtered upstream.
	if !sawNoRoute {
		return Verdict{
			Tradable: true,
			Reason:   "all probes failed at transport level, failing open",
			Source:   SourceNetworkFallback,
		}
	}

	return v.undecided(asset, "aggregators reported no route")
}

// undecided applies the step-6 liquidity heuristic.
func (v *Verifier) undecided(asset *domain.Asset, why string) Verdict {
	if asset.Liquidity >= v.fallbackLiquidity {
		return Verdict{
			Tradable: true,
			Reason:   fmt.Sprintf("%s, but liquidity %.0f exceeds fallback threshold", why, asset.Liquidity),
			Source:   SourceLiquidity,
		}
	}
	return Verdict{
		Reason: fmt.Sprintf("no route found (%s)", why),
		Source: SourceNoRoute,
	}
}
