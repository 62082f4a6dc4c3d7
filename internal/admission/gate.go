// Package admission implements the ordered rule pipeline that decides
// whether a candidate asset may generate a trade signal.
//
// Rules run in a fixed order, cheap and hard first. The first hard failure
// flips the verdict; later rules are skipped but still recorded, so every
// decision carries a complete, ordered reason list for audit.
package admission

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"solana-trade-sentry/internal/config"
	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/risk"
	"solana-trade-sentry/internal/route"
)

// RuleStatus is a rule's contribution to the decision.
type RuleStatus string

const (
	StatusPass    RuleStatus = "PASS"
	StatusFail    RuleStatus = "FAIL"
	StatusSkipped RuleStatus = "SKIPPED"
)

// Rule names, in evaluation order.
const (
	RuleSellability    = "sellability"
	RuleLiquidity      = "liquidity"
	RuleLiquidityLock  = "liquidity_lock"
	RuleCategory       = "category"
	RuleBuyerPosition  = "buyer_position"
	RuleListMembership = "list_membership"
	RuleRiskCheck      = "risk_check"
	RuleRoute          = "route"
)

// RuleResult records one rule's outcome with a human-readable reason.
type RuleResult struct {
	Rule   string
	Status RuleStatus
	Reason string
}

// TradeParams carries the execution parameters for an approved asset.
type TradeParams struct {
	Amount            float64
	SlippageBps       int
	TakeProfitPercent float64
	StopLossPercent   float64
}

// Decision is the gate's verdict with the full rule trace.
type Decision struct {
	Approved bool
	Rules    []RuleResult
	Params   *TradeParams // nil unless approved
}

// FailedRule returns the name of the rule that rejected the asset, or ""
// for an approved decision.
func (d *Decision) FailedRule() string {
	for _, r := range d.Rules {
		if r.Status == StatusFail {
			return r.Rule
		}
	}
	return ""
}

// Reasons flattens the rule trace into audit strings.
func (d *Decision) Reasons() []string {
	out := make([]string, 0, len(d.Rules))
	for _, r := range d.Rules {
		out = append(out, fmt.Sprintf("%s: %s (%s)", r.Rule, r.Status, r.Reason))
	}
	return out
}

// RouteChecker is the route-verification dependency.
type RouteChecker interface {
	Verify(ctx context.Context, asset *domain.Asset) route.Verdict
}

// Gate evaluates assets against user settings.
type Gate struct {
	routes RouteChecker
	risk   risk.Checker
	cfg    config.AdmissionConfig
	logger *zap.Logger
}

// New creates a Gate.
func New(routes RouteChecker, riskChecker risk.Checker, cfg config.AdmissionConfig, logger *zap.Logger) *Gate {
	return &Gate{routes: routes, risk: riskChecker, cfg: cfg, logger: logger}
}

// rule is one pipeline stage. Expensive stages are only invoked while the
// decision is still passing; skipped stages are recorded, not evaluated.
type rule struct {
	name string
	eval func(ctx context.Context, asset *domain.Asset, settings *domain.UserTradeSettings) RuleResult
}

// Evaluate runs the pipeline. The returned decision always contains one
// RuleResult per rule, in order.
func (g *Gate) Evaluate(ctx context.Context, asset *domain.Asset, settings *domain.UserTradeSettings) *Decision {
	rules := []rule{
		{RuleSellability, g.evalSellability},
		{RuleLiquidity, g.evalLiquidity},
		{RuleLiquidityLock, g.evalLiquidityLock},
		{RuleCategory, g.evalCategory},
		{RuleBuyerPosition, g.evalBuyerPosition},
		{RuleListMembership, g.evalListMembership},
		{RuleRiskCheck, g.evalRisk},
		{RuleRoute, g.evalRoute},
	}

	decision := &Decision{Approved: true, Rules: make([]RuleResult, 0, len(rules))}
	for _, r := range rules {
		if !decision.Approved {
			decision.Rules = append(decision.Rules, RuleResult{
				Rule:   r.name,
				Status: StatusSkipped,
				Reason: "not evaluated: earlier rule failed",
			})
			continue
		}

		result := r.eval(ctx, asset, settings)
		decision.Rules = append(decision.Rules, result)
		if result.Status == StatusFail {
			decision.Approved = false
		}
	}

	if decision.Approved {
		decision.Params = &TradeParams{
			Amount:            settings.TradeAmount,
			SlippageBps:       settings.Priority.SlippageBps(),
			TakeProfitPercent: settings.TakeProfitPercent,
			StopLossPercent:   settings.StopLossPercent,
		}
	}

	g.logger.Info("admission decided",
		zap.String("mint", asset.Mint),
		zap.String("user", settings.UserID),
		zap.Bool("approved", decision.Approved),
		zap.Strings("reasons", decision.Reasons()),
	)
	return decision
}

// evalSellability is the hard first gate: a position that cannot be exited
// must never be acquired.
func (g *Gate) evalSellability(_ context.Context, asset *domain.Asset, _ *domain.UserTradeSettings) RuleResult {
	if asset.ExplicitlyUnsellable() {
		return RuleResult{RuleSellability, StatusFail, "asset flagged non-sellable by discovery"}
	}
	return RuleResult{RuleSellability, StatusPass, "no sell restriction known"}
}

func (g *Gate) evalLiquidity(_ context.Context, asset *domain.Asset, settings *domain.UserTradeSettings) RuleResult {
	if asset.Liquidity < settings.MinLiquidity {
		return RuleResult{RuleLiquidity, StatusFail,
			fmt.Sprintf("liquidity %.0f below user minimum %.0f", asset.Liquidity, settings.MinLiquidity)}
	}
	return RuleResult{RuleLiquidity, StatusPass,
		fmt.Sprintf("liquidity %.0f meets minimum %.0f", asset.Liquidity, settings.MinLiquidity)}
}

// evalLiquidityLock is informational only. Earlier revisions of the
// pipeline blocked on an unlocked pool; that rejected too many legitimate
// fresh listings, so the rule now only annotates the decision.
func (g *Gate) evalLiquidityLock(_ context.Context, asset *domain.Asset, _ *domain.UserTradeSettings) RuleResult {
	switch {
	case asset.LiquidityLocked == nil:
		return RuleResult{RuleLiquidityLock, StatusPass, "lock status unknown (informational)"}
	case *asset.LiquidityLocked:
		return RuleResult{RuleLiquidityLock, StatusPass, "liquidity reported locked (informational)"}
	default:
		return RuleResult{RuleLiquidityLock, StatusPass, "liquidity reported unlocked (informational)"}
	}
}

// evalCategory requires an intersection only when both sides have data.
// Discovery frequently lacks category metadata; its absence is not held
// against the asset.
func (g *Gate) evalCategory(_ context.Context, asset *domain.Asset, settings *domain.UserTradeSettings) RuleResult {
	if len(settings.CategoryFilters) == 0 {
		return RuleResult{RuleCategory, StatusPass, "no category filters configured"}
	}
	if !asset.HasCategories() {
		return RuleResult{RuleCategory, StatusPass, "asset has no category metadata, not penalized"}
	}

	for _, want := range settings.CategoryFilters {
		for _, have := range asset.Categories {
			if want == have {
				return RuleResult{RuleCategory, StatusPass, fmt.Sprintf("matched category %q", want)}
			}
		}
	}
	return RuleResult{RuleCategory, StatusFail,
		fmt.Sprintf("categories %v do not intersect filters %v", asset.Categories, settings.CategoryFilters)}
}

// evalBuyerPosition admits only a configured rank window: never first in
// (rank #1 is the deployer or a sniper), and not so late the move is over.
// An unknown rank passes.
func (g *Gate) evalBuyerPosition(_ context.Context, asset *domain.Asset, _ *domain.UserTradeSettings) RuleResult {
	if asset.BuyerRank == nil {
		return RuleResult{RuleBuyerPosition, StatusPass, "buyer rank unknown, not penalized"}
	}
	rank := *asset.BuyerRank
	if rank < g.cfg.BuyerRankMin || rank > g.cfg.BuyerRankMax {
		return RuleResult{RuleBuyerPosition, StatusFail,
			fmt.Sprintf("buyer rank %d outside acceptable window [%d, %d]", rank, g.cfg.BuyerRankMin, g.cfg.BuyerRankMax)}
	}
	return RuleResult{RuleBuyerPosition, StatusPass, fmt.Sprintf("buyer rank %d acceptable", rank)}
}

func (g *Gate) evalListMembership(_ context.Context, asset *domain.Asset, settings *domain.UserTradeSettings) RuleResult {
	if settings.Blacklisted(asset.Mint) {
		return RuleResult{RuleListMembership, StatusFail, "mint is blacklisted by user"}
	}
	if !settings.Whitelisted(asset.Mint) {
		return RuleResult{RuleListMembership, StatusFail, "mint not on user's whitelist"}
	}
	if len(settings.Whitelist) > 0 {
		return RuleResult{RuleListMembership, StatusPass, "mint is whitelisted"}
	}
	return RuleResult{RuleListMembership, StatusPass, "not blacklisted, no whitelist configured"}
}

// evalRisk consults the external collaborator. Only an explicit honeypot or
// blacklist verdict blocks; an unreachable or unconfigured checker passes
// with a warning, because infrastructure uncertainty is not evidence
// against the asset.
func (g *Gate) evalRisk(ctx context.Context, asset *domain.Asset, _ *domain.UserTradeSettings) RuleResult {
	report, err := g.risk.Check(ctx, asset.Mint)
	if err != nil {
		if errors.Is(err, risk.ErrNotConfigured) {
			return RuleResult{RuleRiskCheck, StatusPass, "risk checker not configured, failing open"}
		}
		g.logger.Warn("risk check unavailable", zap.String("mint", asset.Mint), zap.Error(err))
		return RuleResult{RuleRiskCheck, StatusPass, "risk checker unavailable, failing open"}
	}

	if report.Blocking() {
		return RuleResult{RuleRiskCheck, StatusFail,
			fmt.Sprintf("explicit risk verdict: honeypot=%t blacklisted=%t", report.IsHoneypot, report.IsBlacklisted)}
	}
	return RuleResult{RuleRiskCheck, StatusPass, fmt.Sprintf("risk score %d, no blocking verdict", report.RiskScore)}
}

// evalRoute is last: it is the most expensive check and only worth running
// for an asset that passed everything else.
func (g *Gate) evalRoute(ctx context.Context, asset *domain.Asset, _ *domain.UserTradeSettings) RuleResult {
	verdict := g.routes.Verify(ctx, asset)
	if !verdict.Tradable {
		return RuleResult{RuleRoute, StatusFail, fmt.Sprintf("%s [%s]", verdict.Reason, verdict.Source)}
	}
	return RuleResult{RuleRoute, StatusPass, fmt.Sprintf("%s [%s]", verdict.Reason, verdict.Source)}
}
