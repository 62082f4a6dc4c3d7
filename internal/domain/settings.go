package domain

// Priority selects the slippage tolerance tier for trade execution.
type Priority string

const (
	PriorityNormal Priority = "NORMAL"
	PriorityFast   Priority = "FAST"
	PriorityTurbo  Priority = "TURBO"
)

// Slippage tolerance per priority tier, in basis points.
const (
	SlippageNormalBps = 100
	SlippageFastBps   = 300
	SlippageTurboBps  = 1000
)

// SlippageBps maps a priority tier to its slippage tolerance.
// Unknown tiers fall back to NORMAL.
func (p Priority) SlippageBps() int {
	switch p {
	case PriorityFast:
		return SlippageFastBps
	case PriorityTurbo:
		return SlippageTurboBps
	default:
		return SlippageNormalBps
	}
}

// UserTradeSettings holds per-user trading preferences. Mutated only by the
// user; the admission/exit pipeline treats it as read-only.
type UserTradeSettings struct {
	UserID              string
	MinLiquidity        float64  // reject assets below this pool liquidity
	TakeProfitPercent   float64  // exit when pnl% >= this
	StopLossPercent     float64  // exit when pnl% <= -this
	TradeAmount         float64  // quote-currency units per trade
	MaxConcurrentTrades int      // cap on open positions + pending signals
	Priority            Priority
	CategoryFilters     []string // empty = no category filtering
	Blacklist           []string // mint addresses, hard reject
	Whitelist           []string // non-empty = only these mints admitted
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Blacklisted reports whether the mint is on the user's blacklist.
func (s *UserTradeSettings) Blacklisted(mint string) bool {
	return contains(s.Blacklist, mint)
}

// Whitelisted reports whether the mint passes the whitelist rule: an empty
// whitelist admits everything.
func (s *UserTradeSettings) Whitelisted(mint string) bool {
	if len(s.Whitelist) == 0 {
		return true
	}
	return contains(s.Whitelist, mint)
}
