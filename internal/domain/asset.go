package domain

// AssetSource identifies where a candidate asset was discovered.
type AssetSource string

const (
	SourcePumpFun     AssetSource = "PUMP_FUN"
	SourceDexScreener AssetSource = "DEX_SCREENER"
	SourceManual      AssetSource = "MANUAL"
)

// Asset is an immutable snapshot of a discovered token candidate.
// Snapshots are re-fetched each admission cycle; the gate never mutates them.
type Asset struct {
	Mint            string      // token mint address (chain-unique)
	Symbol          string      // display symbol
	Chain           string      // "solana"
	Liquidity       float64     // pool liquidity in quote-currency units
	RiskScore       int         // 0-100, higher is riskier
	Categories      []string    // discovery categories (may be empty)
	BuyerRank       *int        // position among buyers (nil = unknown)
	CanBuy          *bool       // sellability flags from discovery (nil = unknown)
	CanSell         *bool
	LiquidityLocked *bool // discovery's lock flag (nil = unknown)
	IsPumpFun       bool  // trusted prior signal: discovered on the bonding curve
	IsTradeable     bool  // trusted prior signal: trade route already verified upstream
	Source          AssetSource
}

// HasCategories reports whether discovery attached any category metadata.
func (a *Asset) HasCategories() bool {
	return len(a.Categories) > 0
}

// ExplicitlyUnsellable reports whether discovery positively flagged the
// asset as non-sellable. An unknown flag is not a rejection.
func (a *Asset) ExplicitlyUnsellable() bool {
	return a.CanSell != nil && !*a.CanSell
}
