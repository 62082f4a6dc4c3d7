// Package config loads service configuration from YAML with environment
// overrides for secrets and DSNs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"solana-trade-sentry/internal/route"
)

// Config is the root service configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Postgres   string `yaml:"postgres_dsn"`
	ClickHouse string `yaml:"clickhouse_dsn"`

	Oracle    OracleConfig    `yaml:"oracle"`
	Risk      RiskConfig      `yaml:"risk"`
	Admission AdmissionConfig `yaml:"admission"`
	Exit      ExitConfig      `yaml:"exit"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Server    ServerConfig    `yaml:"server"`
}

// OracleConfig points at the external price/route providers.
type OracleConfig struct {
	// Quote aggregator base URLs, tried in order. Two independent
	// providers are expected; more are allowed.
	AggregatorURLs []string `yaml:"aggregator_urls"`
	// Bonding-curve market API base URL (pump.fun style).
	BondingCurveURL string `yaml:"bonding_curve_url"`
	// Solana JSON-RPC endpoint for balance checks.
	RPCEndpoint string `yaml:"rpc_endpoint"`
	// WebSocket price stream endpoint, optional.
	PriceStreamEndpoint string `yaml:"price_stream_endpoint"`
	// Discovery feed base URL (dexscreener style).
	FeedURL string `yaml:"feed_url"`

	CallTimeout time.Duration `yaml:"call_timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// RiskConfig points at the optional external risk-check collaborator.
// An empty URL means not configured; the admission gate fails open.
type RiskConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AdmissionConfig holds the gate's policy constants. The exact numbers are
// tunable policy, not derived from a model, so all of them live here.
type AdmissionConfig struct {
	// Route verification fail-open liquidity threshold: assets above this
	// are approved even when every network check was inconclusive.
	FallbackLiquidity float64 `yaml:"fallback_liquidity"`
	// Acceptable buyer rank window; rank #1 is never admitted, and ranks
	// beyond the max are considered too late.
	BuyerRankMin int `yaml:"buyer_rank_min"`
	BuyerRankMax int `yaml:"buyer_rank_max"`
	// Bounded concurrency for batch evaluation.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// ExitConfig holds the exit engine's policy constants.
type ExitConfig struct {
	// P&L percent clamp band; values outside are logged and clamped.
	PnlClampMin float64 `yaml:"pnl_clamp_min"`
	PnlClampMax float64 `yaml:"pnl_clamp_max"`
	// Minimum position age before the external-sale balance check runs.
	ExternalSaleGuard time.Duration `yaml:"external_sale_guard"`
	// Remaining-balance fraction below which the position counts as sold
	// outside the system.
	ExternalSaleFraction float64 `yaml:"external_sale_fraction"`
	// Wallet whose balances are checked; empty disables the check.
	WalletAddress string `yaml:"wallet_address"`
	// AutoExecute enables sell attempts when an exit triggers.
	AutoExecute bool `yaml:"auto_execute"`
	// Poll schedule in cron syntax.
	PollSchedule string `yaml:"poll_schedule"`
}

// RateLimitConfig holds per-feature request quotas.
type RateLimitConfig struct {
	AdmissionMax    int           `yaml:"admission_max"`
	AdmissionWindow time.Duration `yaml:"admission_window"`
	SignalMax       int           `yaml:"signal_max"`
	SignalWindow    time.Duration `yaml:"signal_window"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	MetricsAddr   string        `yaml:"metrics_addr"`
	CycleInterval time.Duration `yaml:"cycle_interval"`
}

// Default returns the configuration with every policy constant at the
// values the pipeline was tuned with.
func Default() Config {
	return Config{
		LogLevel: "info",
		Oracle: OracleConfig{
			CallTimeout: 8 * time.Second,
			MaxRetries:  3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    10 * time.Second,
		},
		Risk: RiskConfig{
			Timeout: 5 * time.Second,
		},
		Admission: AdmissionConfig{
			FallbackLiquidity: 50_000,
			BuyerRankMin:      2,
			BuyerRankMax:      10,
			BatchConcurrency:  5,
		},
		Exit: ExitConfig{
			PnlClampMin:          -99.99,
			PnlClampMax:          10_000,
			ExternalSaleGuard:    60 * time.Second,
			ExternalSaleFraction: 0.01,
			PollSchedule:         "@every 30s",
		},
		RateLimit: RateLimitConfig{
			AdmissionMax:    30,
			AdmissionWindow: 1 * time.Minute,
			SignalMax:       10,
			SignalWindow:    1 * time.Minute,
		},
		Server: ServerConfig{
			MetricsAddr:   ":9090",
			CycleInterval: 15 * time.Second,
		},
	}
}

// Load reads YAML from path on top of defaults, then applies environment
// overrides for connection strings.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Postgres = dsn
	}
	if dsn := os.Getenv("CLICKHOUSE_DSN"); dsn != "" {
		cfg.ClickHouse = dsn
	}
	if rpc := os.Getenv("SOLANA_RPC_ENDPOINT"); rpc != "" {
		cfg.Oracle.RPCEndpoint = rpc
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Admission.BuyerRankMin < 1 || c.Admission.BuyerRankMax < c.Admission.BuyerRankMin {
		return fmt.Errorf("invalid buyer rank window [%d, %d]", c.Admission.BuyerRankMin, c.Admission.BuyerRankMax)
	}
	if c.Admission.BatchConcurrency < 1 {
		return fmt.Errorf("batch_concurrency must be >= 1, got %d", c.Admission.BatchConcurrency)
	}
	if c.Exit.PnlClampMin >= c.Exit.PnlClampMax {
		return fmt.Errorf("invalid pnl clamp band [%v, %v]", c.Exit.PnlClampMin, c.Exit.PnlClampMax)
	}
	if c.Exit.ExternalSaleFraction <= 0 || c.Exit.ExternalSaleFraction >= 1 {
		return fmt.Errorf("external_sale_fraction must be in (0, 1), got %v", c.Exit.ExternalSaleFraction)
	}
	// A mistyped wallet would make every balance lookup read 0 and close
	// positions as sold externally; reject it before the engine ever runs.
	if c.Exit.WalletAddress != "" && !route.ValidWalletAddress(c.Exit.WalletAddress) {
		return fmt.Errorf("exit wallet_address %q is not a valid wallet address", c.Exit.WalletAddress)
	}
	return nil
}
