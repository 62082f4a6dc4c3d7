// Package main evaluates a JSON file of candidate assets against one
// user's settings and prints the admission decisions. Offline variant of
// the server's admission cycle, for tuning thresholds against captured
// feed snapshots.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"solana-trade-sentry/internal/admission"
	"solana-trade-sentry/internal/config"
	"solana-trade-sentry/internal/domain"
	"solana-trade-sentry/internal/fetch"
	"solana-trade-sentry/internal/logging"
	"solana-trade-sentry/internal/oracle"
	"solana-trade-sentry/internal/risk"
	"solana-trade-sentry/internal/route"
)

// input is the fixture format: user settings plus the assets to screen.
type input struct {
	Settings domain.UserTradeSettings `json:"settings"`
	Assets   []domain.Asset           `json:"assets"`
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	inputPath := flag.String("input", "", "Path to JSON file with settings and assets")
	offline := flag.Bool("offline", false, "Skip network checks (route and risk rules pass on trust signals only)")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall evaluation deadline")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *inputPath == "" {
		logger.Fatal("--input is required")
	}
	data, err := os.ReadFile(*inputPath)
	if err != nil {
		logger.Fatal("read input", zap.Error(err))
	}
	var in input
	if err := json.Unmarshal(data, &in); err != nil {
		logger.Fatal("parse input", zap.Error(err))
	}
	if in.Settings.UserID == "" {
		in.Settings.UserID = "evaluate"
	}

	gate := buildGate(cfg, *offline, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	approved := 0
	for i := range in.Assets {
		asset := &in.Assets[i]
		decision := gate.Evaluate(ctx, asset, &in.Settings)

		verdict := "REJECTED"
		if decision.Approved {
			verdict = "APPROVED"
			approved++
		}
		fmt.Printf("%s %s (%s)\n", verdict, asset.Mint, asset.Symbol)
		for _, reason := range decision.Reasons() {
			fmt.Printf("  %s\n", reason)
		}
		if decision.Approved {
			fmt.Printf("  params: amount=%g slippage=%dbps tp=%g%% sl=%g%%\n",
				decision.Params.Amount, decision.Params.SlippageBps,
				decision.Params.TakeProfitPercent, decision.Params.StopLossPercent)
		}
	}

	fmt.Printf("\n%d/%d approved\n", approved, len(in.Assets))
}

// buildGate wires the admission gate. Offline mode drops the aggregator and
// risk endpoints so only the local rules and trust signals decide.
func buildGate(cfg config.Config, offline bool, logger *zap.Logger) *admission.Gate {
	fetcher := fetch.New(logger,
		fetch.WithMaxRetries(cfg.Oracle.MaxRetries),
		fetch.WithBaseDelay(cfg.Oracle.BaseDelay),
		fetch.WithMaxDelay(cfg.Oracle.MaxDelay),
		fetch.WithCallTimeout(cfg.Oracle.CallTimeout),
	)

	var curve route.CurveMarket
	var aggregators []route.Aggregator
	riskURL := ""
	if !offline {
		if cfg.Oracle.BondingCurveURL != "" {
			curve = oracle.NewBondingCurveClient(cfg.Oracle.BondingCurveURL, cfg.Oracle.CallTimeout)
		}
		for i, u := range cfg.Oracle.AggregatorURLs {
			aggregators = append(aggregators, oracle.NewQuoteClient(fmt.Sprintf("aggregator-%d", i), u))
		}
		riskURL = cfg.Risk.URL
	}

	routes := route.New(curve, aggregators, fetcher, cfg.Admission.FallbackLiquidity, logger)
	riskChecker := risk.NewHTTPChecker(riskURL, cfg.Risk.Timeout)
	return admission.New(routes, riskChecker, cfg.Admission, logger)
}
