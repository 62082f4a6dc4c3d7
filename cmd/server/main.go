// Package main runs the trade sentry service: scheduled admission cycles
// over the asset feed, a polled exit engine over open positions, and the
// health/metrics HTTP endpoint.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"solana-trade-sentry/internal/admission"
	"solana-trade-sentry/internal/config"
	"solana-trade-sentry/internal/exit"
	"solana-trade-sentry/internal/fetch"
	"solana-trade-sentry/internal/logging"
	"solana-trade-sentry/internal/observability"
	"solana-trade-sentry/internal/oracle"
	"solana-trade-sentry/internal/orchestrator"
	"solana-trade-sentry/internal/ratelimit"
	"solana-trade-sentry/internal/risk"
	"solana-trade-sentry/internal/route"
	tradesignal "solana-trade-sentry/internal/signal"
	"solana-trade-sentry/internal/storage"
	chstore "solana-trade-sentry/internal/storage/clickhouse"
	"solana-trade-sentry/internal/storage/memory"
	"solana-trade-sentry/internal/storage/migrations"
	pgstore "solana-trade-sentry/internal/storage/postgres"
)

// Server holds the wired components of the service.
type Server struct {
	cfg    config.Config
	stores *allStores

	orch   *orchestrator.Orchestrator
	engine *exit.Engine
	stream *oracle.PriceStream

	logger *zap.Logger

	mu           sync.Mutex
	started      time.Time
	lastCycle    time.Time
	lastPoll     time.Time
	cycleRunning bool
	cycles       int
	polls        int
}

// allStores holds the storage implementations behind the interfaces.
type allStores struct {
	settings  storage.SettingsStore
	signals   storage.SignalStore
	positions storage.PositionStore
	audits    storage.AuditStore
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
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

	if !*useMemory && (cfg.Postgres == "" || cfg.ClickHouse == "") {
		logger.Fatal("postgres_dsn and clickhouse_dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatal("create stores", zap.Error(err))
	}
	defer cleanup()

	server, err := newServer(cfg, stores, logger)
	if err != nil {
		logger.Fatal("wire server", zap.Error(err))
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn("second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(cfg.Server.MetricsAddr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// createStores creates the storage backends: Postgres for state, ClickHouse
// for the audit trace, or all in-memory for local runs.
func createStores(ctx context.Context, cfg config.Config, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			settings:  memory.NewSettingsStore(),
			signals:   memory.NewSignalStore(),
			positions: memory.NewPositionStore(),
			audits:    memory.NewAuditStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &allStores{
		settings:  pgstore.NewSettingsStore(pool),
		signals:   pgstore.NewSignalStore(pool),
		positions: pgstore.NewPositionStore(pool),
		audits:    chstore.NewAuditStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// newServer wires the admission and exit pipelines from config.
func newServer(cfg config.Config, stores *allStores, logger *zap.Logger) (*Server, error) {
	fetcher := fetch.New(logger,
		fetch.WithMaxRetries(cfg.Oracle.MaxRetries),
		fetch.WithBaseDelay(cfg.Oracle.BaseDelay),
		fetch.WithMaxDelay(cfg.Oracle.MaxDelay),
		fetch.WithCallTimeout(cfg.Oracle.CallTimeout),
	)

	var curve route.CurveMarket
	if cfg.Oracle.BondingCurveURL != "" {
		curve = oracle.NewBondingCurveClient(cfg.Oracle.BondingCurveURL, cfg.Oracle.CallTimeout)
	}
	aggregators := make([]route.Aggregator, 0, len(cfg.Oracle.AggregatorURLs))
	for i, u := range cfg.Oracle.AggregatorURLs {
		aggregators = append(aggregators, oracle.NewQuoteClient(fmt.Sprintf("aggregator-%d", i), u))
	}
	routes := route.New(curve, aggregators, fetcher, cfg.Admission.FallbackLiquidity, logger)

	riskChecker := risk.NewHTTPChecker(cfg.Risk.URL, cfg.Risk.Timeout)
	gate := admission.New(routes, riskChecker, cfg.Admission, logger)
	issuer := tradesignal.NewIssuer(stores.signals, stores.positions, stores.audits, logger)

	var stream *oracle.PriceStream
	priceSources := []oracle.PriceSource{}
	if cfg.Oracle.PriceStreamEndpoint != "" {
		streamCfg := oracle.DefaultPriceStreamConfig()
		stream = oracle.NewPriceStream(cfg.Oracle.PriceStreamEndpoint, &streamCfg, logger)
		priceSources = append(priceSources, &oracle.StreamSource{Stream: stream})
	}
	feed := oracle.NewFeedClient(cfg.Oracle.FeedURL, cfg.Oracle.CallTimeout)
	priceSources = append(priceSources, &oracle.FeedSource{Feed: feed})
	prices := oracle.NewPriceOracle(logger, priceSources...)

	var balances exit.BalanceSource
	if cfg.Oracle.RPCEndpoint != "" {
		balances = oracle.NewRPCClient(cfg.Oracle.RPCEndpoint, cfg.Oracle.CallTimeout)
	}

	engine := exit.NewEngine(
		stores.positions, stores.audits, prices, balances, routes,
		exit.NewEvaluator(cfg.Exit.PnlClampMin, cfg.Exit.PnlClampMax, logger),
		exit.Options{
			WalletAddress:        cfg.Exit.WalletAddress,
			ExternalSaleGuard:    cfg.Exit.ExternalSaleGuard,
			ExternalSaleFraction: cfg.Exit.ExternalSaleFraction,
			AutoExecute:          cfg.Exit.AutoExecute,
		},
		logger,
	)

	orch := orchestrator.New(orchestrator.Options{
		Assets:      feed,
		Settings:    stores.settings,
		Audits:      stores.audits,
		Gate:        gate,
		Issuer:      issuer,
		Limiter:     ratelimit.New(),
		RateLimit:   cfg.RateLimit,
		Concurrency: cfg.Admission.BatchConcurrency,
		Logger:      logger,
	})

	return &Server{
		cfg:    cfg,
		stores: stores,
		orch:   orch,
		engine: engine,
		stream: stream,
		logger: logger,
	}, nil
}

// Run starts the admission scheduler and the exit poll and blocks until
// the context is cancelled or a component fails.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()
	if s.stream != nil {
		defer s.stream.Close()
	}

	errCh := make(chan error, 2)

	go func() {
		if err := s.runAdmissionScheduler(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("admission scheduler: %w", err)
		}
	}()

	go func() {
		if err := s.runExitPoll(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("exit poll: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runAdmissionScheduler runs admission cycles on a fixed interval.
func (s *Server) runAdmissionScheduler(ctx context.Context) error {
	s.logger.Info("admission scheduler started",
		zap.Duration("interval", s.cfg.Server.CycleInterval))

	s.runCycle(ctx)

	ticker := time.NewTicker(s.cfg.Server.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle executes one admission cycle, skipping if one is still running.
func (s *Server) runCycle(ctx context.Context) {
	s.mu.Lock()
	if s.cycleRunning {
		s.mu.Unlock()
		s.logger.Warn("admission cycle still running, skipping tick")
		return
	}
	s.cycleRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cycleRunning = false
		s.lastCycle = time.Now()
		s.cycles++
		s.mu.Unlock()
	}()

	if _, err := s.orch.Run(ctx); err != nil && err != context.Canceled {
		s.logger.Error("admission cycle failed", zap.Error(err))
	}
}

// runExitPoll schedules the exit engine with a cron expression so the
// cadence is operator-tunable without a rebuild.
func (s *Server) runExitPoll(ctx context.Context) error {
	s.logger.Info("exit poll started", zap.String("schedule", s.cfg.Exit.PollSchedule))

	c := cron.New()
	_, err := c.AddFunc(s.cfg.Exit.PollSchedule, func() {
		if err := s.engine.Poll(ctx); err != nil && err != context.Canceled {
			s.logger.Error("exit poll failed", zap.Error(err))
		}
		s.mu.Lock()
		s.lastPoll = time.Now()
		s.polls++
		s.mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("schedule exit poll %q: %w", s.cfg.Exit.PollSchedule, err)
	}

	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// startHTTPServer serves health, metrics and status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Info("http server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Error("http server error", zap.Error(err))
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	LastCycle    time.Time `json:"last_cycle,omitempty"`
	LastExitPoll time.Time `json:"last_exit_poll,omitempty"`
	Cycles       int       `json:"cycles"`
	ExitPolls    int       `json:"exit_polls"`
	CycleRunning bool      `json:"cycle_running"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).String(),
		LastCycle:    s.lastCycle,
		LastExitPoll: s.lastPoll,
		Cycles:       s.cycles,
		ExitPolls:    s.polls,
		CycleRunning: s.cycleRunning,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
