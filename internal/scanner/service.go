// Package scanner is the composition root: it wires the store, cache,
// provider, sweep services, scheduler, and HTTP gateway into one
// process and manages their lifecycle.
package scanner

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"groww-scanner/config"
	"groww-scanner/internal/cache"
	"groww-scanner/internal/compute"
	"groww-scanner/internal/gateway"
	"groww-scanner/internal/ingest"
	"groww-scanner/internal/markethours"
	"groww-scanner/internal/metrics"
	"groww-scanner/internal/model"
	"groww-scanner/internal/provider"
	"groww-scanner/internal/ratelimit"
	"groww-scanner/internal/retry"
	"groww-scanner/internal/scheduler"
	"groww-scanner/internal/store"
)

// Service is the top-level orchestrator for the scanner. It wires all
// dependencies, manages lifecycle, and coordinates the sweep loops.
type Service struct {
	cfg *config.Config

	store   *store.Store
	cache   *cache.Cache
	market  *markethours.Market
	hub     *gateway.Hub
	api     *gateway.Server
	ingest  *ingest.Service
	compute *compute.Service
	sched   *scheduler.Scheduler
	prom    *metrics.Metrics
	health  *metrics.HealthStatus

	httpSrv  *http.Server
	httpAddr atomic.Value // bound address, set once Run is listening
}

// New creates a Service from the given Config. It opens the database,
// connects to Redis (continuing without it on failure), and validates
// the provider credentials. No sweeps run until Run.
func New(cfg *config.Config) (*Service, error) {
	svc := &Service{
		cfg:    cfg,
		prom:   metrics.NewMetrics(),
		health: metrics.NewHealthStatus(),
	}

	// ---- Market session gate ----
	market, err := markethours.New(cfg.MarketTZ, cfg.MarketOpen, cfg.MarketClose, cfg.MarketDayList(), cfg.AllowAfterHours)
	if err != nil {
		return nil, fmt.Errorf("market hours: %w", err)
	}
	svc.market = market

	// ---- Open the store ----
	if !strings.HasPrefix(cfg.DatabaseURL, "postgres") {
		path := strings.TrimPrefix(cfg.DatabaseURL, "sqlite://")
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			os.MkdirAll(dir, 0o755)
		}
	}
	svc.store, err = store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// ---- Connect to Redis ----
	if cfg.RedisURL == "" {
		log.Printf("[scanner] WARNING: no REDIS_URL, running without cache")
		svc.cache = cache.NewWithClient(nil)
	} else {
		svc.cache, err = cache.New(cfg.RedisURL)
		if err != nil {
			log.Printf("[scanner] WARNING: redis unavailable: %v (continuing without cache)", err)
			svc.cache = cache.NewWithClient(nil)
		}
	}

	// ---- Provider client ----
	fetcher, err := provider.New(provider.Config{
		AccessToken: cfg.GrowwAccessToken,
		APIKey:      cfg.GrowwAPIKey,
		APISecret:   cfg.GrowwAPISecret,
		TOTPSecret:  cfg.GrowwTOTPSecret,
		TOTPToken:   cfg.GrowwTOTPToken,
		Limiter:     ratelimit.New(cfg.RatePerSec, cfg.RatePerMin),
		Retry: retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.RetryMaxDelayMS) * time.Millisecond,
		},
	})
	if err != nil {
		svc.store.Close()
		return nil, err
	}

	// ---- Pipeline services ----
	svc.hub = gateway.NewHub(svc.prom)
	svc.ingest = ingest.New(svc.store, svc.cache, fetcher, svc.prom, svc.health, ingest.Config{
		Bars:             cfg.IngestBars,
		MarketTZ:         market.Location(),
		DefaultBenchmark: cfg.NiftySymbol,
	})
	svc.compute = compute.New(svc.store, svc.cache, svc.hub, svc.prom, svc.health, compute.Config{
		Bars:             cfg.ComputeBars,
		DefaultBenchmark: cfg.NiftySymbol,
	})
	svc.api = gateway.NewServer(svc.store, svc.cache, svc.hub, svc.compute, svc.health, svc.prom)
	svc.sched = scheduler.New(scheduler.Config{
		Timeframes:      cfg.Timeframes(),
		IngestInterval:  cfg.IngestInterval(),
		ComputeInterval: cfg.ComputeInterval(),
	}, market, svc.prom,
		func(ctx context.Context, tf model.Timeframe) error {
			_, err := svc.ingest.RunOnce(ctx, tf)
			return err
		},
		func(ctx context.Context, tf model.Timeframe) error {
			_, err := svc.compute.RunOnce(ctx, tf)
			return err
		},
	)

	return svc, nil
}

// Run starts all subsystems and blocks until ctx is cancelled or the
// HTTP server fails.
func (svc *Service) Run(ctx context.Context) error {
	cfg := svc.cfg
	log.Println("[scanner] starting relative-strength scanner...")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ---- Seed the watchlist ----
	svc.seedWatchlist(runCtx)

	// ---- Health probes ----
	tfs := cfg.Timeframes()
	names := make([]string, len(tfs))
	for i, tf := range tfs {
		names[i] = string(tf)
	}
	svc.health.SetTimeframes(names)
	svc.health.SetMarketOpen(svc.market.IsOpen(time.Now()))
	svc.health.StartLivenessChecker(runCtx, svc.cache.Client(), svc.store.DB().DB, 15*time.Second)
	go svc.marketStatusLoop(runCtx)

	// ---- HTTP gateway ----
	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}
	svc.httpAddr.Store(ln.Addr().String())
	svc.httpSrv = &http.Server{
		Handler:           svc.api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	httpErr := make(chan error, 1)
	go func() {
		if err := svc.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			httpErr <- err
		}
	}()

	// ---- Sweep loops ----
	svc.sched.Start(runCtx)

	// ---- Startup banner ----
	log.Println("[scanner] ╔══════════════════════════════════════════════════════╗")
	log.Println("[scanner] ║  Groww Relative-Strength Scanner Active              ║")
	log.Println("[scanner] ║                                                      ║")
	log.Println("[scanner] ║  [Groww REST] → [Candles] → [RRS/RRV/RVE] → [Push]   ║")
	log.Printf("[scanner] ║  HTTP on %-43s ║", svc.Addr())
	log.Printf("[scanner] ║  TFs: %-46v ║", tfs)
	log.Println("[scanner] ╚══════════════════════════════════════════════════════╝")
	log.Printf("[scanner] %s", svc.market.StatusString(time.Now()))
	log.Println("[scanner] ✅ all systems running. Press Ctrl+C to stop.")

	select {
	case err := <-httpErr:
		cancel()
		svc.shutdown()
		return err
	case <-ctx.Done():
	}

	cancel()
	svc.shutdown()
	return nil
}

// Addr returns the bound HTTP address once Run has started listening,
// empty before that.
func (svc *Service) Addr() string {
	if v := svc.httpAddr.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// Close releases connections without a full Run lifecycle. Run calls
// shutdown itself; Close covers the New-but-never-Run path.
func (svc *Service) Close() {
	svc.cache.Close()
	svc.store.Close()
}

// seedWatchlist loads the universe seed and inserts any missing rows.
// Seeding is idempotent; existing rows are never modified.
func (svc *Service) seedWatchlist(ctx context.Context) {
	u, err := config.LoadUniverse(svc.cfg.UniverseFile)
	if err != nil {
		log.Printf("[scanner] WARNING: universe seed skipped: %v", err)
		return
	}
	u.EnsureBenchmarks(svc.cfg.NiftySymbol, svc.cfg.BankNiftySymbol)
	stocks, indices, mappings := u.Watchlist()
	n, err := svc.store.SeedWatchlist(ctx, stocks, indices, mappings)
	if err != nil {
		log.Printf("[scanner] WARNING: watchlist seed failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[scanner] watchlist seeded: %d new rows", n)
	}
}

// marketStatusLoop keeps the health payload's market flag current.
func (svc *Service) marketStatusLoop(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.health.SetMarketOpen(svc.market.IsOpen(time.Now()))
		}
	}
}

// shutdown stops the sweep loops and HTTP server, then closes
// connections.
func (svc *Service) shutdown() {
	log.Println("[scanner] shutdown signal received...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutCancel()

	if svc.httpSrv != nil {
		if err := svc.httpSrv.Shutdown(shutCtx); err != nil {
			log.Printf("[scanner] http shutdown: %v", err)
		}
	}
	svc.sched.Wait()

	svc.cache.Close()
	svc.store.Close()

	log.Println("[scanner] shutdown complete.")
}
