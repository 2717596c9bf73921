// Command backfill pulls a deep candle history for the whole watchlist
// and exits. It ignores market hours; run it after seeding a fresh
// database or after downtime so the first scan has warm windows.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"groww-scanner/config"
	"groww-scanner/internal/cache"
	"groww-scanner/internal/ingest"
	"groww-scanner/internal/logger"
	"groww-scanner/internal/markethours"
	"groww-scanner/internal/metrics"
	"groww-scanner/internal/model"
	"groww-scanner/internal/provider"
	"groww-scanner/internal/ratelimit"
	"groww-scanner/internal/retry"
	"groww-scanner/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	bars := flag.Int("bars", 0, "bars per symbol and timeframe (default BACKFILL_BARS)")
	tfsRaw := flag.String("timeframes", "", "comma-separated timeframes (default SCHEDULER_TIMEFRAMES)")
	flag.Parse()

	cfg := config.Load()
	logger.Init("backfill", logger.ParseLevel(cfg.LogLevel))

	if *bars <= 0 {
		*bars = cfg.BackfillBars
	}
	tfs := cfg.Timeframes()
	if *tfsRaw != "" {
		if parsed := model.ParseTimeframes(*tfsRaw); len(parsed) > 0 {
			tfs = parsed
		}
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[backfill] store: %v", err)
	}
	defer st.Close()

	ca := cache.NewWithClient(nil)
	if cfg.RedisURL != "" {
		if connected, err := cache.New(cfg.RedisURL); err == nil {
			ca = connected
		} else {
			log.Printf("[backfill] WARNING: redis unavailable: %v (continuing without cache)", err)
		}
	}
	defer ca.Close()

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
		log.Fatalf("[backfill] provider: %v", err)
	}

	// Seed the watchlist so a fresh database backfills the full universe.
	if u, err := config.LoadUniverse(cfg.UniverseFile); err != nil {
		log.Printf("[backfill] WARNING: universe seed skipped: %v", err)
	} else {
		u.EnsureBenchmarks(cfg.NiftySymbol, cfg.BankNiftySymbol)
		stocks, indices, mappings := u.Watchlist()
		if n, err := st.SeedWatchlist(context.Background(), stocks, indices, mappings); err != nil {
			log.Printf("[backfill] WARNING: watchlist seed failed: %v", err)
		} else if n > 0 {
			log.Printf("[backfill] watchlist seeded: %d new rows", n)
		}
	}

	market, err := markethours.New(cfg.MarketTZ, cfg.MarketOpen, cfg.MarketClose, cfg.MarketDayList(), true)
	if err != nil {
		log.Fatalf("[backfill] market hours: %v", err)
	}

	svc := ingest.New(st, ca, fetcher, metrics.NewMetrics(), metrics.NewHealthStatus(), ingest.Config{
		Bars:             *bars,
		MarketTZ:         market.Location(),
		DefaultBenchmark: cfg.NiftySymbol,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[backfill] interrupted, finishing current symbol...")
		cancel()
	}()

	log.Printf("[backfill] %d bars per symbol across %v", *bars, tfs)
	failed := 0
	for _, tf := range tfs {
		res, err := svc.RunOnce(ctx, tf)
		if err != nil {
			log.Printf("[backfill] %s failed: %v", tf, err)
			failed++
			if ctx.Err() != nil {
				break
			}
			continue
		}
		log.Printf("[backfill] %s: %d symbols, %d candles in %s",
			tf, res.Symbols, res.Upserted, res.Elapsed.Round(time.Millisecond))
	}
	if failed > 0 {
		os.Exit(1)
	}
	log.Println("[backfill] done")
}
