// Package ingest pulls OHLCV bars from the upstream provider into the
// store and hot cache. One sweep covers the whole active universe for a
// single timeframe; the scheduler runs sweeps on a cadence, the backfill
// command runs them once with a deep window.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"groww-scanner/internal/cache"
	"groww-scanner/internal/logger"
	"groww-scanner/internal/metrics"
	"groww-scanner/internal/model"
	"groww-scanner/internal/provider"
	"groww-scanner/internal/store"
)

// Config carries the sweep parameters.
type Config struct {
	// Bars is the target window depth. The provider's per-interval
	// max-days ceiling may shrink it.
	Bars int
	// MarketTZ anchors the sweep window to the exchange clock.
	MarketTZ *time.Location
	// DefaultBenchmark is always ingested even when no watchlist row
	// references it.
	DefaultBenchmark string
}

// Service runs ingest sweeps.
type Service struct {
	store   *store.Store
	cache   *cache.Cache
	fetcher model.CandleFetcher
	prom    *metrics.Metrics
	health  *metrics.HealthStatus
	cfg     Config
}

func New(st *store.Store, ca *cache.Cache, fetcher model.CandleFetcher, prom *metrics.Metrics, health *metrics.HealthStatus, cfg Config) *Service {
	if cfg.MarketTZ == nil {
		cfg.MarketTZ = time.UTC
	}
	return &Service{store: st, cache: ca, fetcher: fetcher, prom: prom, health: health, cfg: cfg}
}

// SweepResult aggregates one ingest pass over a timeframe.
type SweepResult struct {
	Timeframe model.Timeframe
	Symbols   int
	Fetched   int
	Upserted  int
	Failed    int
	Elapsed   time.Duration
}

// RunOnce sweeps every symbol in the active universe for one timeframe.
// Per-symbol failures are logged and counted, never fatal; the returned
// error covers only sweep-level problems (unknown timeframe, watchlist
// read failure, cancellation).
func (s *Service) RunOnce(ctx context.Context, tf model.Timeframe) (SweepResult, error) {
	started := time.Now()
	res := SweepResult{Timeframe: tf}

	interval, ok := provider.IntervalFor(tf)
	if !ok {
		return res, fmt.Errorf("ingest: unknown timeframe %q", tf)
	}

	symbols, err := s.symbolSet(ctx)
	if err != nil {
		return res, fmt.Errorf("ingest: %w", err)
	}
	res.Symbols = len(symbols)

	end := time.Now().In(s.cfg.MarketTZ)
	bars := s.cfg.Bars
	if ceiling := interval.MaxDays * 24 * 60 / interval.Minutes; bars > ceiling {
		bars = ceiling
	}
	start := end.Add(-time.Duration(bars*interval.Minutes) * time.Minute)

	sweepID := logger.SweepID("ingest-"+string(tf), started)
	log.Printf("[ingest] %s start: %d symbols, window %s -> %s",
		sweepID, len(symbols), start.Format(time.RFC3339), end.Format(time.RFC3339))

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		candles, err := s.fetcher.FetchCandles(ctx, symbol, tf, start, end)
		if err != nil {
			res.Failed++
			s.prom.FetchErrorsTotal.WithLabelValues(string(tf)).Inc()
			log.Printf("[ingest] %s %s fetch failed: %v", sweepID, symbol, err)
			continue
		}
		if len(candles) == 0 {
			log.Printf("[ingest] %s no candles for %s", sweepID, symbol)
			continue
		}

		n, err := s.store.UpsertCandles(ctx, candles)
		if err != nil {
			res.Failed++
			log.Printf("[ingest] %s %s upsert failed: %v", sweepID, symbol, err)
			continue
		}

		if err := s.cache.SetJSON(ctx, cache.CandlesKey(symbol, tf), model.NewSeries(candles), cache.CandlesTTL); err != nil {
			log.Printf("[ingest] %s cache write for %s failed: %v", sweepID, symbol, err)
		}

		res.Fetched++
		res.Upserted += n
	}

	res.Elapsed = time.Since(started)
	s.prom.IngestSweepsTotal.WithLabelValues(string(tf)).Inc()
	s.prom.IngestSweepDur.WithLabelValues(string(tf)).Observe(res.Elapsed.Seconds())
	s.prom.CandlesUpserted.Add(float64(res.Upserted))
	s.health.MarkIngest(time.Now())

	log.Printf("[ingest] %s done: tf=%s symbols=%d fetched=%d upserted=%d failed=%d dur=%s",
		sweepID, tf, res.Symbols, res.Fetched, res.Upserted, res.Failed,
		res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// symbolSet resolves the sweep universe: active stocks, active indices'
// data symbols, mapped industry indices, and the default benchmark.
// Mapped indices resolve through the watchlist's data-symbol alias when
// one exists.
func (s *Service) symbolSet(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})

	stocks, err := s.store.ActiveStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("active stocks: %w", err)
	}
	for _, st := range stocks {
		set[st.Symbol] = struct{}{}
	}

	indices, err := s.store.ActiveIndices(ctx)
	if err != nil {
		return nil, fmt.Errorf("active indices: %w", err)
	}
	dataSym := make(map[string]string, len(indices))
	for _, ix := range indices {
		set[ix.DataSymbol] = struct{}{}
		dataSym[ix.Symbol] = ix.DataSymbol
	}

	mappings, err := s.store.IndexMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("index mappings: %w", err)
	}
	for _, m := range mappings {
		sym := m.IndexSymbol
		if ds, ok := dataSym[sym]; ok {
			sym = ds
		}
		set[sym] = struct{}{}
	}

	if s.cfg.DefaultBenchmark != "" {
		set[s.cfg.DefaultBenchmark] = struct{}{}
	}

	symbols := make([]string, 0, len(set))
	for sym := range set {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}
