// Package compute turns stored candles into scanner snapshots: benchmark
// regimes, per-symbol relative indicators against each symbol's mapped
// benchmark, classification, ranking, persistence, and broadcast.
package compute

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"groww-scanner/internal/cache"
	"groww-scanner/internal/kernel"
	"groww-scanner/internal/logger"
	"groww-scanner/internal/metrics"
	"groww-scanner/internal/model"
	"groww-scanner/internal/store"
)

// Skip reasons, used as log text and metric labels.
const (
	reasonMissingCandles   = "missing_candles"
	reasonMissingBenchmark = "missing_benchmark"
	reasonInsufficientBars = "insufficient_bars"
	reasonNonFinite        = "non_finite"
)

// Config carries the compute parameters.
type Config struct {
	// Bars is the candle window loaded per series.
	Bars int
	// DefaultBenchmark is the fallback benchmark for unmapped stocks
	// and is always part of the benchmark-state set.
	DefaultBenchmark string
}

// Service runs compute sweeps and on-demand relative queries.
type Service struct {
	store     *store.Store
	cache     *cache.Cache
	publisher model.SnapshotPublisher
	prom      *metrics.Metrics
	health    *metrics.HealthStatus
	params    kernel.Params
	cfg       Config
}

func New(st *store.Store, ca *cache.Cache, pub model.SnapshotPublisher, prom *metrics.Metrics, health *metrics.HealthStatus, cfg Config) *Service {
	if cfg.Bars <= 0 {
		cfg.Bars = 200
	}
	return &Service{
		store:     st,
		cache:     ca,
		publisher: pub,
		prom:      prom,
		health:    health,
		params:    kernel.DefaultParams(),
		cfg:       cfg,
	}
}

// SweepResult aggregates one compute pass over a timeframe.
type SweepResult struct {
	Timeframe  model.Timeframe
	TS         time.Time
	Rows       int
	Benchmarks int
	Skipped    int
	Elapsed    time.Duration
}

// RunOnce computes the snapshot for one timeframe: benchmark states for
// every active index, one ranked row per scorable stock, then cache,
// persist, and broadcast. Missing data never aborts the sweep; an empty
// snapshot is still published so the read path stays well-formed.
func (s *Service) RunOnce(ctx context.Context, tf model.Timeframe) (SweepResult, error) {
	started := time.Now()
	ts := started.UTC()
	res := SweepResult{Timeframe: tf, TS: ts}

	sweepID := logger.SweepID("compute-"+string(tf), started)

	indices, err := s.store.ActiveIndices(ctx)
	if err != nil {
		return res, fmt.Errorf("compute: active indices: %w", err)
	}
	mappings, err := s.store.IndexMappings(ctx)
	if err != nil {
		return res, fmt.Errorf("compute: index mappings: %w", err)
	}
	stocks, err := s.store.ActiveStocks(ctx)
	if err != nil {
		return res, fmt.Errorf("compute: active stocks: %w", err)
	}

	// Index symbol -> provider data symbol; identity for unlisted indices.
	dataSym := make(map[string]string, len(indices))
	for _, ix := range indices {
		dataSym[ix.Symbol] = ix.DataSymbol
	}
	resolve := func(index string) string {
		if ds, ok := dataSym[index]; ok {
			return ds
		}
		return index
	}

	loader := s.newSweepLoader(tf)

	// Benchmark states: default benchmark first, then active indices.
	states := make([]model.BenchmarkState, 0, len(indices)+1)
	benchNames := make([]string, 0, len(indices)+1)
	seen := make(map[string]bool, len(indices)+1)
	if s.cfg.DefaultBenchmark != "" {
		benchNames = append(benchNames, s.cfg.DefaultBenchmark)
		seen[s.cfg.DefaultBenchmark] = true
	}
	for _, ix := range indices {
		if !seen[ix.Symbol] {
			benchNames = append(benchNames, ix.Symbol)
			seen[ix.Symbol] = true
		}
	}
	for _, name := range benchNames {
		state := model.BenchmarkState{Benchmark: name, Timeframe: tf, TS: ts, Regime: model.RegimeNoData}
		series, ok, err := loader.load(ctx, resolve(name))
		if err != nil {
			return res, fmt.Errorf("compute: benchmark %s: %w", name, err)
		}
		if ok {
			trend, volExp, part, regime := kernel.BenchmarkRegime(series, s.params.Length)
			state.Trend, state.VolExpansion, state.Participation, state.Regime = trend, volExp, part, regime
		} else {
			log.Printf("[compute] %s benchmark %s has no candles", sweepID, name)
		}
		states = append(states, state)
	}
	res.Benchmarks = len(states)

	// Stock -> mapped indices, in stable sorted order.
	mapped := make(map[string][]string)
	for _, m := range mappings {
		mapped[m.StockSymbol] = append(mapped[m.StockSymbol], m.IndexSymbol)
	}

	rows := make([]model.SnapshotRow, 0, len(stocks))
	for _, stock := range stocks {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		bench := s.cfg.DefaultBenchmark
		if idxs := mapped[stock.Symbol]; len(idxs) > 0 {
			bench = idxs[0]
		}

		symSeries, ok, err := loader.load(ctx, stock.Symbol)
		if err != nil {
			return res, fmt.Errorf("compute: %s: %w", stock.Symbol, err)
		}
		if !ok {
			s.skip(sweepID, stock.Symbol, reasonMissingCandles)
			res.Skipped++
			continue
		}

		benSeries, ok, err := loader.load(ctx, resolve(bench))
		if err != nil {
			return res, fmt.Errorf("compute: benchmark %s: %w", bench, err)
		}
		if !ok {
			s.skip(sweepID, stock.Symbol, reasonMissingBenchmark)
			res.Skipped++
			continue
		}

		m, reason := s.scorePair(symSeries, benSeries)
		if reason != "" {
			s.skip(sweepID, stock.Symbol, reason)
			res.Skipped++
			continue
		}

		rows = append(rows, model.SnapshotRow{
			Symbol:          stock.Symbol,
			Timeframe:       tf,
			BenchmarkSymbol: bench,
			RRS:             m.rrs,
			RRV:             m.rrv,
			RVE:             m.rve,
			Signal:          m.signal,
		})
	}

	model.SortSnapshotRows(rows)
	res.Rows = len(rows)

	payload := model.ScannerPayload{Timeframe: tf, TS: ts.Format(time.RFC3339), Rows: rows}
	if err := s.cache.SetJSON(ctx, cache.ScannerKey(tf), &payload, 0); err != nil {
		log.Printf("[compute] %s scanner cache write failed: %v", sweepID, err)
	}
	if err := s.store.SaveSnapshot(ctx, tf, ts, rows); err != nil {
		return res, fmt.Errorf("compute: save snapshot: %w", err)
	}

	benchPayload := model.BenchmarksPayload{Timeframe: tf, TS: ts.Format(time.RFC3339), States: states}
	if err := s.cache.SetJSON(ctx, cache.BenchmarksKey(tf), &benchPayload, 0); err != nil {
		log.Printf("[compute] %s benchmarks cache write failed: %v", sweepID, err)
	}
	if err := s.store.SaveBenchmarkStates(ctx, tf, ts, states); err != nil {
		return res, fmt.Errorf("compute: save benchmark states: %w", err)
	}

	s.publisher.Publish(tf, payload.JSON())

	res.Elapsed = time.Since(started)
	s.prom.ComputeSweepsTotal.WithLabelValues(string(tf)).Inc()
	s.prom.ComputeSweepDur.WithLabelValues(string(tf)).Observe(res.Elapsed.Seconds())
	for _, r := range rows {
		s.prom.SnapshotRowsTotal.WithLabelValues(string(tf), string(r.Signal)).Inc()
	}
	s.health.MarkCompute(time.Now())

	log.Printf("[compute] %s done: tf=%s rows=%d benchmarks=%d skipped=%d dur=%s",
		sweepID, tf, res.Rows, res.Benchmarks, res.Skipped, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

func (s *Service) skip(sweepID, symbol, reason string) {
	s.prom.SymbolsSkipped.WithLabelValues(reason).Inc()
	log.Printf("[compute] %s skip %s: %s", sweepID, symbol, reason)
}

// pairMetrics holds the latest indicator values for one stock/benchmark
// pair.
type pairMetrics struct {
	rrs, rrv, rve float64
	signal        model.Signal
	lastTS        int64
}

// scorePair aligns a pair and runs the indicator stack. A non-empty
// reason means the pair is not scorable.
func (s *Service) scorePair(sym, ben model.Series) (pairMetrics, string) {
	symA, benA, common := kernel.Align(sym, ben)
	if len(common) < s.params.MinBars {
		return pairMetrics{}, reasonInsufficientBars
	}

	rrsSeries := kernel.RRS(symA, benA, s.params)
	rrvSeries := kernel.RRV(symA.Volume, benA.Volume, s.params)
	rveSeries := kernel.RVE(symA, benA, s.params)

	m := pairMetrics{
		rrs:    last(rrsSeries),
		rrv:    last(rrvSeries),
		rve:    last(rveSeries),
		lastTS: common[len(common)-1],
	}
	if !finite(m.rrs) || !finite(m.rrv) || !finite(m.rve) {
		return pairMetrics{}, reasonNonFinite
	}
	m.signal = kernel.Classify(m.rrs, m.rrv, m.rve, rrsSeries)
	return m, ""
}

func last(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return x[len(x)-1]
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
