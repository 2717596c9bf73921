// Package scheduler drives the ingest and compute sweeps on fixed
// cadences, one loop per timeframe and kind, gated by market hours.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"groww-scanner/internal/metrics"
	"groww-scanner/internal/model"
)

// SweepFunc runs one pass of a pipeline stage for a timeframe.
type SweepFunc func(ctx context.Context, tf model.Timeframe) error

// MarketGate reports whether sweeps should run at a given instant.
type MarketGate interface {
	IsOpen(t time.Time) bool
}

// Config carries the sweep cadences.
type Config struct {
	Timeframes      []model.Timeframe
	IngestInterval  time.Duration
	ComputeInterval time.Duration
}

// Scheduler owns one ticker loop per (kind, timeframe) pair. Sweeps of
// the same kind share a mutex: ingest sweeps share one provider rate
// budget and compute sweeps share one store, so a tick that finds its
// kind busy is skipped, not queued.
type Scheduler struct {
	cfg     Config
	gate    MarketGate
	prom    *metrics.Metrics
	ingest  SweepFunc
	compute SweepFunc

	ingestMu  sync.Mutex
	computeMu sync.Mutex
	wg        sync.WaitGroup
}

func New(cfg Config, gate MarketGate, prom *metrics.Metrics, ingest, compute SweepFunc) *Scheduler {
	if cfg.IngestInterval <= 0 {
		cfg.IngestInterval = 45 * time.Second
	}
	if cfg.ComputeInterval <= 0 {
		cfg.ComputeInterval = 60 * time.Second
	}
	return &Scheduler{cfg: cfg, gate: gate, prom: prom, ingest: ingest, compute: compute}
}

// Start launches the sweep loops. They run until ctx is cancelled; use
// Wait to block for their shutdown.
func (s *Scheduler) Start(ctx context.Context) {
	for _, tf := range s.cfg.Timeframes {
		s.wg.Add(2)
		go s.loop(ctx, "ingest", tf, s.cfg.IngestInterval, &s.ingestMu, s.ingest)
		go s.loop(ctx, "compute", tf, s.cfg.ComputeInterval, &s.computeMu, s.compute)
	}
	log.Printf("[scheduler] started %d loops for %v (ingest every %s, compute every %s)",
		2*len(s.cfg.Timeframes), s.cfg.Timeframes, s.cfg.IngestInterval, s.cfg.ComputeInterval)
}

// Wait blocks until every loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, kind string, tf model.Timeframe, interval time.Duration, mu *sync.Mutex, run SweepFunc) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First pass right away so a restart does not sit idle for a full
	// interval.
	s.tick(ctx, kind, tf, mu, run)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[scheduler] %s %s loop stopped", kind, tf)
			return
		case <-ticker.C:
			s.tick(ctx, kind, tf, mu, run)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, kind string, tf model.Timeframe, mu *sync.Mutex, run SweepFunc) {
	if ctx.Err() != nil {
		return
	}
	if !s.gate.IsOpen(time.Now()) {
		s.prom.SweepsSkipped.WithLabelValues(kind, "market_closed").Inc()
		log.Printf("[scheduler] skip %s %s: market closed", kind, tf)
		return
	}
	if !mu.TryLock() {
		s.prom.SweepsSkipped.WithLabelValues(kind, "overlap").Inc()
		log.Printf("[scheduler] skip %s %s: previous sweep still running", kind, tf)
		return
	}
	defer mu.Unlock()

	if err := run(ctx, tf); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[scheduler] %s %s failed: %v", kind, tf, err)
	}
}
