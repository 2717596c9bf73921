package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the scanner.
type Metrics struct {
	// Ingest
	IngestSweepsTotal *prometheus.CounterVec   // labels: tf
	IngestSweepDur    *prometheus.HistogramVec // labels: tf
	CandlesUpserted   prometheus.Counter
	FetchErrorsTotal  *prometheus.CounterVec // labels: tf

	// Compute
	ComputeSweepsTotal *prometheus.CounterVec   // labels: tf
	ComputeSweepDur    *prometheus.HistogramVec // labels: tf
	SnapshotRowsTotal  *prometheus.CounterVec   // labels: tf, signal
	SymbolsSkipped     *prometheus.CounterVec   // labels: reason

	// Scheduler
	SweepsSkipped *prometheus.CounterVec // labels: kind (ingest|compute), reason

	// Cache
	CacheHits   *prometheus.CounterVec // labels: family
	CacheMisses *prometheus.CounterVec // labels: family

	// Store
	StoreCommitDur prometheus.Histogram

	// Gateway
	WSClients       *prometheus.GaugeVec // labels: tf
	WSDroppedTotal  prometheus.Counter
	WSMessagesTotal prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *Metrics
)

// NewMetrics registers all Prometheus metrics on the default registry
// and returns them. The registry rejects duplicate collectors, so the
// set is built once per process and shared.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInst = newMetrics()
	})
	return metricsInst
}

func newMetrics() *Metrics {
	m := &Metrics{
		IngestSweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_ingest_sweeps_total",
			Help: "Completed ingest sweeps (by timeframe)",
		}, []string{"tf"}),
		IngestSweepDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scanner_ingest_sweep_duration_seconds",
			Help:    "Ingest sweep wall time",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"tf"}),
		CandlesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_candles_upserted_total",
			Help: "Candle rows written to the store",
		}),
		FetchErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_fetch_errors_total",
			Help: "Provider fetch failures (by timeframe)",
		}, []string{"tf"}),

		ComputeSweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_compute_sweeps_total",
			Help: "Completed compute sweeps (by timeframe)",
		}, []string{"tf"}),
		ComputeSweepDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scanner_compute_sweep_duration_seconds",
			Help:    "Compute sweep wall time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"tf"}),
		SnapshotRowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_snapshot_rows_total",
			Help: "Snapshot rows produced (by timeframe and signal)",
		}, []string{"tf", "signal"}),
		SymbolsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_symbols_skipped_total",
			Help: "Symbols left out of a snapshot (by reason)",
		}, []string{"reason"}),

		SweepsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_sweeps_skipped_total",
			Help: "Sweeps skipped by the scheduler (by kind and reason)",
		}, []string{"kind", "reason"}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_cache_hits_total",
			Help: "Redis cache hits (by key family)",
		}, []string{"family"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_cache_misses_total",
			Help: "Redis cache misses (by key family)",
		}, []string{"family"}),

		StoreCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_store_commit_duration_seconds",
			Help:    "Store batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),

		WSClients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scanner_ws_clients",
			Help: "Connected WebSocket clients (by timeframe)",
		}, []string{"tf"}),
		WSDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_ws_dropped_total",
			Help: "Payloads dropped for slow WebSocket clients",
		}),
		WSMessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_ws_messages_total",
			Help: "Payloads pushed to WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.IngestSweepsTotal,
		m.IngestSweepDur,
		m.CandlesUpserted,
		m.FetchErrorsTotal,
		m.ComputeSweepsTotal,
		m.ComputeSweepDur,
		m.SnapshotRowsTotal,
		m.SymbolsSkipped,
		m.SweepsSkipped,
		m.CacheHits,
		m.CacheMisses,
		m.StoreCommitDur,
		m.WSClients,
		m.WSDroppedTotal,
		m.WSMessagesTotal,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool
	StoreOK        bool
	MarketOpen     bool
	Timeframes     []string
	LastIngestAt   time.Time
	LastComputeAt  time.Time

	RedisLatencyMs float64
	StoreLatencyMs float64
	LastCheckAt    time.Time
	StartedAt      time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetMarketOpen(v bool) {
	h.mu.Lock()
	h.MarketOpen = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetTimeframes(tfs []string) {
	h.mu.Lock()
	h.Timeframes = tfs
	h.mu.Unlock()
}

func (h *HealthStatus) MarkIngest(t time.Time) {
	h.mu.Lock()
	h.LastIngestAt = t
	h.mu.Unlock()
}

func (h *HealthStatus) MarkCompute(t time.Time) {
	h.mu.Lock()
	h.LastComputeAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckStore pings the database and records latency + health.
func (h *HealthStatus) CheckStore(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.StoreOK = err == nil
	h.StoreLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. A nil rdb means
// the cache is intentionally absent and never degrades health.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	if rdb == nil {
		h.mu.Lock()
		h.RedisConnected = true
		h.mu.Unlock()
	}

	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if rdb != nil {
			h.CheckRedis(probeCtx, rdb)
		}
		if sqlDB != nil {
			h.CheckStore(probeCtx, sqlDB)
		}
		cancel()
	}
	probe()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe()
			}
		}
	}()
}

// ServeHTTP handles the /health endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.RedisConnected || !h.StoreOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.StoreOK {
		overallStatus = "unhealthy"
	}

	fmtTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}

	status := struct {
		Status         string   `json:"status"`
		Uptime         string   `json:"uptime"`
		MarketOpen     bool     `json:"market_open"`
		Timeframes     []string `json:"timeframes"`
		RedisConnected bool     `json:"redis_connected"`
		RedisLatencyMs float64  `json:"redis_latency_ms"`
		StoreOK        bool     `json:"store_ok"`
		StoreLatencyMs float64  `json:"store_latency_ms"`
		LastIngestAt   string   `json:"last_ingest_at"`
		LastComputeAt  string   `json:"last_compute_at"`
		LastCheckAt    string   `json:"last_check_at"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		MarketOpen:     h.MarketOpen,
		Timeframes:     h.Timeframes,
		RedisConnected: h.RedisConnected,
		RedisLatencyMs: h.RedisLatencyMs,
		StoreOK:        h.StoreOK,
		StoreLatencyMs: h.StoreLatencyMs,
		LastIngestAt:   fmtTime(h.LastIngestAt),
		LastComputeAt:  fmtTime(h.LastComputeAt),
		LastCheckAt:    fmtTime(h.LastCheckAt),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}
