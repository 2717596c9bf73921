package cache

import (
	"fmt"
	"time"

	"groww-scanner/internal/model"
)

// TTLs per key family. Scanner and benchmark payloads carry no expiry so
// the last computed state survives quiet periods.
const (
	CandlesTTL       = 120 * time.Second // full window written by ingest
	CandlesWindowTTL = 30 * time.Second  // sized reads used by compute
	RelativeTTL      = 20 * time.Second  // on-demand symbol metrics
)

// CandlesKey is the full candle window for a symbol written by ingest.
func CandlesKey(symbol string, tf model.Timeframe) string {
	return fmt.Sprintf("candles:%s:%s", symbol, tf)
}

// CandlesWindowKey is an n-bar read window used by compute sweeps.
func CandlesWindowKey(symbol string, tf model.Timeframe, n int) string {
	return fmt.Sprintf("candles:%s:%s:%d", symbol, tf, n)
}

// ScannerKey holds the latest ranked scanner payload for a timeframe.
func ScannerKey(tf model.Timeframe) string {
	return fmt.Sprintf("scanner:%s", tf)
}

// BenchmarksKey holds the latest benchmark regime payload for a timeframe.
func BenchmarksKey(tf model.Timeframe) string {
	return fmt.Sprintf("benchmarks:%s", tf)
}

// RelativeKey holds on-demand relative metrics for one symbol.
func RelativeKey(symbol string, tf model.Timeframe, n int) string {
	return fmt.Sprintf("relative:%s:%s:%d", symbol, tf, n)
}
