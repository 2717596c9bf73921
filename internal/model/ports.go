package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These interfaces decouple the ingest/compute services from concrete
// collaborators so tests can substitute fakes.

// CandleFetcher pulls historical OHLCV bars from the upstream provider.
type CandleFetcher interface {
	// FetchCandles returns bars for [start, end) at the given timeframe,
	// ordered ascending by TS. Both bounds are UTC.
	FetchCandles(ctx context.Context, symbol string, tf Timeframe, start, end time.Time) ([]Candle, error)
}

// SnapshotPublisher pushes a finished scanner payload to streaming clients.
type SnapshotPublisher interface {
	// Publish fans the payload out to all subscribers of the timeframe.
	// Safe to call from any goroutine; never blocks on a slow client.
	Publish(tf Timeframe, payload []byte)
}
