package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"groww-scanner/internal/cache"
	"groww-scanner/internal/metrics"
	"groww-scanner/internal/model"
	"groww-scanner/internal/store"
)

// One registry per test binary; NewMetrics registers into the default
// Prometheus registry and would panic if called twice.
var testMetrics = metrics.NewMetrics()

type fetchCall struct {
	symbol string
	start  time.Time
	end    time.Time
}

type fakeFetcher struct {
	mu     sync.Mutex
	calls  []fetchCall
	fail   map[string]error
	bars   int
	cancel context.CancelFunc
}

func (f *fakeFetcher) FetchCandles(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{symbol: symbol, start: start, end: end})
	f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}

	candles := make([]model.Candle, f.bars)
	base := end.UTC().Truncate(tf.Duration())
	for i := range candles {
		px := 100 + float64(i)
		candles[i] = model.Candle{
			Symbol:    symbol,
			Timeframe: tf,
			TS:        base.Add(-time.Duration(f.bars-1-i) * tf.Duration()),
			Open:      px,
			High:      px + 1,
			Low:       px - 1,
			Close:     px + 0.5,
			Volume:    1000,
			Source:    "test",
		}
	}
	return candles, nil
}

func (f *fakeFetcher) symbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.symbol
	}
	return out
}

func newTestService(t *testing.T, fetcher *fakeFetcher, bars int) (*Service, *store.Store) {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = st.SeedWatchlist(context.Background(),
		[]model.WatchStock{
			{Symbol: "RELIANCE", Name: "Reliance Industries", Active: true},
			{Symbol: "HDFCBANK", Name: "HDFC Bank", Active: true},
		},
		[]model.WatchIndex{
			{Symbol: "NIFTY", Name: "Nifty 50", DataSymbol: "NIFTY", Active: true},
		},
		[]model.TickerIndex{
			{StockSymbol: "HDFCBANK", IndexSymbol: "BANKNIFTY"},
		})
	require.NoError(t, err)

	svc := New(st, cache.NewWithClient(nil), fetcher, testMetrics, metrics.NewHealthStatus(), Config{
		Bars:             bars,
		MarketTZ:         time.UTC,
		DefaultBenchmark: "NIFTY",
	})
	return svc, st
}

func TestRunOnceSweepsWholeUniverse(t *testing.T) {
	fetcher := &fakeFetcher{bars: 10}
	svc, st := newTestService(t, fetcher, 50)

	res, err := svc.RunOnce(context.Background(), model.TF5m)
	require.NoError(t, err)

	// Active stocks + mapped BANKNIFTY + NIFTY (index and default), deduped.
	require.Equal(t, []string{"BANKNIFTY", "HDFCBANK", "NIFTY", "RELIANCE"}, fetcher.symbols())
	require.Equal(t, 4, res.Symbols)
	require.Equal(t, 4, res.Fetched)
	require.Equal(t, 40, res.Upserted)
	require.Equal(t, 0, res.Failed)

	got, err := st.LatestCandles(context.Background(), "RELIANCE", model.TF5m, 20)
	require.NoError(t, err)
	require.Len(t, got, 10)
}

func TestRunOncePerSymbolFailureContinues(t *testing.T) {
	fetcher := &fakeFetcher{bars: 5, fail: map[string]error{"HDFCBANK": errors.New("upstream 500")}}
	svc, st := newTestService(t, fetcher, 50)

	res, err := svc.RunOnce(context.Background(), model.TF15m)
	require.NoError(t, err, "one bad symbol must not abort the sweep")
	require.Equal(t, 3, res.Fetched)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, 15, res.Upserted)

	got, err := st.LatestCandles(context.Background(), "HDFCBANK", model.TF15m, 5)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRunOnceEmptyFetchIsNotAFailure(t *testing.T) {
	fetcher := &fakeFetcher{bars: 0}
	svc, _ := newTestService(t, fetcher, 50)

	res, err := svc.RunOnce(context.Background(), model.TF1h)
	require.NoError(t, err)
	require.Equal(t, 4, res.Symbols)
	require.Equal(t, 0, res.Fetched)
	require.Equal(t, 0, res.Failed)
	require.Equal(t, 0, res.Upserted)
}

func TestRunOnceRejectsUnknownTimeframe(t *testing.T) {
	svc, _ := newTestService(t, &fakeFetcher{bars: 1}, 50)

	_, err := svc.RunOnce(context.Background(), model.Timeframe("2m"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown timeframe")
}

func TestWindowRespectsProviderCeiling(t *testing.T) {
	fetcher := &fakeFetcher{bars: 1}
	svc, _ := newTestService(t, fetcher, 1_000_000)

	_, err := svc.RunOnce(context.Background(), model.TF5m)
	require.NoError(t, err)

	// 5m tier allows 30 days: 30*24*60/5 = 8640 bars.
	call := fetcher.calls[0]
	require.Equal(t, 30*24*time.Hour, call.end.Sub(call.start))
}

func TestRunOnceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeFetcher{bars: 3, cancel: cancel}
	svc, _ := newTestService(t, fetcher, 50)

	_, err := svc.RunOnce(ctx, model.TF5m)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, fetcher.calls, 1, "sweep must stop at the next symbol boundary")
}
