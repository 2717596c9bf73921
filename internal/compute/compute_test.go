package compute

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/require"

	"groww-scanner/internal/cache"
	"groww-scanner/internal/metrics"
	"groww-scanner/internal/model"
	"groww-scanner/internal/store"
)

// One registry per test binary; the default Prometheus registry rejects
// duplicate collectors.
var testMetrics = metrics.NewMetrics()

var sweepStart = time.Date(2024, 4, 8, 9, 15, 0, 0, time.UTC)

type fakePublisher struct {
	mu   sync.Mutex
	tfs  []model.Timeframe
	msgs [][]byte
}

func (f *fakePublisher) Publish(tf model.Timeframe, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tfs = append(f.tfs, tf)
	f.msgs = append(f.msgs, payload)
}

func (f *fakePublisher) published() ([]model.Timeframe, [][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Timeframe(nil), f.tfs...), append([][]byte(nil), f.msgs...)
}

// rampCandles builds n monotonically rising bars so every indicator in
// the stack has warm, finite values by the tail of the series.
func rampCandles(symbol string, tf model.Timeframe, n int, base float64) []model.Candle {
	out := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		px := base + float64(i)
		out[i] = model.Candle{
			Symbol:    symbol,
			Timeframe: tf,
			TS:        sweepStart.Add(time.Duration(i) * tf.Duration()),
			Open:      px - 0.5,
			High:      px + 1,
			Low:       px - 1,
			Close:     px,
			Volume:    1000 + 10*float64(i),
			Source:    "groww",
		}
	}
	return out
}

func newFixture(t *testing.T, rdb *goredis.Client) (*Service, *store.Store, *fakePublisher) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	pub := &fakePublisher{}
	svc := New(st, cache.NewWithClient(rdb), pub, testMetrics, metrics.NewHealthStatus(), Config{
		Bars:             200,
		DefaultBenchmark: "NIFTY",
	})
	return svc, st, pub
}

func seedCandles(t *testing.T, st *store.Store, batches ...[]model.Candle) {
	t.Helper()
	for _, batch := range batches {
		_, err := st.UpsertCandles(context.Background(), batch)
		require.NoError(t, err)
	}
}

func rowFor(t *testing.T, rows []model.SnapshotRow, symbol string) model.SnapshotRow {
	t.Helper()
	for _, r := range rows {
		if r.Symbol == symbol {
			return r
		}
	}
	t.Fatalf("no snapshot row for %s", symbol)
	return model.SnapshotRow{}
}

func TestRunOnceProducesRankedSnapshot(t *testing.T) {
	svc, st, pub := newFixture(t, nil)
	ctx := context.Background()

	_, err := st.SeedWatchlist(ctx,
		[]model.WatchStock{
			{Symbol: "ALPHA", Name: "Alpha Ltd", Active: true},
			{Symbol: "BETA", Name: "Beta Ltd", Active: true},
		},
		[]model.WatchIndex{
			{Symbol: "NIFTY", Name: "Nifty 50", DataSymbol: "NIFTY", Active: true},
			{Symbol: "BANKNIFTY", Name: "Bank Nifty", DataSymbol: "BANKNIFTY", Active: true},
		},
		[]model.TickerIndex{{StockSymbol: "BETA", IndexSymbol: "BANKNIFTY"}},
	)
	require.NoError(t, err)

	seedCandles(t, st,
		rampCandles("ALPHA", model.TF5m, 50, 100),
		rampCandles("BETA", model.TF5m, 50, 200),
		rampCandles("NIFTY", model.TF5m, 50, 10000),
		rampCandles("BANKNIFTY", model.TF5m, 50, 20000),
	)

	res, err := svc.RunOnce(ctx, model.TF5m)
	require.NoError(t, err)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, 2, res.Benchmarks)
	require.Zero(t, res.Skipped)

	tfs, msgs := pub.published()
	require.Equal(t, []model.Timeframe{model.TF5m}, tfs)
	require.Len(t, msgs, 1)

	var payload model.ScannerPayload
	require.NoError(t, json.Unmarshal(msgs[0], &payload))
	require.Equal(t, model.TF5m, payload.Timeframe)
	_, err = time.Parse(time.RFC3339, payload.TS)
	require.NoError(t, err)
	require.Len(t, payload.Rows, 2)

	alpha := rowFor(t, payload.Rows, "ALPHA")
	require.Equal(t, "NIFTY", alpha.BenchmarkSymbol, "unmapped stock scores against the default benchmark")
	beta := rowFor(t, payload.Rows, "BETA")
	require.Equal(t, "BANKNIFTY", beta.BenchmarkSymbol, "mapped stock scores against its sector index")
	for _, r := range payload.Rows {
		require.NotEqual(t, model.SignalNoData, r.Signal)
	}

	storeTS, storeRows, err := st.LatestSnapshot(ctx, model.TF5m)
	require.NoError(t, err)
	require.Equal(t, payload.Rows, storeRows, "persisted snapshot matches the broadcast payload")
	require.Equal(t, res.TS.Truncate(time.Second), storeTS)

	_, states, err := st.LatestBenchmarkStates(ctx, model.TF5m)
	require.NoError(t, err)
	require.Len(t, states, 2)
	for _, s := range states {
		require.NotEqual(t, model.RegimeNoData, s.Regime)
	}
}

func TestRunOnceEmptyUniverseStillPublishes(t *testing.T) {
	svc, st, pub := newFixture(t, nil)
	ctx := context.Background()

	res, err := svc.RunOnce(ctx, model.TF15m)
	require.NoError(t, err)
	require.Zero(t, res.Rows)
	require.Equal(t, 1, res.Benchmarks, "default benchmark is always reported")

	tfs, msgs := pub.published()
	require.Equal(t, []model.Timeframe{model.TF15m}, tfs)

	var payload model.ScannerPayload
	require.NoError(t, json.Unmarshal(msgs[0], &payload))
	require.NotNil(t, payload.Rows)
	require.Empty(t, payload.Rows)

	_, states, err := st.LatestBenchmarkStates(ctx, model.TF15m)
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, "NIFTY", states[0].Benchmark)
	require.Equal(t, model.RegimeNoData, states[0].Regime)
}

func TestRunOnceSkipsStockWithoutCandles(t *testing.T) {
	svc, st, pub := newFixture(t, nil)
	ctx := context.Background()

	_, err := st.SeedWatchlist(ctx,
		[]model.WatchStock{
			{Symbol: "GOOD", Active: true},
			{Symbol: "GHOST", Active: true},
		},
		[]model.WatchIndex{{Symbol: "NIFTY", DataSymbol: "NIFTY", Active: true}},
		nil,
	)
	require.NoError(t, err)

	seedCandles(t, st,
		rampCandles("GOOD", model.TF5m, 50, 100),
		rampCandles("NIFTY", model.TF5m, 50, 10000),
	)

	res, err := svc.RunOnce(ctx, model.TF5m)
	require.NoError(t, err)
	require.Equal(t, 1, res.Rows)
	require.Equal(t, 1, res.Skipped)

	_, msgs := pub.published()
	var payload model.ScannerPayload
	require.NoError(t, json.Unmarshal(msgs[0], &payload))
	require.Len(t, payload.Rows, 1)
	require.Equal(t, "GOOD", payload.Rows[0].Symbol)
}

func TestRunOnceSkipsWhenBenchmarkMissing(t *testing.T) {
	svc, st, _ := newFixture(t, nil)
	ctx := context.Background()

	// ALPHA maps to a sector index that has no candles anywhere.
	_, err := st.SeedWatchlist(ctx,
		[]model.WatchStock{{Symbol: "ALPHA", Active: true}},
		[]model.WatchIndex{{Symbol: "NIFTY", DataSymbol: "NIFTY", Active: true}},
		[]model.TickerIndex{{StockSymbol: "ALPHA", IndexSymbol: "SECTORX"}},
	)
	require.NoError(t, err)

	seedCandles(t, st,
		rampCandles("ALPHA", model.TF5m, 50, 100),
		rampCandles("NIFTY", model.TF5m, 50, 10000),
	)

	res, err := svc.RunOnce(ctx, model.TF5m)
	require.NoError(t, err)
	require.Zero(t, res.Rows)
	require.Equal(t, 1, res.Skipped)
}

func TestRunOnceShortHistorySkipped(t *testing.T) {
	svc, st, _ := newFixture(t, nil)
	ctx := context.Background()

	_, err := st.SeedWatchlist(ctx,
		[]model.WatchStock{{Symbol: "SHORTY", Active: true}},
		[]model.WatchIndex{{Symbol: "NIFTY", DataSymbol: "NIFTY", Active: true}},
		nil,
	)
	require.NoError(t, err)

	seedCandles(t, st,
		rampCandles("SHORTY", model.TF5m, 10, 100),
		rampCandles("NIFTY", model.TF5m, 50, 10000),
	)

	res, err := svc.RunOnce(ctx, model.TF5m)
	require.NoError(t, err)
	require.Zero(t, res.Rows)
	require.Equal(t, 1, res.Skipped)
}

func TestSweepPrefersIngestCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	svc, st, _ := newFixture(t, rdb)
	ctx := context.Background()

	// CACHED has candles only in Redis; the store never saw them.
	_, err := st.SeedWatchlist(ctx,
		[]model.WatchStock{{Symbol: "CACHED", Active: true}},
		[]model.WatchIndex{{Symbol: "NIFTY", DataSymbol: "NIFTY", Active: true}},
		nil,
	)
	require.NoError(t, err)
	seedCandles(t, st, rampCandles("NIFTY", model.TF5m, 50, 10000))

	series := model.NewSeries(rampCandles("CACHED", model.TF5m, 50, 100))
	raw, err := json.Marshal(&series)
	require.NoError(t, err)

	// Benchmarks load first, then stocks. Writes after these reads are
	// unscripted; the service logs and carries on.
	mock.ExpectGet(cache.CandlesKey("NIFTY", model.TF5m)).RedisNil()
	mock.ExpectGet(cache.CandlesKey("CACHED", model.TF5m)).SetVal(string(raw))

	res, err := svc.RunOnce(ctx, model.TF5m)
	require.NoError(t, err)
	require.Equal(t, 1, res.Rows)
	require.Zero(t, res.Skipped)

	_, rows, err := st.LatestSnapshot(ctx, model.TF5m)
	require.NoError(t, err)
	require.Equal(t, "CACHED", rows[0].Symbol)
}

func TestSymbolMetricsScoresDefaultAndMappedIndices(t *testing.T) {
	svc, st, _ := newFixture(t, nil)
	ctx := context.Background()

	_, err := st.SeedWatchlist(ctx,
		[]model.WatchStock{{Symbol: "TCS", Active: true}},
		[]model.WatchIndex{
			{Symbol: "NIFTY", DataSymbol: "NIFTY", Active: true},
			{Symbol: "IT", DataSymbol: "NIFTYIT", Active: true},
		},
		[]model.TickerIndex{{StockSymbol: "TCS", IndexSymbol: "IT"}},
	)
	require.NoError(t, err)

	seedCandles(t, st,
		rampCandles("TCS", model.TF5m, 50, 3500),
		rampCandles("NIFTY", model.TF5m, 50, 10000),
		rampCandles("NIFTYIT", model.TF5m, 50, 30000),
	)

	payload, err := svc.SymbolMetrics(ctx, " tcs ", model.TF5m, 0)
	require.NoError(t, err)
	require.NotNil(t, payload)
	require.Equal(t, "TCS", payload.Symbol)
	require.Equal(t, model.TF5m, payload.Timeframe)

	require.Len(t, payload.Rows, 2)
	require.Equal(t, "NIFTY", payload.Rows[0].Index, "default benchmark comes first")
	require.Equal(t, "IT", payload.Rows[1].Index)

	wantTS := sweepStart.Add(49 * 5 * time.Minute).Format(time.RFC3339)
	for _, row := range payload.Rows {
		require.Empty(t, row.Error)
		require.NotNil(t, row.RRS)
		require.NotNil(t, row.RRV)
		require.NotNil(t, row.RVE)
		require.NotEqual(t, model.SignalNoData, row.Signal)
		require.Equal(t, wantTS, row.UpdatedAt)
	}
}

func TestSymbolMetricsMissingBenchmarks(t *testing.T) {
	svc, st, _ := newFixture(t, nil)
	ctx := context.Background()

	_, err := st.SeedWatchlist(ctx,
		[]model.WatchStock{{Symbol: "ALPHA", Active: true}},
		nil,
		[]model.TickerIndex{{StockSymbol: "ALPHA", IndexSymbol: "GHOSTIDX"}},
	)
	require.NoError(t, err)
	seedCandles(t, st, rampCandles("ALPHA", model.TF5m, 50, 100))

	payload, err := svc.SymbolMetrics(ctx, "ALPHA", model.TF5m, 100)
	require.NoError(t, err)
	require.NotNil(t, payload)
	require.Len(t, payload.Rows, 2)

	for _, row := range payload.Rows {
		require.Equal(t, model.SignalNoData, row.Signal)
		require.Equal(t, "Missing candles", row.Error)
		require.Nil(t, row.RRS)
		require.Nil(t, row.RRV)
		require.Nil(t, row.RVE)
		require.Empty(t, row.UpdatedAt)
	}
}

func TestSymbolMetricsUnknownSymbolReturnsNil(t *testing.T) {
	svc, _, _ := newFixture(t, nil)

	payload, err := svc.SymbolMetrics(context.Background(), "ZZZ", model.TF5m, 50)
	require.NoError(t, err)
	require.Nil(t, payload)
}

func TestSymbolMetricsShortAlignmentRow(t *testing.T) {
	svc, st, _ := newFixture(t, nil)
	ctx := context.Background()

	_, err := st.SeedWatchlist(ctx,
		[]model.WatchStock{{Symbol: "TCS", Active: true}},
		[]model.WatchIndex{{Symbol: "NIFTY", DataSymbol: "NIFTY", Active: true}},
		nil,
	)
	require.NoError(t, err)

	seedCandles(t, st,
		rampCandles("TCS", model.TF5m, 50, 3500),
		rampCandles("NIFTY", model.TF5m, 10, 10000),
	)

	payload, err := svc.SymbolMetrics(ctx, "TCS", model.TF5m, 100)
	require.NoError(t, err)
	require.NotNil(t, payload)
	require.Len(t, payload.Rows, 1)
	require.Equal(t, "Insufficient aligned candles", payload.Rows[0].Error)
	require.Equal(t, model.SignalNoData, payload.Rows[0].Signal)
}

func TestSymbolMetricsServedFromCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	svc, _, _ := newFixture(t, rdb)

	rrs := 0.42
	cached := model.RelativePayload{
		Symbol:    "TCS",
		Timeframe: model.TF5m,
		Rows: []model.RelativeRow{
			{Index: "NIFTY", Timeframe: model.TF5m, RRS: &rrs, Signal: model.SignalWatch},
		},
	}
	raw, err := json.Marshal(&cached)
	require.NoError(t, err)
	mock.ExpectGet(cache.RelativeKey("TCS", model.TF5m, 200)).SetVal(string(raw))

	payload, err := svc.SymbolMetrics(context.Background(), "TCS", model.TF5m, 0)
	require.NoError(t, err)
	require.NotNil(t, payload)
	require.Equal(t, cached.Symbol, payload.Symbol)
	require.Len(t, payload.Rows, 1)
	require.Equal(t, "NIFTY", payload.Rows[0].Index)
	require.InDelta(t, rrs, *payload.Rows[0].RRS, 1e-12)
	require.NoError(t, mock.ExpectationsWereMet())
}
