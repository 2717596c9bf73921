package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"groww-scanner/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "REDIS_URL", "HTTP_ADDR", "INGEST_BARS",
		"SCHEDULER_TIMEFRAMES", "MARKET_TZ", "NIFTY_SYMBOL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, "data/scanner.db", cfg.DatabaseURL)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	require.Equal(t, ":8000", cfg.HTTPAddr)
	require.Equal(t, 220, cfg.IngestBars)
	require.Equal(t, "NIFTY", cfg.NiftySymbol)
	require.Equal(t, "Asia/Kolkata", cfg.MarketTZ)
	require.Equal(t, []model.Timeframe{model.TF5m, model.TF15m, model.TF1h, model.TF1d}, cfg.Timeframes())
	require.Equal(t, 45*time.Second, cfg.IngestInterval())
	require.Equal(t, 60*time.Second, cfg.ComputeInterval())
	require.False(t, cfg.AllowAfterHours)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://scanner:pw@db/scanner")
	t.Setenv("SCHEDULER_TIMEFRAMES", "5m, 2h ,15m")
	t.Setenv("SCHEDULER_INGEST_INTERVAL_SEC", "30")
	t.Setenv("MARKET_ALLOW_AFTER_HOURS", "true")
	t.Setenv("RATE_LIMIT_PER_SEC", "5")

	cfg := Load()
	require.Equal(t, "postgres://scanner:pw@db/scanner", cfg.DatabaseURL)
	require.Equal(t, []model.Timeframe{model.TF5m, model.TF15m}, cfg.Timeframes(), "invalid entries are dropped")
	require.Equal(t, 30*time.Second, cfg.IngestInterval())
	require.True(t, cfg.AllowAfterHours)
	require.Equal(t, 5, cfg.RatePerSec)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("INGEST_BARS", "many")
	t.Setenv("MARKET_ALLOW_AFTER_HOURS", "sometimes")

	cfg := Load()
	require.Equal(t, 220, cfg.IngestBars)
	require.False(t, cfg.AllowAfterHours)
}

func TestTimeframesNeverEmpty(t *testing.T) {
	t.Setenv("SCHEDULER_TIMEFRAMES", "2m,3m")
	cfg := Load()
	require.Equal(t, []model.Timeframe{model.TF5m}, cfg.Timeframes())
}

func TestMarketDayList(t *testing.T) {
	t.Setenv("MARKET_DAYS", " MON, TUE ,FRI ,")
	cfg := Load()
	require.Equal(t, []string{"MON", "TUE", "FRI"}, cfg.MarketDayList())
}

func TestLoadUniverseFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	raw := []byte(`
stocks:
  - symbol: RELIANCE
    name: Reliance Industries
  - symbol: TCS
indices:
  - symbol: NIFTY
    name: Nifty 50
  - symbol: IT
    data_symbol: NIFTYIT
mappings:
  - stock: TCS
    index: IT
`)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	u, err := LoadUniverse(path)
	require.NoError(t, err)

	stocks, indices, mappings := u.Watchlist()
	require.Len(t, stocks, 2)
	require.Equal(t, "Reliance Industries", stocks[0].Name)
	require.True(t, stocks[0].Active)

	require.Len(t, indices, 2)
	require.Equal(t, "NIFTY", indices[0].DataSymbol, "data symbol defaults to the index symbol")
	require.Equal(t, "NIFTYIT", indices[1].DataSymbol)

	require.Equal(t, []model.TickerIndex{{StockSymbol: "TCS", IndexSymbol: "IT"}}, mappings)
}

func TestLoadUniverseRejectsEmptySeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	_, err := LoadUniverse(path)
	require.Error(t, err)
}

func TestLoadUniverseMissingFile(t *testing.T) {
	_, err := LoadUniverse(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnsureBenchmarks(t *testing.T) {
	u := &Universe{
		Stocks:  []UniverseStock{{Symbol: "RELIANCE"}},
		Indices: []UniverseIndex{{Symbol: "NIFTY", Name: "Nifty 50"}},
	}

	u.EnsureBenchmarks("NIFTY", "BANKNIFTY", "")
	require.Len(t, u.Indices, 2, "missing benchmark appended, present one untouched, empty skipped")
	require.Equal(t, "BANKNIFTY", u.Indices[1].Symbol)

	u.EnsureBenchmarks("BANKNIFTY")
	require.Len(t, u.Indices, 2, "repeat calls must not duplicate")
}

func TestDefaultUniverse(t *testing.T) {
	u, err := LoadUniverse("")
	require.NoError(t, err)

	stocks, indices, mappings := u.Watchlist()
	require.Len(t, stocks, 53, "49 constituents plus 4 bank-only names, deduped")
	require.Len(t, indices, 13)

	symbols := make(map[string]int)
	for _, s := range stocks {
		symbols[s.Symbol]++
	}
	require.Equal(t, 1, symbols["RELIANCE"])
	require.Equal(t, 1, symbols["HDFCBANK"], "bank overlap must not duplicate")

	var bankMapped bool
	for _, m := range mappings {
		require.Equal(t, "BANKNIFTY", m.IndexSymbol)
		if m.StockSymbol == "HDFCBANK" {
			bankMapped = true
		}
	}
	require.True(t, bankMapped)
}
