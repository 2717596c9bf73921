package compute

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"groww-scanner/internal/cache"
	"groww-scanner/internal/model"
)

// Row error text shown to API callers for unscorable pairs.
var rowErrorText = map[string]string{
	reasonMissingCandles:   "Missing candles",
	reasonInsufficientBars: "Insufficient aligned candles",
	reasonNonFinite:        "Non-finite metrics",
}

// SymbolMetrics scores one symbol against its default and mapped
// benchmarks on demand. The payload is cached for a short TTL so
// repeated dashboard polls reuse one computation. A nil payload with a
// nil error means the symbol has no usable candles at all.
func (s *Service) SymbolMetrics(ctx context.Context, symbol string, tf model.Timeframe, bars int) (*model.RelativePayload, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, nil
	}
	if bars <= 0 {
		bars = s.cfg.Bars
	}

	key := cache.RelativeKey(symbol, tf, bars)
	var cached model.RelativePayload
	found, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		log.Printf("[compute] cache read for %s failed: %v", key, err)
	}
	if found {
		s.prom.CacheHits.WithLabelValues("relative").Inc()
		return &cached, nil
	}
	s.prom.CacheMisses.WithLabelValues("relative").Inc()

	indices, err := s.associatedIndices(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("compute: indices for %s: %w", symbol, err)
	}

	activeIndices, err := s.store.ActiveIndices(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute: active indices: %w", err)
	}
	dataSym := make(map[string]string, len(activeIndices))
	for _, ix := range activeIndices {
		dataSym[ix.Symbol] = ix.DataSymbol
	}
	resolve := func(index string) string {
		if ds, ok := dataSym[index]; ok {
			return ds
		}
		return index
	}

	wanted := []string{symbol}
	seen := map[string]bool{symbol: true}
	for _, idx := range indices {
		if ds := resolve(idx); !seen[ds] {
			seen[ds] = true
			wanted = append(wanted, ds)
		}
	}

	windows, err := s.loadWindows(ctx, wanted, tf, bars)
	if err != nil {
		return nil, fmt.Errorf("compute: windows for %s: %w", symbol, err)
	}

	symSeries, ok := windows[symbol]
	if !ok {
		return nil, nil
	}

	rows := make([]model.RelativeRow, 0, len(indices))
	for _, idx := range indices {
		row := model.RelativeRow{Index: idx, Timeframe: tf, Signal: model.SignalNoData}

		benSeries, ok := windows[resolve(idx)]
		if !ok {
			row.Error = rowErrorText[reasonMissingCandles]
			rows = append(rows, row)
			continue
		}

		m, reason := s.scorePair(symSeries, benSeries)
		if reason != "" {
			row.Error = rowErrorText[reason]
			rows = append(rows, row)
			continue
		}

		rrs, rrv, rve := m.rrs, m.rrv, m.rve
		row.RRS, row.RRV, row.RVE = &rrs, &rrv, &rve
		row.Signal = m.signal
		row.UpdatedAt = time.Unix(m.lastTS, 0).UTC().Format(time.RFC3339)
		rows = append(rows, row)
	}

	payload := model.RelativePayload{Symbol: symbol, Timeframe: tf, Rows: rows}
	if err := s.cache.SetJSON(ctx, key, &payload, cache.RelativeTTL); err != nil {
		log.Printf("[compute] cache write for %s failed: %v", key, err)
	}
	return &payload, nil
}

// associatedIndices lists the benchmarks for one stock: the default
// benchmark first, then the stock's mapped indices in sorted order.
func (s *Service) associatedIndices(ctx context.Context, symbol string) ([]string, error) {
	mappings, err := s.store.IndexMappings(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, 4)
	seen := make(map[string]bool, 4)
	if s.cfg.DefaultBenchmark != "" {
		out = append(out, s.cfg.DefaultBenchmark)
		seen[s.cfg.DefaultBenchmark] = true
	}

	var extra []string
	for _, m := range mappings {
		if m.StockSymbol == symbol && !seen[m.IndexSymbol] {
			seen[m.IndexSymbol] = true
			extra = append(extra, m.IndexSymbol)
		}
	}
	sort.Strings(extra)
	return append(out, extra...), nil
}
