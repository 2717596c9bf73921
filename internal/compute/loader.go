package compute

import (
	"context"
	"fmt"
	"log"

	"groww-scanner/internal/cache"
	"groww-scanner/internal/model"
)

// sweepLoader memoizes series loads within one sweep so a benchmark
// shared by many stocks hits the cache or store only once.
type sweepLoader struct {
	svc  *Service
	tf   model.Timeframe
	memo map[string]*model.Series
}

func (s *Service) newSweepLoader(tf model.Timeframe) *sweepLoader {
	return &sweepLoader{svc: s, tf: tf, memo: make(map[string]*model.Series)}
}

func (l *sweepLoader) load(ctx context.Context, symbol string) (model.Series, bool, error) {
	if cached, hit := l.memo[symbol]; hit {
		if cached == nil {
			return model.Series{}, false, nil
		}
		return *cached, true, nil
	}
	series, ok, err := l.svc.loadSeries(ctx, symbol, l.tf)
	if err != nil {
		return model.Series{}, false, err
	}
	if !ok {
		l.memo[symbol] = nil
		return model.Series{}, false, nil
	}
	l.memo[symbol] = &series
	return series, true, nil
}

// loadSeries returns the candle series for one data symbol, serving the
// ingest-written candles:{sym}:{tf} cache entry first and falling back
// to the store. ok=false means neither source has bars; an error means
// the store itself failed and the sweep should abort.
func (s *Service) loadSeries(ctx context.Context, symbol string, tf model.Timeframe) (model.Series, bool, error) {
	var series model.Series
	found, err := s.cache.GetJSON(ctx, cache.CandlesKey(symbol, tf), &series)
	if err != nil {
		log.Printf("[compute] cache read for %s failed: %v", symbol, err)
	}
	if found && series.Len() > 0 {
		s.prom.CacheHits.WithLabelValues("candles").Inc()
		return series, true, nil
	}
	s.prom.CacheMisses.WithLabelValues("candles").Inc()

	candles, err := s.store.LatestCandles(ctx, symbol, tf, s.cfg.Bars)
	if err != nil {
		return model.Series{}, false, fmt.Errorf("latest candles for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return model.Series{}, false, nil
	}
	return model.NewSeries(candles), true, nil
}

// loadWindows fetches fixed-size candle windows for several symbols,
// serving each from candles:{sym}:{tf}:{n} when fresh and back-filling
// the cache from one batched store query for the misses.
func (s *Service) loadWindows(ctx context.Context, symbols []string, tf model.Timeframe, n int) (map[string]model.Series, error) {
	out := make(map[string]model.Series, len(symbols))
	var missing []string

	for _, sym := range symbols {
		var series model.Series
		found, err := s.cache.GetJSON(ctx, cache.CandlesWindowKey(sym, tf, n), &series)
		if err != nil {
			log.Printf("[compute] cache read for %s failed: %v", sym, err)
		}
		if found && series.Len() > 0 {
			s.prom.CacheHits.WithLabelValues("candles_window").Inc()
			out[sym] = series
			continue
		}
		s.prom.CacheMisses.WithLabelValues("candles_window").Inc()
		missing = append(missing, sym)
	}

	if len(missing) > 0 {
		batch, err := s.store.LatestCandlesBatch(ctx, missing, tf, n)
		if err != nil {
			return nil, fmt.Errorf("candle batch: %w", err)
		}
		for sym, candles := range batch {
			if len(candles) == 0 {
				continue
			}
			series := model.NewSeries(candles)
			out[sym] = series
			if err := s.cache.SetJSON(ctx, cache.CandlesWindowKey(sym, tf, n), &series, cache.CandlesWindowTTL); err != nil {
				log.Printf("[compute] cache write for %s failed: %v", sym, err)
			}
		}
	}
	return out, nil
}
