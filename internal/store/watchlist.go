package store

import (
	"context"
	"fmt"

	"groww-scanner/internal/model"
)

// ActiveStocks returns active watchlist stocks ordered by symbol.
func (s *Store) ActiveStocks(ctx context.Context) ([]model.WatchStock, error) {
	query := s.db.Rebind(`SELECT id, symbol, name, active FROM watch_stocks WHERE active = ? ORDER BY symbol`)

	var stocks []model.WatchStock
	if err := s.db.SelectContext(ctx, &stocks, query, true); err != nil {
		return nil, fmt.Errorf("watch stocks select: %w", err)
	}
	return stocks, nil
}

// ActiveIndices returns active watchlist indices ordered by symbol.
// DataSymbol falls back to Symbol when unset.
func (s *Store) ActiveIndices(ctx context.Context) ([]model.WatchIndex, error) {
	query := s.db.Rebind(`SELECT id, symbol, name, data_symbol, active FROM watch_indices WHERE active = ? ORDER BY symbol`)

	var indices []model.WatchIndex
	if err := s.db.SelectContext(ctx, &indices, query, true); err != nil {
		return nil, fmt.Errorf("watch indices select: %w", err)
	}
	for i := range indices {
		if indices[i].DataSymbol == "" {
			indices[i].DataSymbol = indices[i].Symbol
		}
	}
	return indices, nil
}

// IndexMappings returns all stock-to-index associations.
func (s *Store) IndexMappings(ctx context.Context) ([]model.TickerIndex, error) {
	var mappings []model.TickerIndex
	err := s.db.SelectContext(ctx, &mappings,
		`SELECT stock_symbol, index_symbol FROM ticker_index ORDER BY stock_symbol, index_symbol`)
	if err != nil {
		return nil, fmt.Errorf("ticker index select: %w", err)
	}
	return mappings, nil
}

// SeedWatchlist inserts any missing watchlist rows without touching
// existing ones, so operator edits survive restarts. Returns how many
// rows were newly inserted.
func (s *Store) SeedWatchlist(ctx context.Context, stocks []model.WatchStock, indices []model.WatchIndex, mappings []model.TickerIndex) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed tx: %w", err)
	}

	inserted := 0
	count := func(res interface{ RowsAffected() (int64, error) }) {
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	stockSQL := s.db.Rebind(`INSERT INTO watch_stocks (symbol, name, active) VALUES (?, ?, ?) ON CONFLICT (symbol) DO NOTHING`)
	for _, st := range stocks {
		res, err := tx.ExecContext(ctx, stockSQL, st.Symbol, st.Name, st.Active)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("seed stock %s: %w", st.Symbol, err)
		}
		count(res)
	}

	indexSQL := s.db.Rebind(`INSERT INTO watch_indices (symbol, name, data_symbol, active) VALUES (?, ?, ?, ?) ON CONFLICT (symbol) DO NOTHING`)
	for _, ix := range indices {
		res, err := tx.ExecContext(ctx, indexSQL, ix.Symbol, ix.Name, ix.DataSymbol, ix.Active)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("seed index %s: %w", ix.Symbol, err)
		}
		count(res)
	}

	mappingSQL := s.db.Rebind(`INSERT INTO ticker_index (stock_symbol, index_symbol) VALUES (?, ?) ON CONFLICT (stock_symbol, index_symbol) DO NOTHING`)
	for _, m := range mappings {
		res, err := tx.ExecContext(ctx, mappingSQL, m.StockSymbol, m.IndexSymbol)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("seed mapping %s->%s: %w", m.StockSymbol, m.IndexSymbol, err)
		}
		count(res)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed commit: %w", err)
	}
	return inserted, nil
}
