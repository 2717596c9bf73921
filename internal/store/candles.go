package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"groww-scanner/internal/model"

	"github.com/jmoiron/sqlx"
)

type candleRow struct {
	Symbol    string  `db:"symbol"`
	Timeframe string  `db:"timeframe"`
	TS        int64   `db:"ts"`
	Open      float64 `db:"open"`
	High      float64 `db:"high"`
	Low       float64 `db:"low"`
	Close     float64 `db:"close"`
	Volume    float64 `db:"volume"`
	Source    string  `db:"source"`
}

func (r candleRow) toModel() model.Candle {
	return model.Candle{
		Symbol:    r.Symbol,
		Timeframe: model.Timeframe(r.Timeframe),
		TS:        time.Unix(r.TS, 0).UTC(),
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		Volume:    r.Volume,
		Source:    r.Source,
	}
}

const upsertCandleSQL = `
INSERT INTO candles (symbol, timeframe, ts, open, high, low, close, volume, source)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (symbol, timeframe, ts) DO UPDATE SET
	open = excluded.open,
	high = excluded.high,
	low = excluded.low,
	close = excluded.close,
	volume = excluded.volume,
	source = excluded.source`

const selectCandleCols = `SELECT symbol, timeframe, ts, open, high, low, close, volume, source FROM candles`

// UpsertCandles writes a batch in a single transaction. Re-fetched bars
// overwrite what is stored, so late volume corrections settle in place.
// Returns the number of rows written.
func (s *Store) UpsertCandles(ctx context.Context, candles []model.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("candles tx: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, s.db.Rebind(upsertCandleSQL))
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("candles prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx,
			c.Symbol, string(c.Timeframe), c.TS.Unix(),
			c.Open, c.High, c.Low, c.Close, c.Volume, c.Source)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("candles upsert %s: %w", c.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("candles commit: %w", err)
	}
	return len(candles), nil
}

// LatestCandles returns up to n most recent bars for one symbol in
// ascending timestamp order.
func (s *Store) LatestCandles(ctx context.Context, symbol string, tf model.Timeframe, n int) ([]model.Candle, error) {
	query := s.db.Rebind(selectCandleCols + ` WHERE symbol = ? AND timeframe = ? ORDER BY ts DESC LIMIT ?`)

	var rows []candleRow
	if err := s.db.SelectContext(ctx, &rows, query, symbol, string(tf), n); err != nil {
		return nil, fmt.Errorf("candles select %s %s: %w", symbol, tf, err)
	}

	out := make([]model.Candle, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.toModel()
	}
	return out, nil
}

// LatestCandlesBatch returns up to n most recent bars per symbol, each
// slice ascending. Symbols with no stored bars are absent from the map.
func (s *Store) LatestCandlesBatch(ctx context.Context, symbols []string, tf model.Timeframe, n int) (map[string][]model.Candle, error) {
	out := make(map[string][]model.Candle, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(
		selectCandleCols+` WHERE timeframe = ? AND symbol IN (?) ORDER BY symbol, ts DESC`,
		string(tf), symbols)
	if err != nil {
		return nil, fmt.Errorf("candles batch query: %w", err)
	}

	var rows []candleRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("candles batch select: %w", err)
	}

	// Rows arrive newest-first per symbol; keep the first n and flip.
	for _, r := range rows {
		if len(out[r.Symbol]) >= n {
			continue
		}
		out[r.Symbol] = append(out[r.Symbol], r.toModel())
	}
	for sym, candles := range out {
		for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
			candles[i], candles[j] = candles[j], candles[i]
		}
		out[sym] = candles
	}
	return out, nil
}

// LastCandleTS returns the newest stored bar timestamp for a symbol, or
// 0 when none exist.
func (s *Store) LastCandleTS(ctx context.Context, symbol string, tf model.Timeframe) (int64, error) {
	var ts sql.NullInt64
	query := s.db.Rebind(`SELECT MAX(ts) FROM candles WHERE symbol = ? AND timeframe = ?`)
	if err := s.db.GetContext(ctx, &ts, query, symbol, string(tf)); err != nil {
		return 0, fmt.Errorf("candles last ts: %w", err)
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}
