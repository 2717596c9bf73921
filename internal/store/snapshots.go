package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"groww-scanner/internal/model"
)

const upsertSnapshotSQL = `
INSERT INTO scanner_snapshot (ts, timeframe, symbol, benchmark_symbol, rrs, rrv, rve, signal)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (ts, timeframe, symbol) DO UPDATE SET
	benchmark_symbol = excluded.benchmark_symbol,
	rrs = excluded.rrs,
	rrv = excluded.rrv,
	rve = excluded.rve,
	signal = excluded.signal`

// SaveSnapshot persists all rows of one scan in a single transaction so
// readers never observe a half-written snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, tf model.Timeframe, ts time.Time, rows []model.SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot tx: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, s.db.Rebind(upsertSnapshotSQL))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("snapshot prepare: %w", err)
	}
	defer stmt.Close()

	unix := ts.Unix()
	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			unix, string(tf), r.Symbol, r.BenchmarkSymbol,
			r.RRS, r.RRV, r.RVE, string(r.Signal))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("snapshot upsert %s: %w", r.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot commit: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for a timeframe in
// ranked order. A zero time and nil rows mean no snapshot exists yet.
func (s *Store) LatestSnapshot(ctx context.Context, tf model.Timeframe) (time.Time, []model.SnapshotRow, error) {
	var ts sql.NullInt64
	query := s.db.Rebind(`SELECT MAX(ts) FROM scanner_snapshot WHERE timeframe = ?`)
	if err := s.db.GetContext(ctx, &ts, query, string(tf)); err != nil {
		return time.Time{}, nil, fmt.Errorf("snapshot max ts: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil, nil
	}

	query = s.db.Rebind(`
		SELECT symbol, timeframe, benchmark_symbol, rrs, rrv, rve, signal
		FROM scanner_snapshot WHERE timeframe = ? AND ts = ?`)

	var rows []model.SnapshotRow
	if err := s.db.SelectContext(ctx, &rows, query, string(tf), ts.Int64); err != nil {
		return time.Time{}, nil, fmt.Errorf("snapshot select: %w", err)
	}

	model.SortSnapshotRows(rows)
	return time.Unix(ts.Int64, 0).UTC(), rows, nil
}
