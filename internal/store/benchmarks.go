package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"groww-scanner/internal/model"
)

const upsertBenchmarkSQL = `
INSERT INTO benchmark_state (ts, timeframe, benchmark, regime, trend, vol_expansion, participation)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (ts, timeframe, benchmark) DO UPDATE SET
	regime = excluded.regime,
	trend = excluded.trend,
	vol_expansion = excluded.vol_expansion,
	participation = excluded.participation`

// SaveBenchmarkStates persists the regime rows of one scan in a single
// transaction.
func (s *Store) SaveBenchmarkStates(ctx context.Context, tf model.Timeframe, ts time.Time, states []model.BenchmarkState) error {
	if len(states) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("benchmark tx: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, s.db.Rebind(upsertBenchmarkSQL))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("benchmark prepare: %w", err)
	}
	defer stmt.Close()

	unix := ts.Unix()
	for _, st := range states {
		_, err := stmt.ExecContext(ctx,
			unix, string(tf), st.Benchmark, string(st.Regime),
			st.Trend, st.VolExpansion, st.Participation)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("benchmark upsert %s: %w", st.Benchmark, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("benchmark commit: %w", err)
	}
	return nil
}

// LatestBenchmarkStates returns the most recent regime rows for a
// timeframe ordered by benchmark symbol.
func (s *Store) LatestBenchmarkStates(ctx context.Context, tf model.Timeframe) (time.Time, []model.BenchmarkState, error) {
	var ts sql.NullInt64
	query := s.db.Rebind(`SELECT MAX(ts) FROM benchmark_state WHERE timeframe = ?`)
	if err := s.db.GetContext(ctx, &ts, query, string(tf)); err != nil {
		return time.Time{}, nil, fmt.Errorf("benchmark max ts: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil, nil
	}

	query = s.db.Rebind(`
		SELECT benchmark, timeframe, regime, trend, vol_expansion, participation
		FROM benchmark_state WHERE timeframe = ? AND ts = ? ORDER BY benchmark`)

	var states []model.BenchmarkState
	if err := s.db.SelectContext(ctx, &states, query, string(tf), ts.Int64); err != nil {
		return time.Time{}, nil, fmt.Errorf("benchmark select: %w", err)
	}

	at := time.Unix(ts.Int64, 0).UTC()
	for i := range states {
		states[i].TS = at
	}
	return at, states, nil
}
