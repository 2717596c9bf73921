package store

// Candle timestamps are stored as unix seconds so the layout is
// identical across drivers.

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS candles (
	symbol    TEXT    NOT NULL,
	timeframe TEXT    NOT NULL,
	ts        INTEGER NOT NULL,
	open      REAL    NOT NULL,
	high      REAL    NOT NULL,
	low       REAL    NOT NULL,
	close     REAL    NOT NULL,
	volume    REAL    NOT NULL DEFAULT 0,
	source    TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (symbol, timeframe, ts)
);

CREATE TABLE IF NOT EXISTS scanner_snapshot (
	ts               INTEGER NOT NULL,
	timeframe        TEXT    NOT NULL,
	symbol           TEXT    NOT NULL,
	benchmark_symbol TEXT    NOT NULL DEFAULT '',
	rrs              REAL    NOT NULL DEFAULT 0,
	rrv              REAL    NOT NULL DEFAULT 0,
	rve              REAL    NOT NULL DEFAULT 0,
	signal           TEXT    NOT NULL,
	PRIMARY KEY (ts, timeframe, symbol)
);

CREATE TABLE IF NOT EXISTS benchmark_state (
	ts            INTEGER NOT NULL,
	timeframe     TEXT    NOT NULL,
	benchmark     TEXT    NOT NULL,
	regime        TEXT    NOT NULL,
	trend         REAL    NOT NULL DEFAULT 0,
	vol_expansion REAL    NOT NULL DEFAULT 0,
	participation REAL    NOT NULL DEFAULT 0,
	PRIMARY KEY (ts, timeframe, benchmark)
);

CREATE TABLE IF NOT EXISTS watch_stocks (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT    NOT NULL UNIQUE,
	name   TEXT    NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS watch_indices (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT    NOT NULL UNIQUE,
	name        TEXT    NOT NULL DEFAULT '',
	data_symbol TEXT    NOT NULL DEFAULT '',
	active      BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS ticker_index (
	stock_symbol TEXT NOT NULL,
	index_symbol TEXT NOT NULL,
	PRIMARY KEY (stock_symbol, index_symbol)
);

CREATE INDEX IF NOT EXISTS idx_candles_lookup ON candles (symbol, timeframe, ts DESC);
CREATE INDEX IF NOT EXISTS idx_snapshot_lookup ON scanner_snapshot (timeframe, ts DESC);
CREATE INDEX IF NOT EXISTS idx_benchmark_lookup ON benchmark_state (timeframe, ts DESC);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS candles (
	symbol    TEXT             NOT NULL,
	timeframe TEXT             NOT NULL,
	ts        BIGINT           NOT NULL,
	open      DOUBLE PRECISION NOT NULL,
	high      DOUBLE PRECISION NOT NULL,
	low       DOUBLE PRECISION NOT NULL,
	close     DOUBLE PRECISION NOT NULL,
	volume    DOUBLE PRECISION NOT NULL DEFAULT 0,
	source    TEXT             NOT NULL DEFAULT '',
	PRIMARY KEY (symbol, timeframe, ts)
);

CREATE TABLE IF NOT EXISTS scanner_snapshot (
	ts               BIGINT           NOT NULL,
	timeframe        TEXT             NOT NULL,
	symbol           TEXT             NOT NULL,
	benchmark_symbol TEXT             NOT NULL DEFAULT '',
	rrs              DOUBLE PRECISION NOT NULL DEFAULT 0,
	rrv              DOUBLE PRECISION NOT NULL DEFAULT 0,
	rve              DOUBLE PRECISION NOT NULL DEFAULT 0,
	signal           TEXT             NOT NULL,
	PRIMARY KEY (ts, timeframe, symbol)
);

CREATE TABLE IF NOT EXISTS benchmark_state (
	ts            BIGINT           NOT NULL,
	timeframe     TEXT             NOT NULL,
	benchmark     TEXT             NOT NULL,
	regime        TEXT             NOT NULL,
	trend         DOUBLE PRECISION NOT NULL DEFAULT 0,
	vol_expansion DOUBLE PRECISION NOT NULL DEFAULT 0,
	participation DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (ts, timeframe, benchmark)
);

CREATE TABLE IF NOT EXISTS watch_stocks (
	id     SERIAL PRIMARY KEY,
	symbol TEXT    NOT NULL UNIQUE,
	name   TEXT    NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS watch_indices (
	id          SERIAL PRIMARY KEY,
	symbol      TEXT    NOT NULL UNIQUE,
	name        TEXT    NOT NULL DEFAULT '',
	data_symbol TEXT    NOT NULL DEFAULT '',
	active      BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS ticker_index (
	stock_symbol TEXT NOT NULL,
	index_symbol TEXT NOT NULL,
	PRIMARY KEY (stock_symbol, index_symbol)
);

CREATE INDEX IF NOT EXISTS idx_candles_lookup ON candles (symbol, timeframe, ts DESC);
CREATE INDEX IF NOT EXISTS idx_snapshot_lookup ON scanner_snapshot (timeframe, ts DESC);
CREATE INDEX IF NOT EXISTS idx_benchmark_lookup ON benchmark_state (timeframe, ts DESC);
`

func (s *Store) ensureSchema() error {
	schema := schemaSQLite
	if s.driver == "postgres" {
		schema = schemaPostgres
	}
	_, err := s.db.Exec(schema)
	return err
}
