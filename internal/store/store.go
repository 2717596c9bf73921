// Package store persists candles, scanner snapshots, benchmark states,
// and the watchlist. It runs on Postgres in production and on SQLite for
// local use and tests; all SQL is written with ? placeholders and
// rebound per driver.
package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the database handle and driver-specific schema handling.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database named by databaseURL, pings it, and
// applies the schema. postgres:// URLs use the Postgres driver; anything
// else is treated as a SQLite path.
func Open(databaseURL string) (*Store, error) {
	driver, dsn := resolveDSN(databaseURL)

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store open (%s): %w", driver, err)
	}
	if driver == "sqlite3" {
		// Single writer; avoids SQLITE_BUSY under concurrent sweeps.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store ping (%s): %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store schema: %w", err)
	}

	log.Printf("[store] opened %s database", driver)
	return s, nil
}

func resolveDSN(databaseURL string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		return "postgres", databaseURL
	case strings.HasPrefix(databaseURL, "sqlite://"):
		databaseURL = strings.TrimPrefix(databaseURL, "sqlite://")
	}
	if strings.Contains(databaseURL, "?") {
		return "sqlite3", databaseURL
	}
	return "sqlite3", databaseURL + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

// DB returns the underlying handle for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

// Driver reports which SQL driver is in use ("postgres" or "sqlite3").
func (s *Store) Driver() string { return s.driver }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
