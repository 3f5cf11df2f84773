// Package postgres implements the six store ports over a time-partitioned
// Postgres/TimescaleDB backend using sqlx and lib/pq, in the spirit of the
// teacher's direct sql.Exec/sql.Query calls (geth-17-indexer) but against a
// richer schema. Regular vs. time-partitioned table choices follow the
// storage-mapping rules: frequently-mutated entities (positions, scans,
// rounds, bets, stats, indexer state) live in plain tables; append-only
// entities (position history, deaths, block hashes) live in hypertables
// created by an external migration step this package does not own.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Store is the concrete backing for all six store ports. A single
// connection pool is shared across them, matching the teacher's one-`db`
// pattern in geth-17-indexer generalized to sqlx.
type Store struct {
	db  *sqlx.DB
	log *logrus.Entry
}

// Open connects to Postgres at dsn and returns a Store. Pool sizing is the
// caller's responsibility via dsn or subsequent SetMaxOpenConns calls —
// connection-string construction is a config concern (out of scope here).
func Open(ctx context.Context, dsn string, log *logrus.Entry) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// SetPoolLimits configures the underlying connection pool's size, sourced
// from config rather than hardcoded here.
func (s *Store) SetPoolLimits(maxOpen, maxIdle int) {
	s.db.SetMaxOpenConns(maxOpen)
	s.db.SetMaxIdleConns(maxIdle)
}

func isNoRows(err error) bool { return err == sql.ErrNoRows }
