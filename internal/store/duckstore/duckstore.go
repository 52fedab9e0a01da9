// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package duckstore is the embedded-SQL store backend. One DuckDB file
// holds every entity table; write paths are single transactions with
// replace-by-scope deletes, and the WAL is checkpointed on close so the
// next open never replays schema statements.
package duckstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
)

// BackendName identifies this backend in stats and metrics.
const BackendName = "duckdb"

const defaultTimeout = 30 * time.Second

// Store is the DuckDB-backed implementation of store.Store.
type Store struct {
	conn     *sql.DB
	path     string
	demoMode bool

	stmtCache   map[string]*sql.Stmt
	stmtCacheMu sync.RWMutex
}

// Open opens (creating if necessary) the database file under cfg.Dir
// and initializes the schema.
func Open(cfg config.StoreConfig, demoMode bool) (*Store, error) {
	const op = "duckstore.Open"

	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "create store directory", err)
	}

	threads := cfg.DuckDBThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	// Extension auto-install is disabled: nothing here needs one, and
	// probing the extension repository can hang on offline hosts.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.DuckDBPath(), threads, cfg.DuckDBMaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "open database", err)
	}

	s := &Store{
		conn:      conn,
		path:      cfg.DuckDBPath(),
		demoMode:  demoMode,
		stmtCache: make(map[string]*sql.Stmt),
	}

	s.conn.SetMaxOpenConns(runtime.NumCPU())
	s.conn.SetMaxIdleConns(2)
	s.conn.SetConnMaxLifetime(time.Hour)
	s.conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := s.initSchema(); err != nil {
		closeQuietly(conn)
		return nil, err
	}

	logging.Info().Str("path", s.path).Int("threads", threads).Msg("DuckDB store opened")
	return s, nil
}

// Close checkpoints the WAL and closes the connection along with every
// cached prepared statement.
func (s *Store) Close() error {
	s.stmtCacheMu.Lock()
	for _, stmt := range s.stmtCache {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close prepared statement")
			}
		}
	}
	s.stmtCache = make(map[string]*sql.Stmt)
	s.stmtCacheMu.Unlock()

	if s.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	if err := s.checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint before close")
	}
	cancel()

	return s.conn.Close()
}

// checkpoint flushes the WAL into the database file.
func (s *Store) checkpoint(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, "CHECKPOINT")
	return err
}

// stmt returns a cached prepared statement for query, preparing it on
// first use.
func (s *Store) stmt(ctx context.Context, query string) (*sql.Stmt, error) {
	s.stmtCacheMu.RLock()
	cached, ok := s.stmtCache[query]
	s.stmtCacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	s.stmtCacheMu.Lock()
	defer s.stmtCacheMu.Unlock()
	if cached, ok := s.stmtCache[query]; ok {
		return cached, nil
	}

	prepared, err := s.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	s.stmtCache[query] = prepared
	return prepared, nil
}

// ensureContext caps unbounded contexts at the default store timeout.
func (s *Store) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultTimeout)
	}
	return ctx, func() {}
}

// begin starts a write transaction. The returned finish func commits on
// nil error and rolls back otherwise; call it with the named return.
func (s *Store) begin(ctx context.Context, op string) (*sql.Tx, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "begin transaction", err)
	}
	return tx, nil
}

func rollbackOnErr(tx *sql.Tx, err error) {
	if err == nil {
		return
	}
	if rbErr := tx.Rollback(); rbErr != nil {
		logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
	}
}

func commit(tx *sql.Tx, op string) error {
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Storage, op, "commit transaction", err)
	}
	return nil
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Debug().Err(err).Msg("Failed to close database connection")
	}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Debug().Err(err).Msg("Failed to close result rows")
	}
}
