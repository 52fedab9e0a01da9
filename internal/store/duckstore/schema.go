// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package duckstore

import (
	"context"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
)

// Opaque upstream maps (contact groups, custom data, flexi columns) are
// stored as JSON text; ISO dates are stored as text so lexical order is
// chronological order and upstream values round-trip unchanged.
var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS sections (
		section_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		section_type TEXT,
		version BIGINT NOT NULL,
		local_version BIGINT NOT NULL,
		last_sync_version BIGINT NOT NULL,
		is_locally_modified BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMP,
		last_synced_at TIMESTAMP,
		conflict_resolution_needed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS terms (
		term_id TEXT PRIMARY KEY,
		section_id INTEGER NOT NULL,
		name TEXT,
		start_date TEXT,
		end_date TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		event_id TEXT PRIMARY KEY,
		section_id INTEGER NOT NULL,
		term_id TEXT,
		name TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		start_time TEXT,
		end_time TEXT,
		location TEXT,
		notes TEXT,
		version BIGINT NOT NULL,
		local_version BIGINT NOT NULL,
		last_sync_version BIGINT NOT NULL,
		is_locally_modified BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMP,
		last_synced_at TIMESTAMP,
		conflict_resolution_needed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		event_id TEXT NOT NULL,
		scout_id INTEGER NOT NULL,
		section_id INTEGER,
		first_name TEXT,
		last_name TEXT,
		attending TEXT,
		patrol TEXT,
		notes TEXT,
		is_shared_section BOOLEAN NOT NULL DEFAULT FALSE,
		version BIGINT NOT NULL,
		local_version BIGINT NOT NULL,
		last_sync_version BIGINT NOT NULL,
		is_locally_modified BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMP,
		last_synced_at TIMESTAMP,
		conflict_resolution_needed BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (event_id, scout_id, is_shared_section)
	)`,
	`CREATE TABLE IF NOT EXISTS shared_event_metadata (
		event_id TEXT PRIMARY KEY,
		is_shared BOOLEAN NOT NULL,
		owner_section_id INTEGER,
		section_ids TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		scout_id INTEGER PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		date_of_birth TEXT,
		age TEXT,
		photo_guid TEXT,
		contact_groups TEXT,
		custom_data TEXT,
		flattened_fields TEXT,
		read_only TEXT,
		version BIGINT NOT NULL,
		local_version BIGINT NOT NULL,
		last_sync_version BIGINT NOT NULL,
		is_locally_modified BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMP,
		last_synced_at TIMESTAMP,
		conflict_resolution_needed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS member_sections (
		scout_id INTEGER NOT NULL,
		section_id INTEGER NOT NULL,
		person_type TEXT,
		patrol TEXT,
		patrol_role TEXT,
		started_at TEXT,
		joined_at TEXT,
		ended_at TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (scout_id, section_id)
	)`,
	`CREATE TABLE IF NOT EXISTS flexi_lists (
		section_id INTEGER NOT NULL,
		extra_id TEXT NOT NULL,
		name TEXT,
		PRIMARY KEY (section_id, extra_id)
	)`,
	`CREATE TABLE IF NOT EXISTS flexi_structures (
		extra_id TEXT PRIMARY KEY,
		name TEXT,
		config TEXT,
		fields TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS flexi_data (
		extra_id TEXT NOT NULL,
		section_id INTEGER NOT NULL,
		term_id TEXT NOT NULL,
		scout_id INTEGER NOT NULL,
		first_name TEXT,
		last_name TEXT,
		fields TEXT,
		PRIMARY KEY (extra_id, section_id, term_id, scout_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_status (
		table_name TEXT PRIMARY KEY,
		last_sync_at TIMESTAMP,
		needs_sync BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS page_cache (
		cache_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		cached_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var createIndexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_terms_section ON terms (section_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_section ON events (section_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_term ON events (term_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_start_date ON events (start_date)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_scout ON attendance (scout_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_section ON attendance (section_id)`,
	`CREATE INDEX IF NOT EXISTS idx_member_sections_section ON member_sections (section_id)`,
	`CREATE INDEX IF NOT EXISTS idx_flexi_data_scout ON flexi_data (scout_id)`,
}

// migration is a versioned, append-only schema change applied exactly
// once per database file.
type migration struct {
	version int
	name    string
	sql     string
}

// migrations is empty while the schema fits in the initial CREATE TABLE
// batch; post-release changes append here starting from version 1.
var migrations = []migration{}

func (s *Store) initSchema() error {
	const op = "duckstore.initSchema"

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	for _, stmt := range createTableStatements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return errs.Wrap(errs.Storage, op, "create tables", err)
		}
	}

	if err := s.runMigrations(ctx); err != nil {
		return err
	}

	for _, stmt := range createIndexStatements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return errs.Wrap(errs.Storage, op, "create indexes", err)
		}
	}

	// Flush schema statements out of the WAL so the next open starts
	// from a clean file.
	if err := s.checkpoint(ctx); err != nil {
		return errs.Wrap(errs.Storage, op, "checkpoint after schema init", err)
	}
	return nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	const op = "duckstore.runMigrations"

	applied := make(map[int]bool)
	rows, err := s.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "query applied migrations", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			closeRows(rows)
			return errs.Wrap(errs.Storage, op, "scan migration version", err)
		}
		applied[v] = true
	}
	closeRows(rows)
	if err := rows.Err(); err != nil {
		return errs.Wrap(errs.Storage, op, "iterate migrations", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if _, err := s.conn.ExecContext(ctx, m.sql); err != nil {
			return errs.Wrap(errs.Storage, op, "apply migration "+m.name, err)
		}
		if _, err := s.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			m.version, m.name, time.Now().UTC()); err != nil {
			return errs.Wrap(errs.Storage, op, "record migration "+m.name, err)
		}
	}
	return nil
}
