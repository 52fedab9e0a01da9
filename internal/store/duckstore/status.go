// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package duckstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// SetSyncStatus upserts one table's sync bookkeeping row.
func (s *Store) SetSyncStatus(ctx context.Context, status models.SyncStatus) (err error) {
	const op = "duckstore.SetSyncStatus"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "sync_status", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `INSERT INTO sync_status (table_name, last_sync_at, needs_sync)
	VALUES (?, ?, ?)
	ON CONFLICT (table_name) DO UPDATE SET
		last_sync_at = EXCLUDED.last_sync_at,
		needs_sync = EXCLUDED.needs_sync`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare upsert", err)
	}

	if _, err = stmt.ExecContext(ctx, status.TableName, status.LastSyncAt.UTC(), status.NeedsSync); err != nil {
		return errs.Wrap(errs.Storage, op, "upsert status", err)
	}
	return nil
}

// GetSyncStatus returns one table's sync bookkeeping row, errs.NotFound
// before the first sync touches the table.
func (s *Store) GetSyncStatus(ctx context.Context, tableName string) (status *models.SyncStatus, err error) {
	const op = "duckstore.GetSyncStatus"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "sync_status", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `SELECT table_name, last_sync_at, needs_sync FROM sync_status WHERE table_name = ?`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	var st models.SyncStatus
	scanErr := stmt.QueryRowContext(ctx, tableName).Scan(&st.TableName, &st.LastSyncAt, &st.NeedsSync)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, op, "no sync status for "+tableName)
	}
	if scanErr != nil {
		return nil, errs.Wrap(errs.Storage, op, "scan status", scanErr)
	}
	return &st, nil
}

// SetPageCache upserts one cached page payload. Demo-keyed entries are
// dropped outside demo mode so fixtures never shadow real pages.
func (s *Store) SetPageCache(ctx context.Context, entry models.PageCacheEntry) (err error) {
	const op = "duckstore.SetPageCache"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "page_cache", time.Since(start), err) }()

	if !s.demoMode && models.IsDemoKey(entry.CacheKey) {
		return nil
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `INSERT INTO page_cache (cache_key, payload, cached_at)
	VALUES (?, ?, ?)
	ON CONFLICT (cache_key) DO UPDATE SET
		payload = EXCLUDED.payload,
		cached_at = EXCLUDED.cached_at`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare upsert", err)
	}

	if _, err = stmt.ExecContext(ctx, entry.CacheKey, string(entry.Payload), entry.CachedAt.UTC()); err != nil {
		return errs.Wrap(errs.Storage, op, "upsert entry", err)
	}
	return nil
}

// GetPageCache returns one cached page payload, errs.NotFound when the
// key has never been cached.
func (s *Store) GetPageCache(ctx context.Context, cacheKey string) (entry *models.PageCacheEntry, err error) {
	const op = "duckstore.GetPageCache"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "page_cache", time.Since(start), err) }()

	if !s.demoMode && models.IsDemoKey(cacheKey) {
		return nil, errs.New(errs.NotFound, op, "page cache key "+cacheKey+" not stored")
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `SELECT cache_key, payload, cached_at FROM page_cache WHERE cache_key = ?`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	var e models.PageCacheEntry
	var payload string
	scanErr := stmt.QueryRowContext(ctx, cacheKey).Scan(&e.CacheKey, &payload, &e.CachedAt)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, op, "page cache key "+cacheKey+" not stored")
	}
	if scanErr != nil {
		return nil, errs.Wrap(errs.Storage, op, "scan entry", scanErr)
	}
	e.Payload = []byte(payload)
	return &e, nil
}

// DeletePageCache removes one cached page. Deleting an absent key is
// not an error.
func (s *Store) DeletePageCache(ctx context.Context, cacheKey string) (err error) {
	const op = "duckstore.DeletePageCache"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete", "page_cache", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `DELETE FROM page_cache WHERE cache_key = ?`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare delete", err)
	}

	if _, err = stmt.ExecContext(ctx, cacheKey); err != nil {
		return errs.Wrap(errs.Storage, op, "delete entry", err)
	}
	return nil
}
