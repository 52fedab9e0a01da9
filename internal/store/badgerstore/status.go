// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package badgerstore

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// SetSyncStatus upserts one table's sync bookkeeping row.
func (s *Store) SetSyncStatus(ctx context.Context, status models.SyncStatus) (err error) {
	const op = "badgerstore.SetSyncStatus"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "sync_status", time.Since(start), err) }()

	status.LastSyncAt = status.LastSyncAt.UTC()
	err = s.db.Update(func(txn *badger.Txn) error {
		return writeDoc(op, txn, s.key(syncStatusKey(status.TableName)), status)
	})
	return err
}

// GetSyncStatus returns one table's sync bookkeeping row, errs.NotFound
// before the first sync touches the table.
func (s *Store) GetSyncStatus(ctx context.Context, tableName string) (status *models.SyncStatus, err error) {
	const op = "badgerstore.GetSyncStatus"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "sync_status", time.Since(start), err) }()

	var st models.SyncStatus
	var found bool
	err = s.db.View(func(txn *badger.Txn) error {
		ok, err := readDoc(op, txn, s.key(syncStatusKey(tableName)), &st)
		found = ok
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errs.New(errs.NotFound, op, "no sync status for "+tableName)
	}
	return &st, nil
}

// SetPageCache upserts one cached page payload. Demo-keyed entries are
// dropped outside demo mode so fixtures never shadow real pages.
func (s *Store) SetPageCache(ctx context.Context, entry models.PageCacheEntry) (err error) {
	const op = "badgerstore.SetPageCache"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "page_cache", time.Since(start), err) }()

	if !s.demoMode && models.IsDemoKey(entry.CacheKey) {
		return nil
	}

	entry.CachedAt = entry.CachedAt.UTC()
	err = s.db.Update(func(txn *badger.Txn) error {
		return writeDoc(op, txn, s.key(pageCacheKey(entry.CacheKey)), entry)
	})
	return err
}

// GetPageCache returns one cached page payload, errs.NotFound when the
// key has never been cached.
func (s *Store) GetPageCache(ctx context.Context, cacheKey string) (entry *models.PageCacheEntry, err error) {
	const op = "badgerstore.GetPageCache"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "page_cache", time.Since(start), err) }()

	if !s.demoMode && models.IsDemoKey(cacheKey) {
		return nil, errs.New(errs.NotFound, op, "page cache key "+cacheKey+" not stored")
	}

	var e models.PageCacheEntry
	var found bool
	err = s.db.View(func(txn *badger.Txn) error {
		ok, err := readDoc(op, txn, s.key(pageCacheKey(cacheKey)), &e)
		found = ok
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errs.New(errs.NotFound, op, "page cache key "+cacheKey+" not stored")
	}
	return &e, nil
}

// DeletePageCache removes one cached page. Deleting an absent key is
// not an error.
func (s *Store) DeletePageCache(ctx context.Context, cacheKey string) (err error) {
	const op = "badgerstore.DeletePageCache"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete", "page_cache", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(s.key(pageCacheKey(cacheKey))); err != nil && err != badger.ErrKeyNotFound {
			return errs.Wrap(errs.Storage, op, "delete entry", err)
		}
		return nil
	})
	return err
}
