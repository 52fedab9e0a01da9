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
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// HasOfflineData reports whether a previous sync left entity rows
// behind. Page cache and sync status rows do not count; only synced
// entities make offline mode useful.
func (s *Store) HasOfflineData(ctx context.Context) (ok bool, err error) {
	const op = "badgerstore.HasOfflineData"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "offline_data", time.Since(start), err) }()

	err = s.db.View(func(txn *badger.Txn) error {
		sections, err := countDocRows(op, txn, s.key(keySections))
		if err != nil {
			return err
		}
		if sections > 0 {
			ok = true
			return nil
		}

		events, err := countDocRows(op, txn, s.key(prefixEvents))
		if err != nil {
			return err
		}
		if events > 0 {
			ok = true
			return nil
		}

		ok = countKeys(txn, s.key(prefixMembers)) > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// PurgeCachedData drops every entity, cache, and status key. Used by
// the logout cascade; both demo and real keyspaces are cleared.
func (s *Store) PurgeCachedData(ctx context.Context) (err error) {
	const op = "badgerstore.PurgeCachedData"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete", "all", time.Since(start), err) }()

	prefixes := [][]byte{
		[]byte("viking_"),
		[]byte(prefixPageCache),
		[]byte(models.DemoKeyPrefix + "viking_"),
		[]byte(models.DemoKeyPrefix + prefixPageCache),
	}
	if err = s.db.DropPrefix(prefixes...); err != nil {
		return errs.Wrap(errs.Storage, op, "drop prefixes", err)
	}

	logging.Info().Str("dir", s.dir).Msg("Purged all cached data")
	return nil
}

// Stats returns per-entity row counts for the status endpoint.
func (s *Store) Stats(ctx context.Context) (stats *models.StoreStats, err error) {
	const op = "badgerstore.Stats"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "stats", time.Since(start), err) }()

	stats = &models.StoreStats{Backend: BackendName}
	err = s.db.View(func(txn *badger.Txn) error {
		docCounts := []struct {
			prefix string
			dst    *int64
		}{
			{keySections, &stats.Sections},
			{prefixTerms, &stats.Terms},
			{prefixEvents, &stats.Events},
			{prefixMemberSections, &stats.MemberSections},
			{prefixFlexiLists, &stats.FlexiLists},
			{prefixFlexiData, &stats.FlexiData},
		}
		for _, c := range docCounts {
			n, err := countDocRows(op, txn, s.key(c.prefix))
			if err != nil {
				return err
			}
			*c.dst = n
		}

		regular, err := countDocRows(op, txn, s.key(prefixAttendance))
		if err != nil {
			return err
		}
		shared, err := countDocRows(op, txn, s.key(prefixSharedAttendance))
		if err != nil {
			return err
		}
		stats.Attendance = regular + shared

		stats.Members = countKeys(txn, s.key(prefixMembers))
		stats.FlexiStructures = countKeys(txn, s.key(prefixFlexiStructures))
		stats.PageCache = countKeys(txn, s.key(prefixPageCache))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Backend names the active persistence engine.
func (s *Store) Backend() string { return BackendName }
