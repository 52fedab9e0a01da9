// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package duckstore

import (
	"context"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// HasOfflineData reports whether a previous sync left entity rows
// behind. Page cache and sync status rows do not count; only synced
// entities make offline mode useful.
func (s *Store) HasOfflineData(ctx context.Context) (ok bool, err error) {
	const op = "duckstore.HasOfflineData"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "offline_data", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var sections, events, members int64
	scanErr := s.conn.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM sections), (SELECT COUNT(*) FROM events), (SELECT COUNT(*) FROM members)`,
	).Scan(&sections, &events, &members)
	if scanErr != nil {
		return false, errs.Wrap(errs.Storage, op, "count entities", scanErr)
	}
	return sections > 0 || events > 0 || members > 0, nil
}

var purgeTables = []string{
	"sections",
	"terms",
	"events",
	"attendance",
	"shared_event_metadata",
	"members",
	"member_sections",
	"flexi_lists",
	"flexi_structures",
	"flexi_data",
	"sync_status",
	"page_cache",
}

// PurgeCachedData deletes every entity, cache, and status row in one
// transaction. Schema and migration history survive.
func (s *Store) PurgeCachedData(ctx context.Context) (err error) {
	const op = "duckstore.PurgeCachedData"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("delete", "all", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.begin(ctx, op)
	if err != nil {
		return err
	}
	defer func() { rollbackOnErr(tx, err) }()

	for _, table := range purgeTables {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return errs.Wrap(errs.Storage, op, "purge "+table, err)
		}
	}

	if err = commit(tx, op); err != nil {
		return err
	}

	logging.Logger().Info().Str("path", s.path).Msg("Purged all cached data")
	return nil
}

// Stats returns per-table row counts for the status endpoint.
func (s *Store) Stats(ctx context.Context) (stats *models.StoreStats, err error) {
	const op = "duckstore.Stats"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "stats", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stats = &models.StoreStats{Backend: BackendName}
	counts := map[string]*int64{
		"sections":         &stats.Sections,
		"terms":            &stats.Terms,
		"events":           &stats.Events,
		"attendance":       &stats.Attendance,
		"members":          &stats.Members,
		"member_sections":  &stats.MemberSections,
		"flexi_lists":      &stats.FlexiLists,
		"flexi_structures": &stats.FlexiStructures,
		"flexi_data":       &stats.FlexiData,
		"page_cache":       &stats.PageCache,
	}

	for table, dst := range counts {
		if scanErr := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(dst); scanErr != nil {
			return nil, errs.Wrap(errs.Storage, op, "count "+table, scanErr)
		}
	}
	return stats, nil
}

// Backend names the active persistence engine.
func (s *Store) Backend() string { return BackendName }
