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

const insertEventSQL = `INSERT INTO events (
	event_id, section_id, term_id, name, start_date, end_date,
	start_time, end_time, location, notes,
	version, local_version, last_sync_version, is_locally_modified,
	updated_at, last_synced_at, conflict_resolution_needed
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectEventColumns = `event_id, section_id, term_id, name, start_date, end_date,
	start_time, end_time, location, notes,
	version, local_version, last_sync_version, is_locally_modified,
	updated_at, last_synced_at, conflict_resolution_needed`

func eventArgs(ev models.Event) []interface{} {
	return []interface{}{
		ev.EventID, ev.SectionID, ev.TermID, ev.Name, ev.StartDate, ev.EndDate,
		ev.StartTime, ev.EndTime, ev.Location, ev.Notes,
		ev.Version, ev.LocalVersion, ev.LastSyncVersion, ev.IsLocallyModified,
		ev.UpdatedAt, ev.LastSyncedAt, ev.ConflictResolutionNeeded,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (models.Event, error) {
	var ev models.Event
	err := row.Scan(
		&ev.EventID, &ev.SectionID, &ev.TermID, &ev.Name, &ev.StartDate, &ev.EndDate,
		&ev.StartTime, &ev.EndTime, &ev.Location, &ev.Notes,
		&ev.Version, &ev.LocalVersion, &ev.LastSyncVersion, &ev.IsLocallyModified,
		&ev.UpdatedAt, &ev.LastSyncedAt, &ev.ConflictResolutionNeeded,
	)
	return ev, err
}

// SaveEvents replaces all events of one section, reconciling version
// state per event against stored rows.
func (s *Store) SaveEvents(ctx context.Context, sectionID int, events []models.Event) (err error) {
	const op = "duckstore.SaveEvents"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "events", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.begin(ctx, op)
	if err != nil {
		return err
	}
	defer func() { rollbackOnErr(tx, err) }()

	existing := make(map[string]models.Event)
	rows, err := tx.QueryContext(ctx, `SELECT `+selectEventColumns+` FROM events WHERE section_id = ?`, sectionID)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "load existing events", err)
	}
	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			closeRows(rows)
			err = errs.Wrap(errs.Storage, op, "scan event", scanErr)
			return err
		}
		existing[ev.EventID] = ev
	}
	closeRows(rows)
	if err = rows.Err(); err != nil {
		return errs.Wrap(errs.Storage, op, "iterate events", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM events WHERE section_id = ?`, sectionID); err != nil {
		return errs.Wrap(errs.Storage, op, "clear events", err)
	}

	insert, err := tx.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare insert", err)
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(events))
	for _, incoming := range events {
		if seen[incoming.EventID] {
			continue
		}
		seen[incoming.EventID] = true
		incoming.SectionID = sectionID

		var prior *models.Event
		if ex, ok := existing[incoming.EventID]; ok {
			prior = &ex
		}
		row := models.ReconcileEvent(prior, incoming, now)
		if _, err = insert.ExecContext(ctx, eventArgs(row)...); err != nil {
			return errs.Wrap(errs.Storage, op, "insert event", err)
		}
	}

	return commit(tx, op)
}

// GetEvents returns one section's events, newest start date first.
func (s *Store) GetEvents(ctx context.Context, sectionID int) ([]models.Event, error) {
	return s.queryEvents(ctx, "duckstore.GetEvents",
		`SELECT `+selectEventColumns+` FROM events WHERE section_id = ? ORDER BY start_date DESC, event_id`, sectionID)
}

// GetAllEvents returns every stored event, newest start date first.
func (s *Store) GetAllEvents(ctx context.Context) ([]models.Event, error) {
	return s.queryEvents(ctx, "duckstore.GetAllEvents",
		`SELECT `+selectEventColumns+` FROM events ORDER BY start_date DESC, event_id`)
}

func (s *Store) queryEvents(ctx context.Context, op, query string, args ...interface{}) (events []models.Event, err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "events", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "query events", err)
	}
	defer closeRows(rows)

	events = []models.Event{}
	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, errs.Wrap(errs.Storage, op, "scan event", scanErr)
		}
		if !s.demoMode && ev.IsDemo() {
			continue
		}
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "iterate events", err)
	}
	return events, nil
}

// GetEvent returns one event by id, errs.NotFound when absent.
func (s *Store) GetEvent(ctx context.Context, eventID string) (event *models.Event, err error) {
	const op = "duckstore.GetEvent"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "events", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `SELECT `+selectEventColumns+` FROM events WHERE event_id = ?`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	ev, scanErr := scanEvent(stmt.QueryRowContext(ctx, eventID))
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, op, "event "+eventID+" not stored")
	}
	if scanErr != nil {
		return nil, errs.Wrap(errs.Storage, op, "scan event", scanErr)
	}
	if !s.demoMode && ev.IsDemo() {
		return nil, errs.New(errs.NotFound, op, "event "+eventID+" not stored")
	}
	return &ev, nil
}

// SaveSharedEventMetadata upserts the shared-event annotation for one
// event.
func (s *Store) SaveSharedEventMetadata(ctx context.Context, meta models.SharedEventMetadata) (err error) {
	const op = "duckstore.SaveSharedEventMetadata"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "shared_event_metadata", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	sectionIDs, err := marshalJSON(op, meta.SectionIDs)
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx, `INSERT INTO shared_event_metadata (event_id, is_shared, owner_section_id, section_ids)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (event_id) DO UPDATE SET
			is_shared = EXCLUDED.is_shared,
			owner_section_id = EXCLUDED.owner_section_id,
			section_ids = EXCLUDED.section_ids`,
		meta.EventID, meta.IsShared, meta.OwnerSectionID, sectionIDs)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "upsert shared metadata", err)
	}
	return nil
}

// GetSharedEventMetadata returns the annotation for one event,
// errs.NotFound when absent.
func (s *Store) GetSharedEventMetadata(ctx context.Context, eventID string) (meta *models.SharedEventMetadata, err error) {
	const op = "duckstore.GetSharedEventMetadata"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "shared_event_metadata", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `SELECT event_id, is_shared, owner_section_id, section_ids FROM shared_event_metadata WHERE event_id = ?`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	var m models.SharedEventMetadata
	var sectionIDs string
	scanErr := stmt.QueryRowContext(ctx, eventID).Scan(&m.EventID, &m.IsShared, &m.OwnerSectionID, &sectionIDs)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, op, "no shared metadata for event "+eventID)
	}
	if scanErr != nil {
		return nil, errs.Wrap(errs.Storage, op, "scan shared metadata", scanErr)
	}
	if err = unmarshalJSON(op, sectionIDs, &m.SectionIDs); err != nil {
		return nil, err
	}
	return &m, nil
}
