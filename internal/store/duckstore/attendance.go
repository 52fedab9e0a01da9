// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package duckstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

const insertAttendanceSQL = `INSERT INTO attendance (
	event_id, scout_id, section_id, first_name, last_name,
	attending, patrol, notes, is_shared_section,
	version, local_version, last_sync_version, is_locally_modified,
	updated_at, last_synced_at, conflict_resolution_needed
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectAttendanceColumns = `event_id, scout_id, section_id, first_name, last_name,
	attending, patrol, notes, is_shared_section,
	version, local_version, last_sync_version, is_locally_modified,
	updated_at, last_synced_at, conflict_resolution_needed`

func attendanceArgs(a models.Attendance) []interface{} {
	return []interface{}{
		a.EventID, a.ScoutID, a.SectionID, a.FirstName, a.LastName,
		a.Attending, a.Patrol, a.Notes, a.IsSharedSection,
		a.Version, a.LocalVersion, a.LastSyncVersion, a.IsLocallyModified,
		a.UpdatedAt, a.LastSyncedAt, a.ConflictResolutionNeeded,
	}
}

func scanAttendance(row rowScanner) (models.Attendance, error) {
	var a models.Attendance
	err := row.Scan(
		&a.EventID, &a.ScoutID, &a.SectionID, &a.FirstName, &a.LastName,
		&a.Attending, &a.Patrol, &a.Notes, &a.IsSharedSection,
		&a.Version, &a.LocalVersion, &a.LastSyncVersion, &a.IsLocallyModified,
		&a.UpdatedAt, &a.LastSyncedAt, &a.ConflictResolutionNeeded,
	)
	return a, err
}

// SaveAttendance replaces the regular attendance partition of one
// event. Shared-section rows are untouched.
func (s *Store) SaveAttendance(ctx context.Context, eventID string, rows []models.Attendance) error {
	return s.saveAttendancePartition(ctx, "duckstore.SaveAttendance", eventID, rows, false)
}

// SaveSharedAttendance replaces the shared-section partition of one
// event. Regular rows are untouched.
func (s *Store) SaveSharedAttendance(ctx context.Context, eventID string, rows []models.Attendance) error {
	return s.saveAttendancePartition(ctx, "duckstore.SaveSharedAttendance", eventID, rows, true)
}

func (s *Store) saveAttendancePartition(ctx context.Context, op, eventID string, incoming []models.Attendance, shared bool) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "attendance", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.begin(ctx, op)
	if err != nil {
		return err
	}
	defer func() { rollbackOnErr(tx, err) }()

	existing := make(map[int]models.Attendance)
	rows, err := tx.QueryContext(ctx,
		`SELECT `+selectAttendanceColumns+` FROM attendance WHERE event_id = ? AND is_shared_section = ?`,
		eventID, shared)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "load existing attendance", err)
	}
	for rows.Next() {
		a, scanErr := scanAttendance(rows)
		if scanErr != nil {
			closeRows(rows)
			err = errs.Wrap(errs.Storage, op, "scan attendance", scanErr)
			return err
		}
		existing[a.ScoutID] = a
	}
	closeRows(rows)
	if err = rows.Err(); err != nil {
		return errs.Wrap(errs.Storage, op, "iterate attendance", err)
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM attendance WHERE event_id = ? AND is_shared_section = ?`, eventID, shared); err != nil {
		return errs.Wrap(errs.Storage, op, "clear attendance partition", err)
	}

	insert, err := tx.PrepareContext(ctx, insertAttendanceSQL)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare insert", err)
	}

	now := time.Now().UTC()
	seen := make(map[int]bool, len(incoming))
	for _, in := range incoming {
		in.EventID = eventID
		in.IsSharedSection = shared
		if seen[in.ScoutID] {
			continue
		}
		seen[in.ScoutID] = true

		var prior *models.Attendance
		if ex, ok := existing[in.ScoutID]; ok {
			prior = &ex
		}
		row := models.ReconcileAttendance(prior, in, now)
		if _, err = insert.ExecContext(ctx, attendanceArgs(row)...); err != nil {
			return errs.Wrap(errs.Storage, op, "insert attendance", err)
		}
	}

	return commit(tx, op)
}

// GetAttendance returns both partitions of one event, sorted by member
// name.
func (s *Store) GetAttendance(ctx context.Context, eventID string) ([]models.Attendance, error) {
	return s.queryAttendance(ctx, "duckstore.GetAttendance",
		`SELECT `+selectAttendanceColumns+` FROM attendance WHERE event_id = ? ORDER BY last_name, first_name, scout_id, is_shared_section`,
		eventID)
}

// GetAttendanceByScout returns every stored attendance row for one
// member across events.
func (s *Store) GetAttendanceByScout(ctx context.Context, scoutID int) ([]models.Attendance, error) {
	return s.queryAttendance(ctx, "duckstore.GetAttendanceByScout",
		`SELECT `+selectAttendanceColumns+` FROM attendance WHERE scout_id = ? ORDER BY event_id, is_shared_section`,
		scoutID)
}

func (s *Store) queryAttendance(ctx context.Context, op, query string, arg interface{}) (result []models.Attendance, err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "attendance", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	rows, err := stmt.QueryContext(ctx, arg)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "query attendance", err)
	}
	defer closeRows(rows)

	result = []models.Attendance{}
	for rows.Next() {
		a, scanErr := scanAttendance(rows)
		if scanErr != nil {
			return nil, errs.Wrap(errs.Storage, op, "scan attendance", scanErr)
		}
		if !s.demoMode && a.IsDemo() {
			continue
		}
		result = append(result, a)
	}
	if err = rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "iterate attendance", err)
	}
	return result, nil
}

// RecordLocalAttendanceEdit applies a local mutation to one regular
// attendance row and advances its local version.
func (s *Store) RecordLocalAttendanceEdit(ctx context.Context, eventID string, scoutID int, attending, notes string) (updated *models.Attendance, err error) {
	const op = "duckstore.RecordLocalAttendanceEdit"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("edit", "attendance", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer func() { rollbackOnErr(tx, err) }()

	a, scanErr := scanAttendance(tx.QueryRowContext(ctx,
		`SELECT `+selectAttendanceColumns+` FROM attendance WHERE event_id = ? AND scout_id = ? AND is_shared_section = FALSE`,
		eventID, scoutID))
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = errs.New(errs.NotFound, op, "no attendance row for event "+eventID+" scout "+strconv.Itoa(scoutID))
		return nil, err
	}
	if scanErr != nil {
		err = errs.Wrap(errs.Storage, op, "load attendance row", scanErr)
		return nil, err
	}

	a.Attending = attending
	a.Notes = notes
	a.VersionFields = a.VersionFields.ApplyLocalEdit(time.Now().UTC())

	if _, err = tx.ExecContext(ctx,
		`UPDATE attendance SET attending = ?, notes = ?, local_version = ?, is_locally_modified = ?, updated_at = ?
		 WHERE event_id = ? AND scout_id = ? AND is_shared_section = FALSE`,
		a.Attending, a.Notes, a.LocalVersion, a.IsLocallyModified, a.UpdatedAt,
		eventID, scoutID); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "update attendance row", err)
	}

	if err = commit(tx, op); err != nil {
		return nil, err
	}
	return &a, nil
}
