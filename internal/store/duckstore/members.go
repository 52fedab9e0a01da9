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

const upsertMemberSQL = `INSERT INTO members (
	scout_id, first_name, last_name, date_of_birth, age, photo_guid,
	contact_groups, custom_data, flattened_fields, read_only,
	version, local_version, last_sync_version, is_locally_modified,
	updated_at, last_synced_at, conflict_resolution_needed
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (scout_id) DO UPDATE SET
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	date_of_birth = EXCLUDED.date_of_birth,
	age = EXCLUDED.age,
	photo_guid = EXCLUDED.photo_guid,
	contact_groups = EXCLUDED.contact_groups,
	custom_data = EXCLUDED.custom_data,
	flattened_fields = EXCLUDED.flattened_fields,
	read_only = EXCLUDED.read_only,
	version = EXCLUDED.version,
	local_version = EXCLUDED.local_version,
	last_sync_version = EXCLUDED.last_sync_version,
	is_locally_modified = EXCLUDED.is_locally_modified,
	updated_at = EXCLUDED.updated_at,
	last_synced_at = EXCLUDED.last_synced_at,
	conflict_resolution_needed = EXCLUDED.conflict_resolution_needed`

const selectMemberColumns = `scout_id, first_name, last_name, date_of_birth, age, photo_guid,
	contact_groups, custom_data, flattened_fields, read_only,
	version, local_version, last_sync_version, is_locally_modified,
	updated_at, last_synced_at, conflict_resolution_needed`

func memberArgs(op string, m models.Member) ([]interface{}, error) {
	contactGroups, err := marshalJSON(op, m.ContactGroups)
	if err != nil {
		return nil, err
	}
	customData, err := marshalJSON(op, m.CustomData)
	if err != nil {
		return nil, err
	}
	flattened, err := marshalJSON(op, m.FlattenedFields)
	if err != nil {
		return nil, err
	}
	readOnly, err := marshalJSON(op, m.ReadOnly)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		m.ScoutID, m.FirstName, m.LastName, m.DateOfBirth, m.Age, m.PhotoGUID,
		contactGroups, customData, flattened, readOnly,
		m.Version, m.LocalVersion, m.LastSyncVersion, m.IsLocallyModified,
		m.UpdatedAt, m.LastSyncedAt, m.ConflictResolutionNeeded,
	}, nil
}

func scanMember(op string, row rowScanner) (models.Member, error) {
	var m models.Member
	var contactGroups, customData, flattened, readOnly string
	err := row.Scan(
		&m.ScoutID, &m.FirstName, &m.LastName, &m.DateOfBirth, &m.Age, &m.PhotoGUID,
		&contactGroups, &customData, &flattened, &readOnly,
		&m.Version, &m.LocalVersion, &m.LastSyncVersion, &m.IsLocallyModified,
		&m.UpdatedAt, &m.LastSyncedAt, &m.ConflictResolutionNeeded,
	)
	if err != nil {
		return m, err
	}
	if err := unmarshalJSON(op, contactGroups, &m.ContactGroups); err != nil {
		return m, err
	}
	if err := unmarshalJSON(op, customData, &m.CustomData); err != nil {
		return m, err
	}
	if err := unmarshalJSON(op, flattened, &m.FlattenedFields); err != nil {
		return m, err
	}
	if err := unmarshalJSON(op, readOnly, &m.ReadOnly); err != nil {
		return m, err
	}
	return m, nil
}

// SaveMembers merges member payloads additively and replaces the
// section links of every section in sectionIDs with the pairs present
// in rows. A member reached from several grids in one batch merges
// through all of them.
func (s *Store) SaveMembers(ctx context.Context, sectionIDs []int, rows []models.MemberWithSection) (err error) {
	const op = "duckstore.SaveMembers"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "members", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.begin(ctx, op)
	if err != nil {
		return err
	}
	defer func() { rollbackOnErr(tx, err) }()

	loadStmt, err := tx.PrepareContext(ctx, `SELECT `+selectMemberColumns+` FROM members WHERE scout_id = ?`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare member load", err)
	}

	upsert, err := tx.PrepareContext(ctx, upsertMemberSQL)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare member upsert", err)
	}

	now := time.Now().UTC()
	merged := make(map[int]models.Member)
	for _, r := range rows {
		scoutID := r.Member.ScoutID

		base, ok := merged[scoutID]
		if !ok {
			existing, loadErr := scanMember(op, loadStmt.QueryRowContext(ctx, scoutID))
			switch {
			case errors.Is(loadErr, sql.ErrNoRows):
				merged[scoutID] = models.ReconcileMember(nil, r.Member, now)
			case loadErr != nil:
				err = errs.Wrap(errs.Storage, op, "load member", loadErr)
				return err
			default:
				merged[scoutID] = models.ReconcileMember(&existing, r.Member, now)
			}
		} else {
			merged[scoutID] = models.ReconcileMember(&base, r.Member, now)
		}
	}

	for _, m := range merged {
		args, argErr := memberArgs(op, m)
		if argErr != nil {
			err = argErr
			return err
		}
		if _, err = upsert.ExecContext(ctx, args...); err != nil {
			return errs.Wrap(errs.Storage, op, "upsert member", err)
		}
	}

	linkDelete, err := tx.PrepareContext(ctx, `DELETE FROM member_sections WHERE section_id = ?`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare link delete", err)
	}
	for _, sectionID := range sectionIDs {
		if _, err = linkDelete.ExecContext(ctx, sectionID); err != nil {
			return errs.Wrap(errs.Storage, op, "clear section links", err)
		}
	}

	linkInsert, err := tx.PrepareContext(ctx, `INSERT INTO member_sections (
		scout_id, section_id, person_type, patrol, patrol_role,
		started_at, joined_at, ended_at, active
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (scout_id, section_id) DO UPDATE SET
		person_type = EXCLUDED.person_type,
		patrol = EXCLUDED.patrol,
		patrol_role = EXCLUDED.patrol_role,
		started_at = EXCLUDED.started_at,
		joined_at = EXCLUDED.joined_at,
		ended_at = EXCLUDED.ended_at,
		active = EXCLUDED.active`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare link insert", err)
	}
	for _, r := range rows {
		link := r.Section
		link.ScoutID = r.Member.ScoutID
		if _, err = linkInsert.ExecContext(ctx,
			link.ScoutID, link.SectionID, link.PersonType, link.Patrol, link.PatrolRole,
			link.StartedAt, link.JoinedAt, link.EndedAt, link.Active); err != nil {
			return errs.Wrap(errs.Storage, op, "insert section link", err)
		}
	}

	return commit(tx, op)
}

// GetMembers returns one section's members with their section links,
// sorted by last then first name.
func (s *Store) GetMembers(ctx context.Context, sectionID int) (result []models.MemberWithSection, err error) {
	const op = "duckstore.GetMembers"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "members", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `SELECT m.scout_id, m.first_name, m.last_name, m.date_of_birth, m.age, m.photo_guid,
		m.contact_groups, m.custom_data, m.flattened_fields, m.read_only,
		m.version, m.local_version, m.last_sync_version, m.is_locally_modified,
		m.updated_at, m.last_synced_at, m.conflict_resolution_needed,
		ms.section_id, ms.person_type, ms.patrol, ms.patrol_role,
		ms.started_at, ms.joined_at, ms.ended_at, ms.active
	FROM members m
	JOIN member_sections ms ON ms.scout_id = m.scout_id
	WHERE ms.section_id = ?
	ORDER BY m.last_name, m.first_name, m.scout_id`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	rows, err := stmt.QueryContext(ctx, sectionID)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "query members", err)
	}
	defer closeRows(rows)

	result = []models.MemberWithSection{}
	for rows.Next() {
		var m models.Member
		var link models.MemberSection
		var contactGroups, customData, flattened, readOnly string
		if err = rows.Scan(
			&m.ScoutID, &m.FirstName, &m.LastName, &m.DateOfBirth, &m.Age, &m.PhotoGUID,
			&contactGroups, &customData, &flattened, &readOnly,
			&m.Version, &m.LocalVersion, &m.LastSyncVersion, &m.IsLocallyModified,
			&m.UpdatedAt, &m.LastSyncedAt, &m.ConflictResolutionNeeded,
			&link.SectionID, &link.PersonType, &link.Patrol, &link.PatrolRole,
			&link.StartedAt, &link.JoinedAt, &link.EndedAt, &link.Active,
		); err != nil {
			return nil, errs.Wrap(errs.Storage, op, "scan member", err)
		}
		if err = unmarshalJSON(op, contactGroups, &m.ContactGroups); err != nil {
			return nil, err
		}
		if err = unmarshalJSON(op, customData, &m.CustomData); err != nil {
			return nil, err
		}
		if err = unmarshalJSON(op, flattened, &m.FlattenedFields); err != nil {
			return nil, err
		}
		if err = unmarshalJSON(op, readOnly, &m.ReadOnly); err != nil {
			return nil, err
		}
		if !s.demoMode && m.IsDemo() {
			continue
		}
		link.ScoutID = m.ScoutID
		result = append(result, models.MemberWithSection{Member: m, Section: link})
	}
	if err = rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "iterate members", err)
	}
	return result, nil
}

// GetMember returns one member by scout id, errs.NotFound when absent.
func (s *Store) GetMember(ctx context.Context, scoutID int) (member *models.Member, err error) {
	const op = "duckstore.GetMember"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "members", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `SELECT `+selectMemberColumns+` FROM members WHERE scout_id = ?`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	m, scanErr := scanMember(op, stmt.QueryRowContext(ctx, scoutID))
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, op, "member "+strconv.Itoa(scoutID)+" not stored")
	}
	if scanErr != nil {
		return nil, errs.Wrap(errs.Storage, op, "scan member", scanErr)
	}
	if !s.demoMode && m.IsDemo() {
		return nil, errs.New(errs.NotFound, op, "member "+strconv.Itoa(scoutID)+" not stored")
	}
	return &m, nil
}

// RecordLocalMemberEdit deep-merges field edits into one member's
// flattened custom fields and advances its local version.
func (s *Store) RecordLocalMemberEdit(ctx context.Context, scoutID int, fields map[string]interface{}) (updated *models.Member, err error) {
	const op = "duckstore.RecordLocalMemberEdit"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("edit", "members", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer func() { rollbackOnErr(tx, err) }()

	m, scanErr := scanMember(op, tx.QueryRowContext(ctx, `SELECT `+selectMemberColumns+` FROM members WHERE scout_id = ?`, scoutID))
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = errs.New(errs.NotFound, op, "member "+strconv.Itoa(scoutID)+" not stored")
		return nil, err
	}
	if scanErr != nil {
		err = errs.Wrap(errs.Storage, op, "load member", scanErr)
		return nil, err
	}

	m.FlattenedFields = models.DeepMergeMaps(m.FlattenedFields, fields)
	m.VersionFields = m.VersionFields.ApplyLocalEdit(time.Now().UTC())

	flattened, err := marshalJSON(op, m.FlattenedFields)
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE members SET flattened_fields = ?, local_version = ?, is_locally_modified = ?, updated_at = ? WHERE scout_id = ?`,
		flattened, m.LocalVersion, m.IsLocallyModified, m.UpdatedAt, scoutID); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "update member", err)
	}

	if err = commit(tx, op); err != nil {
		return nil, err
	}
	return &m, nil
}
