// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package duckstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

const insertSectionSQL = `INSERT INTO sections (
	section_id, name, section_type,
	version, local_version, last_sync_version, is_locally_modified,
	updated_at, last_synced_at, conflict_resolution_needed
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectSectionColumns = `section_id, name, section_type,
	version, local_version, last_sync_version, is_locally_modified,
	updated_at, last_synced_at, conflict_resolution_needed`

func sectionArgs(sec models.Section) []interface{} {
	return []interface{}{
		sec.SectionID, sec.Name, sec.SectionType,
		sec.Version, sec.LocalVersion, sec.LastSyncVersion, sec.IsLocallyModified,
		sec.UpdatedAt, sec.LastSyncedAt, sec.ConflictResolutionNeeded,
	}
}

func scanSection(rows *sql.Rows) (models.Section, error) {
	var sec models.Section
	err := rows.Scan(
		&sec.SectionID, &sec.Name, &sec.SectionType,
		&sec.Version, &sec.LocalVersion, &sec.LastSyncVersion, &sec.IsLocallyModified,
		&sec.UpdatedAt, &sec.LastSyncedAt, &sec.ConflictResolutionNeeded,
	)
	return sec, err
}

// SaveSections replaces the full section list, carrying version state
// forward from stored rows so repeat syncs are byte-identical.
func (s *Store) SaveSections(ctx context.Context, sections []models.Section) (err error) {
	const op = "duckstore.SaveSections"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "sections", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.begin(ctx, op)
	if err != nil {
		return err
	}
	defer func() { rollbackOnErr(tx, err) }()

	existing := make(map[int]models.Section)
	rows, err := tx.QueryContext(ctx, `SELECT `+selectSectionColumns+` FROM sections`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "load existing sections", err)
	}
	for rows.Next() {
		sec, scanErr := scanSection(rows)
		if scanErr != nil {
			closeRows(rows)
			err = errs.Wrap(errs.Storage, op, "scan section", scanErr)
			return err
		}
		existing[sec.SectionID] = sec
	}
	closeRows(rows)
	if err = rows.Err(); err != nil {
		return errs.Wrap(errs.Storage, op, "iterate sections", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM sections`); err != nil {
		return errs.Wrap(errs.Storage, op, "clear sections", err)
	}

	insert, err := tx.PrepareContext(ctx, insertSectionSQL)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare insert", err)
	}

	now := time.Now().UTC()
	seen := make(map[int]bool, len(sections))
	for _, incoming := range sections {
		if seen[incoming.SectionID] {
			continue
		}
		seen[incoming.SectionID] = true

		var prior *models.Section
		if ex, ok := existing[incoming.SectionID]; ok {
			prior = &ex
		}
		row := models.ReconcileSection(prior, incoming, now)
		if _, err = insert.ExecContext(ctx, sectionArgs(row)...); err != nil {
			return errs.Wrap(errs.Storage, op, "insert section", err)
		}
	}

	return commit(tx, op)
}

// GetSections returns all sections sorted by name.
func (s *Store) GetSections(ctx context.Context) (sections []models.Section, err error) {
	const op = "duckstore.GetSections"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "sections", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `SELECT `+selectSectionColumns+` FROM sections ORDER BY name, section_id`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "query sections", err)
	}
	defer closeRows(rows)

	sections = []models.Section{}
	for rows.Next() {
		sec, scanErr := scanSection(rows)
		if scanErr != nil {
			return nil, errs.Wrap(errs.Storage, op, "scan section", scanErr)
		}
		if !s.demoMode && sec.IsDemo() {
			continue
		}
		sections = append(sections, sec)
	}
	if err = rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "iterate sections", err)
	}
	return sections, nil
}

// SaveTerms replaces all terms of one section. Terms carry no version
// state; the upstream list is authoritative.
func (s *Store) SaveTerms(ctx context.Context, sectionID int, terms []models.Term) (err error) {
	const op = "duckstore.SaveTerms"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "terms", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.begin(ctx, op)
	if err != nil {
		return err
	}
	defer func() { rollbackOnErr(tx, err) }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM terms WHERE section_id = ?`, sectionID); err != nil {
		return errs.Wrap(errs.Storage, op, "clear terms", err)
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO terms (term_id, section_id, name, start_date, end_date) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare insert", err)
	}

	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		if seen[t.TermID] {
			continue
		}
		seen[t.TermID] = true
		if _, err = insert.ExecContext(ctx, t.TermID, sectionID, t.Name, t.StartDate, t.EndDate); err != nil {
			return errs.Wrap(errs.Storage, op, "insert term", err)
		}
	}

	return commit(tx, op)
}

// GetTerms returns one section's terms sorted by start date.
func (s *Store) GetTerms(ctx context.Context, sectionID int) (terms []models.Term, err error) {
	const op = "duckstore.GetTerms"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "terms", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx,
		`SELECT term_id, section_id, name, start_date, end_date FROM terms WHERE section_id = ? ORDER BY start_date, term_id`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	rows, err := stmt.QueryContext(ctx, sectionID)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "query terms", err)
	}
	defer closeRows(rows)

	terms = []models.Term{}
	for rows.Next() {
		var t models.Term
		if err = rows.Scan(&t.TermID, &t.SectionID, &t.Name, &t.StartDate, &t.EndDate); err != nil {
			return nil, errs.Wrap(errs.Storage, op, "scan term", err)
		}
		if !s.demoMode && t.IsDemo() {
			continue
		}
		terms = append(terms, t)
	}
	if err = rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "iterate terms", err)
	}
	return terms, nil
}
