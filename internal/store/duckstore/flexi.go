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

// SaveFlexiLists replaces one section's FlexiRecord catalog.
func (s *Store) SaveFlexiLists(ctx context.Context, sectionID int, lists []models.FlexiList) (err error) {
	const op = "duckstore.SaveFlexiLists"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "flexi_lists", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.begin(ctx, op)
	if err != nil {
		return err
	}
	defer func() { rollbackOnErr(tx, err) }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM flexi_lists WHERE section_id = ?`, sectionID); err != nil {
		return errs.Wrap(errs.Storage, op, "clear section lists", err)
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO flexi_lists (section_id, extra_id, name) VALUES (?, ?, ?)`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare insert", err)
	}

	seen := make(map[string]bool, len(lists))
	for _, l := range lists {
		if seen[l.ExtraID] {
			continue
		}
		seen[l.ExtraID] = true
		if _, err = insert.ExecContext(ctx, sectionID, l.ExtraID, l.Name); err != nil {
			return errs.Wrap(errs.Storage, op, "insert list", err)
		}
	}

	return commit(tx, op)
}

// GetFlexiLists returns one section's FlexiRecord catalog sorted by name.
func (s *Store) GetFlexiLists(ctx context.Context, sectionID int) (result []models.FlexiList, err error) {
	const op = "duckstore.GetFlexiLists"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "flexi_lists", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `SELECT section_id, extra_id, name FROM flexi_lists WHERE section_id = ? ORDER BY name, extra_id`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	rows, err := stmt.QueryContext(ctx, sectionID)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "query lists", err)
	}
	defer closeRows(rows)

	result = []models.FlexiList{}
	for rows.Next() {
		var l models.FlexiList
		if err = rows.Scan(&l.SectionID, &l.ExtraID, &l.Name); err != nil {
			return nil, errs.Wrap(errs.Storage, op, "scan list", err)
		}
		if !s.demoMode && l.IsDemo() {
			continue
		}
		result = append(result, l)
	}
	if err = rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "iterate lists", err)
	}
	return result, nil
}

// SaveFlexiStructure upserts one FlexiRecord schema by extra id.
func (s *Store) SaveFlexiStructure(ctx context.Context, structure models.FlexiStructure) (err error) {
	const op = "duckstore.SaveFlexiStructure"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "flexi_structures", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	config, err := marshalJSON(op, structure.Config)
	if err != nil {
		return err
	}
	fields, err := marshalJSON(op, structure.Fields)
	if err != nil {
		return err
	}

	stmt, err := s.stmt(ctx, `INSERT INTO flexi_structures (extra_id, name, config, fields)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (extra_id) DO UPDATE SET
		name = EXCLUDED.name,
		config = EXCLUDED.config,
		fields = EXCLUDED.fields`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare upsert", err)
	}

	if _, err = stmt.ExecContext(ctx, structure.ExtraID, structure.Name, config, fields); err != nil {
		return errs.Wrap(errs.Storage, op, "upsert structure", err)
	}
	return nil
}

// GetFlexiStructure returns one FlexiRecord schema, errs.NotFound when
// the extra id has never been synced.
func (s *Store) GetFlexiStructure(ctx context.Context, extraID string) (structure *models.FlexiStructure, err error) {
	const op = "duckstore.GetFlexiStructure"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "flexi_structures", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `SELECT extra_id, name, config, fields FROM flexi_structures WHERE extra_id = ?`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	var st models.FlexiStructure
	var config, fields string
	scanErr := stmt.QueryRowContext(ctx, extraID).Scan(&st.ExtraID, &st.Name, &config, &fields)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, op, "flexi structure "+extraID+" not stored")
	}
	if scanErr != nil {
		return nil, errs.Wrap(errs.Storage, op, "scan structure", scanErr)
	}
	if err = unmarshalJSON(op, config, &st.Config); err != nil {
		return nil, err
	}
	if err = unmarshalJSON(op, fields, &st.Fields); err != nil {
		return nil, err
	}
	if !s.demoMode && st.IsDemo() {
		return nil, errs.New(errs.NotFound, op, "flexi structure "+extraID+" not stored")
	}
	return &st, nil
}

// SaveFlexiData replaces the rows of one (extra, section, term) scope.
func (s *Store) SaveFlexiData(ctx context.Context, extraID string, sectionID int, termID string, rows []models.FlexiData) (err error) {
	const op = "duckstore.SaveFlexiData"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "flexi_data", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	tx, err := s.begin(ctx, op)
	if err != nil {
		return err
	}
	defer func() { rollbackOnErr(tx, err) }()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM flexi_data WHERE extra_id = ? AND section_id = ? AND term_id = ?`,
		extraID, sectionID, termID); err != nil {
		return errs.Wrap(errs.Storage, op, "clear scope", err)
	}

	insert, err := tx.PrepareContext(ctx, `INSERT INTO flexi_data (
		extra_id, section_id, term_id, scout_id, first_name, last_name, fields
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "prepare insert", err)
	}

	seen := make(map[int]bool, len(rows))
	for _, r := range rows {
		if seen[r.ScoutID] {
			continue
		}
		seen[r.ScoutID] = true

		fields, argErr := marshalJSON(op, r.Fields)
		if argErr != nil {
			err = argErr
			return err
		}
		if _, err = insert.ExecContext(ctx,
			extraID, sectionID, termID, r.ScoutID, r.FirstName, r.LastName, fields); err != nil {
			return errs.Wrap(errs.Storage, op, "insert row", err)
		}
	}

	return commit(tx, op)
}

// GetFlexiData returns one scope's rows sorted by member name.
func (s *Store) GetFlexiData(ctx context.Context, extraID string, sectionID int, termID string) (result []models.FlexiData, err error) {
	const op = "duckstore.GetFlexiData"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "flexi_data", time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	stmt, err := s.stmt(ctx, `SELECT extra_id, section_id, term_id, scout_id, first_name, last_name, fields
	FROM flexi_data
	WHERE extra_id = ? AND section_id = ? AND term_id = ?
	ORDER BY last_name, first_name, scout_id`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "prepare query", err)
	}

	rows, err := stmt.QueryContext(ctx, extraID, sectionID, termID)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "query rows", err)
	}
	defer closeRows(rows)

	result = []models.FlexiData{}
	for rows.Next() {
		var d models.FlexiData
		var fields string
		if err = rows.Scan(&d.ExtraID, &d.SectionID, &d.TermID, &d.ScoutID, &d.FirstName, &d.LastName, &fields); err != nil {
			return nil, errs.Wrap(errs.Storage, op, "scan row", err)
		}
		if err = unmarshalJSON(op, fields, &d.Fields); err != nil {
			return nil, err
		}
		if !s.demoMode && d.IsDemo() {
			continue
		}
		result = append(result, d)
	}
	if err = rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "iterate rows", err)
	}
	return result, nil
}
