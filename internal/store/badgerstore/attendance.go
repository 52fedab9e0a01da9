// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package badgerstore

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// SaveAttendance replaces the regular rows of one event; the shared
// partition document is untouched.
func (s *Store) SaveAttendance(ctx context.Context, eventID string, rows []models.Attendance) error {
	return s.saveAttendancePartition(ctx, "badgerstore.SaveAttendance", attendanceKey(eventID), eventID, rows, false)
}

// SaveSharedAttendance replaces the shared-section rows of one event.
func (s *Store) SaveSharedAttendance(ctx context.Context, eventID string, rows []models.Attendance) error {
	return s.saveAttendancePartition(ctx, "badgerstore.SaveSharedAttendance", sharedAttendanceKey(eventID), eventID, rows, true)
}

func (s *Store) saveAttendancePartition(ctx context.Context, op, logicalKey, eventID string, incoming []models.Attendance, shared bool) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "attendance", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		key := s.key(logicalKey)

		var existing []models.Attendance
		if _, err := readDoc(op, txn, key, &existing); err != nil {
			return err
		}
		byScout := make(map[int]models.Attendance, len(existing))
		for _, a := range existing {
			byScout[a.ScoutID] = a
		}

		now := time.Now().UTC()
		next := make([]models.Attendance, 0, len(incoming))
		seen := make(map[int]bool, len(incoming))
		for _, in := range incoming {
			if seen[in.ScoutID] {
				continue
			}
			seen[in.ScoutID] = true
			in.EventID = eventID
			in.IsSharedSection = shared

			if ex, ok := byScout[in.ScoutID]; ok {
				next = append(next, models.ReconcileAttendance(&ex, in, now))
			} else {
				next = append(next, models.ReconcileAttendance(nil, in, now))
			}
		}

		return writeDoc(op, txn, key, next)
	})
	return err
}

// GetAttendance returns both partitions of one event sorted by member
// name, regular rows before shared on ties.
func (s *Store) GetAttendance(ctx context.Context, eventID string) (result []models.Attendance, err error) {
	const op = "badgerstore.GetAttendance"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "attendance", time.Since(start), err) }()

	var regular, sharedRows []models.Attendance
	err = s.db.View(func(txn *badger.Txn) error {
		if _, err := readDoc(op, txn, s.key(attendanceKey(eventID)), &regular); err != nil {
			return err
		}
		_, err := readDoc(op, txn, s.key(sharedAttendanceKey(eventID)), &sharedRows)
		return err
	})
	if err != nil {
		return nil, err
	}

	result = make([]models.Attendance, 0, len(regular)+len(sharedRows))
	for _, a := range append(regular, sharedRows...) {
		if !s.demoMode && a.IsDemo() {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		if a.ScoutID != b.ScoutID {
			return a.ScoutID < b.ScoutID
		}
		return !a.IsSharedSection && b.IsSharedSection
	})
	return result, nil
}

// GetAttendanceByScout returns every stored row for one member across
// events and partitions.
func (s *Store) GetAttendanceByScout(ctx context.Context, scoutID int) (result []models.Attendance, err error) {
	const op = "badgerstore.GetAttendanceByScout"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "attendance", time.Since(start), err) }()

	result = []models.Attendance{}
	collect := func(val []byte) error {
		var doc []models.Attendance
		if err := json.Unmarshal(val, &doc); err != nil {
			return err
		}
		for _, a := range doc {
			if a.ScoutID != scoutID {
				continue
			}
			if !s.demoMode && a.IsDemo() {
				continue
			}
			result = append(result, a)
		}
		return nil
	}

	err = s.db.View(func(txn *badger.Txn) error {
		if err := forEachValue(op, txn, s.key(prefixAttendance), func(_ string, val []byte) error {
			return collect(val)
		}); err != nil {
			return err
		}
		return forEachValue(op, txn, s.key(prefixSharedAttendance), func(_ string, val []byte) error {
			return collect(val)
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EventID != result[j].EventID {
			return result[i].EventID < result[j].EventID
		}
		return !result[i].IsSharedSection && result[j].IsSharedSection
	})
	return result, nil
}

// RecordLocalAttendanceEdit applies a local mutation to one regular
// attendance row, advancing its local version.
func (s *Store) RecordLocalAttendanceEdit(ctx context.Context, eventID string, scoutID int, attending, notes string) (updated *models.Attendance, err error) {
	const op = "badgerstore.RecordLocalAttendanceEdit"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("edit", "attendance", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		key := s.key(attendanceKey(eventID))

		var rows []models.Attendance
		if _, err := readDoc(op, txn, key, &rows); err != nil {
			return err
		}

		for i := range rows {
			if rows[i].ScoutID != scoutID {
				continue
			}
			rows[i].Attending = attending
			rows[i].Notes = notes
			rows[i].VersionFields = rows[i].VersionFields.ApplyLocalEdit(time.Now().UTC())

			row := rows[i]
			updated = &row
			return writeDoc(op, txn, key, rows)
		}
		return errs.New(errs.NotFound, op, "no attendance row for event "+eventID+" scout "+strconv.Itoa(scoutID))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
