// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package badgerstore

import (
	"context"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// SaveFlexiLists replaces one section's FlexiRecord catalog.
func (s *Store) SaveFlexiLists(ctx context.Context, sectionID int, lists []models.FlexiList) (err error) {
	const op = "badgerstore.SaveFlexiLists"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "flexi_lists", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		next := make([]models.FlexiList, 0, len(lists))
		seen := make(map[string]bool, len(lists))
		for _, l := range lists {
			if seen[l.ExtraID] {
				continue
			}
			seen[l.ExtraID] = true
			l.SectionID = sectionID
			next = append(next, l)
		}
		return writeDoc(op, txn, s.key(flexiListsKey(sectionID)), next)
	})
	return err
}

// GetFlexiLists returns one section's FlexiRecord catalog sorted by name.
func (s *Store) GetFlexiLists(ctx context.Context, sectionID int) (result []models.FlexiList, err error) {
	const op = "badgerstore.GetFlexiLists"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "flexi_lists", time.Since(start), err) }()

	var stored []models.FlexiList
	err = s.db.View(func(txn *badger.Txn) error {
		_, err := readDoc(op, txn, s.key(flexiListsKey(sectionID)), &stored)
		return err
	})
	if err != nil {
		return nil, err
	}

	result = make([]models.FlexiList, 0, len(stored))
	for _, l := range stored {
		if !s.demoMode && l.IsDemo() {
			continue
		}
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ExtraID < result[j].ExtraID
	})
	return result, nil
}

// SaveFlexiStructure upserts one FlexiRecord schema by extra id.
func (s *Store) SaveFlexiStructure(ctx context.Context, structure models.FlexiStructure) (err error) {
	const op = "badgerstore.SaveFlexiStructure"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "flexi_structures", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		return writeDoc(op, txn, s.key(flexiStructureKey(structure.ExtraID)), structure)
	})
	return err
}

// GetFlexiStructure returns one FlexiRecord schema, errs.NotFound when
// the extra id has never been synced.
func (s *Store) GetFlexiStructure(ctx context.Context, extraID string) (structure *models.FlexiStructure, err error) {
	const op = "badgerstore.GetFlexiStructure"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "flexi_structures", time.Since(start), err) }()

	var st models.FlexiStructure
	var found bool
	err = s.db.View(func(txn *badger.Txn) error {
		ok, err := readDoc(op, txn, s.key(flexiStructureKey(extraID)), &st)
		found = ok
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found || (!s.demoMode && st.IsDemo()) {
		return nil, errs.New(errs.NotFound, op, "flexi structure "+extraID+" not stored")
	}
	return &st, nil
}

// SaveFlexiData replaces the rows of one (extra, section, term) scope.
func (s *Store) SaveFlexiData(ctx context.Context, extraID string, sectionID int, termID string, rows []models.FlexiData) (err error) {
	const op = "badgerstore.SaveFlexiData"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "flexi_data", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		next := make([]models.FlexiData, 0, len(rows))
		seen := make(map[int]bool, len(rows))
		for _, r := range rows {
			if seen[r.ScoutID] {
				continue
			}
			seen[r.ScoutID] = true
			r.ExtraID = extraID
			r.SectionID = sectionID
			r.TermID = termID
			next = append(next, r)
		}
		return writeDoc(op, txn, s.key(flexiDataKey(extraID, sectionID, termID)), next)
	})
	return err
}

// GetFlexiData returns one scope's rows sorted by member name.
func (s *Store) GetFlexiData(ctx context.Context, extraID string, sectionID int, termID string) (result []models.FlexiData, err error) {
	const op = "badgerstore.GetFlexiData"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "flexi_data", time.Since(start), err) }()

	var stored []models.FlexiData
	err = s.db.View(func(txn *badger.Txn) error {
		_, err := readDoc(op, txn, s.key(flexiDataKey(extraID, sectionID, termID)), &stored)
		return err
	})
	if err != nil {
		return nil, err
	}

	result = make([]models.FlexiData, 0, len(stored))
	for _, d := range stored {
		if !s.demoMode && d.IsDemo() {
			continue
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ScoutID < b.ScoutID
	})
	return result, nil
}
