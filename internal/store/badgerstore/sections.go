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

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// SaveSections replaces the full section list, reconciling version
// state per row against the stored document.
func (s *Store) SaveSections(ctx context.Context, sections []models.Section) (err error) {
	const op = "badgerstore.SaveSections"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "sections", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		key := s.key(keySections)

		var existing []models.Section
		if _, err := readDoc(op, txn, key, &existing); err != nil {
			return err
		}
		byID := make(map[int]models.Section, len(existing))
		for _, sec := range existing {
			byID[sec.SectionID] = sec
		}

		now := time.Now().UTC()
		next := make([]models.Section, 0, len(sections))
		seen := make(map[int]bool, len(sections))
		for _, incoming := range sections {
			if seen[incoming.SectionID] {
				continue
			}
			seen[incoming.SectionID] = true

			if ex, ok := byID[incoming.SectionID]; ok {
				next = append(next, models.ReconcileSection(&ex, incoming, now))
			} else {
				next = append(next, models.ReconcileSection(nil, incoming, now))
			}
		}

		return writeDoc(op, txn, key, next)
	})
	return err
}

// GetSections returns all stored sections sorted by name.
func (s *Store) GetSections(ctx context.Context) (result []models.Section, err error) {
	const op = "badgerstore.GetSections"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "sections", time.Since(start), err) }()

	var stored []models.Section
	err = s.db.View(func(txn *badger.Txn) error {
		_, err := readDoc(op, txn, s.key(keySections), &stored)
		return err
	})
	if err != nil {
		return nil, err
	}

	result = make([]models.Section, 0, len(stored))
	for _, sec := range stored {
		if !s.demoMode && sec.IsDemo() {
			continue
		}
		result = append(result, sec)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].SectionID < result[j].SectionID
	})
	return result, nil
}

// SaveTerms replaces all terms of one section.
func (s *Store) SaveTerms(ctx context.Context, sectionID int, terms []models.Term) (err error) {
	const op = "badgerstore.SaveTerms"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "terms", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		next := make([]models.Term, 0, len(terms))
		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			if seen[t.TermID] {
				continue
			}
			seen[t.TermID] = true
			t.SectionID = sectionID
			next = append(next, t)
		}
		return writeDoc(op, txn, s.key(termsKey(sectionID)), next)
	})
	return err
}

// GetTerms returns one section's terms in chronological order.
func (s *Store) GetTerms(ctx context.Context, sectionID int) (result []models.Term, err error) {
	const op = "badgerstore.GetTerms"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "terms", time.Since(start), err) }()

	var stored []models.Term
	err = s.db.View(func(txn *badger.Txn) error {
		_, err := readDoc(op, txn, s.key(termsKey(sectionID)), &stored)
		return err
	})
	if err != nil {
		return nil, err
	}

	result = make([]models.Term, 0, len(stored))
	for _, t := range stored {
		if !s.demoMode && t.IsDemo() {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartDate != result[j].StartDate {
			return result[i].StartDate < result[j].StartDate
		}
		return result[i].TermID < result[j].TermID
	})
	return result, nil
}
