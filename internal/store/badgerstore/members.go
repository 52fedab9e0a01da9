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

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// SaveMembers merges member payloads additively and replaces the
// section links of every section in sectionIDs with the pairs present
// in rows. A member reached from several grids in one batch merges
// through all of them.
func (s *Store) SaveMembers(ctx context.Context, sectionIDs []int, rows []models.MemberWithSection) (err error) {
	const op = "badgerstore.SaveMembers"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "members", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		now := time.Now().UTC()

		merged := make(map[int]models.Member)
		for _, r := range rows {
			scoutID := r.Member.ScoutID

			if base, ok := merged[scoutID]; ok {
				merged[scoutID] = models.ReconcileMember(&base, r.Member, now)
				continue
			}

			var existing models.Member
			found, loadErr := readDoc(op, txn, s.key(memberKey(scoutID)), &existing)
			if loadErr != nil {
				return loadErr
			}
			if found {
				merged[scoutID] = models.ReconcileMember(&existing, r.Member, now)
			} else {
				merged[scoutID] = models.ReconcileMember(nil, r.Member, now)
			}
		}
		for scoutID, m := range merged {
			if err := writeDoc(op, txn, s.key(memberKey(scoutID)), m); err != nil {
				return err
			}
		}

		links := make(map[int][]models.MemberSection)
		linkSeen := make(map[int]map[int]bool)
		for _, r := range rows {
			link := r.Section
			link.ScoutID = r.Member.ScoutID
			if linkSeen[link.SectionID] == nil {
				linkSeen[link.SectionID] = make(map[int]bool)
			}
			if linkSeen[link.SectionID][link.ScoutID] {
				continue
			}
			linkSeen[link.SectionID][link.ScoutID] = true
			links[link.SectionID] = append(links[link.SectionID], link)
		}

		replaced := make(map[int]bool, len(sectionIDs))
		for _, sectionID := range sectionIDs {
			replaced[sectionID] = true
			key := s.key(memberSectionsKey(sectionID))
			doc := links[sectionID]
			if len(doc) == 0 {
				if err := txn.Delete(key); err != nil {
					return errs.Wrap(errs.Storage, op, "clear section links", err)
				}
				continue
			}
			if err := writeDoc(op, txn, key, doc); err != nil {
				return err
			}
		}

		// Links for sections outside the replaced scopes upsert into
		// whatever an earlier fetch stored for that section.
		for sectionID, doc := range links {
			if replaced[sectionID] {
				continue
			}
			key := s.key(memberSectionsKey(sectionID))

			var existing []models.MemberSection
			if _, err := readDoc(op, txn, key, &existing); err != nil {
				return err
			}
			byScout := make(map[int]int, len(existing))
			for i, l := range existing {
				byScout[l.ScoutID] = i
			}
			for _, l := range doc {
				if i, ok := byScout[l.ScoutID]; ok {
					existing[i] = l
				} else {
					existing = append(existing, l)
				}
			}
			if err := writeDoc(op, txn, key, existing); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// GetMembers returns one section's members with their section links,
// sorted by last then first name.
func (s *Store) GetMembers(ctx context.Context, sectionID int) (result []models.MemberWithSection, err error) {
	const op = "badgerstore.GetMembers"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "members", time.Since(start), err) }()

	result = []models.MemberWithSection{}
	err = s.db.View(func(txn *badger.Txn) error {
		var links []models.MemberSection
		if _, err := readDoc(op, txn, s.key(memberSectionsKey(sectionID)), &links); err != nil {
			return err
		}

		for _, link := range links {
			var m models.Member
			found, err := readDoc(op, txn, s.key(memberKey(link.ScoutID)), &m)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			if !s.demoMode && m.IsDemo() {
				continue
			}
			link.ScoutID = m.ScoutID
			result = append(result, models.MemberWithSection{Member: m, Section: link})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Member, result[j].Member
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

// GetMember returns one member by scout id, errs.NotFound when absent.
func (s *Store) GetMember(ctx context.Context, scoutID int) (member *models.Member, err error) {
	const op = "badgerstore.GetMember"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "members", time.Since(start), err) }()

	var m models.Member
	var found bool
	err = s.db.View(func(txn *badger.Txn) error {
		ok, err := readDoc(op, txn, s.key(memberKey(scoutID)), &m)
		found = ok
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found || (!s.demoMode && m.IsDemo()) {
		return nil, errs.New(errs.NotFound, op, "member "+strconv.Itoa(scoutID)+" not stored")
	}
	return &m, nil
}

// RecordLocalMemberEdit deep-merges field edits into one member's
// flattened custom fields and advances its local version.
func (s *Store) RecordLocalMemberEdit(ctx context.Context, scoutID int, fields map[string]interface{}) (updated *models.Member, err error) {
	const op = "badgerstore.RecordLocalMemberEdit"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("edit", "members", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		key := s.key(memberKey(scoutID))

		var m models.Member
		found, loadErr := readDoc(op, txn, key, &m)
		if loadErr != nil {
			return loadErr
		}
		if !found {
			return errs.New(errs.NotFound, op, "member "+strconv.Itoa(scoutID)+" not stored")
		}

		m.FlattenedFields = models.DeepMergeMaps(m.FlattenedFields, fields)
		m.VersionFields = m.VersionFields.ApplyLocalEdit(time.Now().UTC())

		if err := writeDoc(op, txn, key, m); err != nil {
			return err
		}
		updated = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
