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
	"github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// SaveEvents replaces all events of one section.
func (s *Store) SaveEvents(ctx context.Context, sectionID int, events []models.Event) (err error) {
	const op = "badgerstore.SaveEvents"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "events", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		key := s.key(eventsKey(sectionID))

		var existing []models.Event
		if _, err := readDoc(op, txn, key, &existing); err != nil {
			return err
		}
		byID := make(map[string]models.Event, len(existing))
		for _, ev := range existing {
			byID[ev.EventID] = ev
		}

		now := time.Now().UTC()
		next := make([]models.Event, 0, len(events))
		seen := make(map[string]bool, len(events))
		for _, incoming := range events {
			if seen[incoming.EventID] {
				continue
			}
			seen[incoming.EventID] = true
			incoming.SectionID = sectionID

			if ex, ok := byID[incoming.EventID]; ok {
				next = append(next, models.ReconcileEvent(&ex, incoming, now))
			} else {
				next = append(next, models.ReconcileEvent(nil, incoming, now))
			}
		}

		return writeDoc(op, txn, key, next)
	})
	return err
}

// sortEvents orders newest-first the way the upcoming-events view
// consumes them.
func sortEvents(events []models.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartDate != events[j].StartDate {
			return events[i].StartDate > events[j].StartDate
		}
		return events[i].EventID < events[j].EventID
	})
}

// GetEvents returns one section's events, newest first.
func (s *Store) GetEvents(ctx context.Context, sectionID int) (result []models.Event, err error) {
	const op = "badgerstore.GetEvents"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "events", time.Since(start), err) }()

	var stored []models.Event
	err = s.db.View(func(txn *badger.Txn) error {
		_, err := readDoc(op, txn, s.key(eventsKey(sectionID)), &stored)
		return err
	})
	if err != nil {
		return nil, err
	}

	result = make([]models.Event, 0, len(stored))
	for _, ev := range stored {
		if !s.demoMode && ev.IsDemo() {
			continue
		}
		result = append(result, ev)
	}
	sortEvents(result)
	return result, nil
}

// GetAllEvents returns every stored event across sections, newest first.
func (s *Store) GetAllEvents(ctx context.Context) (result []models.Event, err error) {
	const op = "badgerstore.GetAllEvents"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "events", time.Since(start), err) }()

	result = []models.Event{}
	err = s.db.View(func(txn *badger.Txn) error {
		return forEachValue(op, txn, s.key(prefixEvents), func(_ string, val []byte) error {
			var doc []models.Event
			if err := json.Unmarshal(val, &doc); err != nil {
				return err
			}
			for _, ev := range doc {
				if !s.demoMode && ev.IsDemo() {
					continue
				}
				result = append(result, ev)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortEvents(result)
	return result, nil
}

// GetEvent returns one event by id, errs.NotFound when absent.
func (s *Store) GetEvent(ctx context.Context, eventID string) (event *models.Event, err error) {
	const op = "badgerstore.GetEvent"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "events", time.Since(start), err) }()

	var found *models.Event
	err = s.db.View(func(txn *badger.Txn) error {
		return forEachValue(op, txn, s.key(prefixEvents), func(_ string, val []byte) error {
			if found != nil {
				return nil
			}
			var doc []models.Event
			if err := json.Unmarshal(val, &doc); err != nil {
				return err
			}
			for _, ev := range doc {
				if ev.EventID == eventID {
					ev := ev
					found = &ev
					return nil
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil || (!s.demoMode && found.IsDemo()) {
		return nil, errs.New(errs.NotFound, op, "event "+eventID+" not stored")
	}
	return found, nil
}

// SaveSharedEventMetadata upserts one event's shared-instance
// annotation.
func (s *Store) SaveSharedEventMetadata(ctx context.Context, meta models.SharedEventMetadata) (err error) {
	const op = "badgerstore.SaveSharedEventMetadata"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("save", "shared_event_metadata", time.Since(start), err) }()

	err = s.db.Update(func(txn *badger.Txn) error {
		return writeDoc(op, txn, s.key(sharedMetadataKey(meta.EventID)), meta)
	})
	return err
}

// GetSharedEventMetadata returns one event's shared-instance
// annotation, errs.NotFound when detection never flagged the event.
func (s *Store) GetSharedEventMetadata(ctx context.Context, eventID string) (meta *models.SharedEventMetadata, err error) {
	const op = "badgerstore.GetSharedEventMetadata"
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("get", "shared_event_metadata", time.Since(start), err) }()

	var m models.SharedEventMetadata
	var found bool
	err = s.db.View(func(txn *badger.Txn) error {
		ok, err := readDoc(op, txn, s.key(sharedMetadataKey(eventID)), &m)
		found = ok
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errs.New(errs.NotFound, op, "no shared metadata for event "+eventID)
	}
	return &m, nil
}
