// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package sync

import (
	"context"
	"sort"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/store"
)

// detectSharedEvents groups every cached event by name and start date
// and persists metadata for each instance. A group counts as shared
// when it spans at least two distinct sections; the owner is the lowest
// participating section and the participant list is ascending, so the
// outcome does not depend on store scan order. Metadata is written for
// unshared events too, which clears a stale shared flag once an event
// stops matching.
func (m *Manager) detectSharedEvents(ctx context.Context, res *Result) (map[string]bool, error) {
	const op = "sync.SharedDetection"

	all, err := m.store.GetAllEvents(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.Sync, op, "cached events load failed", err)
	}

	type occurrence struct{ name, startDate string }
	groups := make(map[occurrence][]models.Event)
	for _, ev := range all {
		groups[occurrence{ev.Name, ev.StartDate}] = append(groups[occurrence{ev.Name, ev.StartDate}], ev)
	}

	shared := make(map[string]bool)
	for key, group := range groups {
		sectionSet := make(map[int]bool, len(group))
		for _, ev := range group {
			sectionSet[ev.SectionID] = true
		}
		// An undated pair with the same name is coincidence, not a
		// cross-section occurrence.
		isShared := key.startDate != "" && len(sectionSet) >= 2

		var participants []int
		if isShared {
			for sid := range sectionSet {
				participants = append(participants, sid)
			}
			sort.Ints(participants)
		}

		for _, ev := range group {
			meta := models.SharedEventMetadata{EventID: ev.EventID, IsShared: isShared}
			if isShared {
				meta.OwnerSectionID = participants[0]
				meta.SectionIDs = participants
				shared[ev.EventID] = true
			}
			if err := m.store.SaveSharedEventMetadata(ctx, meta); err != nil {
				return nil, errs.Wrap(errs.Sync, op, "shared metadata save failed", err)
			}
		}
		if isShared {
			res.add("shared_events", 1)
		}
	}

	m.setSyncStatus(ctx, store.TableSharedMetadata)
	return shared, nil
}
