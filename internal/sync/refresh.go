// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package sync

import (
	"context"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/cache"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// RefreshAttendance re-pulls one event's attendance on demand, outside
// any full run. Concurrent callers for the same event collapse onto a
// single upstream pull and share its outcome. The returned rows are the
// regular partition just fetched.
func (m *Manager) RefreshAttendance(ctx context.Context, eventID string) ([]models.Attendance, error) {
	const op = "sync.RefreshAttendance"

	v, err, _ := m.flight.Do("attendance:"+eventID, func() (interface{}, error) {
		ev, err := m.store.GetEvent(ctx, eventID)
		if err != nil {
			return nil, errs.Wrap(errs.KindOf(err), op, "event lookup failed", err)
		}

		rows, err := m.api.GetAttendance(ctx, ev.SectionID, ev.EventID, ev.TermID)
		if err != nil {
			return nil, errs.Wrap(errs.KindOf(err), op, "attendance fetch failed", err)
		}
		if err := m.store.SaveAttendance(ctx, eventID, rows); err != nil {
			return nil, errs.Wrap(errs.Storage, op, "attendance save failed", err)
		}

		if err := m.refreshSharedPartition(ctx, ev); err != nil {
			return nil, err
		}

		m.invalidate(ctx, cache.EventDetailKey(eventID, ev.SectionID))
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Attendance), nil
}

// refreshSharedPartition re-pulls the shared rows when detection has
// flagged the event. Absent metadata means the event is not shared.
func (m *Manager) refreshSharedPartition(ctx context.Context, ev *models.Event) error {
	const op = "sync.RefreshAttendance"

	meta, err := m.store.GetSharedEventMetadata(ctx, ev.EventID)
	if errs.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return errs.Wrap(errs.Storage, op, "shared metadata lookup failed", err)
	}
	if meta == nil || !meta.IsShared {
		return nil
	}

	srows, err := m.api.GetSharedAttendance(ctx, ev.EventID, ev.SectionID)
	if err != nil {
		return errs.Wrap(errs.KindOf(err), op, "shared attendance fetch failed", err)
	}
	if err := m.store.SaveSharedAttendance(ctx, ev.EventID, srows); err != nil {
		return errs.Wrap(errs.Storage, op, "shared attendance save failed", err)
	}
	return nil
}
