// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package sync

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/store"
)

// syncBackground is the breadth stage: member grids, events for each
// section's current term, shared-event detection, and the attendance
// fan-out. A section or event that fails is recorded in the result and
// skipped; only cancellation and local store trouble abort the stage.
func (m *Manager) syncBackground(ctx context.Context, res *Result) error {
	const op = "sync.Background"

	sections, err := m.store.GetSections(ctx)
	if err != nil {
		return errs.Wrap(errs.Sync, op, "cached sections load failed", err)
	}
	if len(sections) == 0 {
		return nil
	}

	m.syncMembers(ctx, res, sections)
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.Sync, op, "cancelled", err)
	}

	window, err := m.syncEvents(ctx, res, sections)
	if err != nil {
		return err
	}

	shared, err := m.detectSharedEvents(ctx, res)
	if err != nil {
		return err
	}

	if err := m.syncAttendance(ctx, res, window, shared); err != nil {
		return err
	}

	m.setSyncStatus(ctx, store.TableEvents)
	m.setSyncStatus(ctx, store.TableAttendance)
	m.progress(ctx, StageBackground, "background data refreshed", res.Counts)
	return nil
}

// syncMembers refreshes every section's member grid. The store merge is
// additive across sections, so a member in two sections keeps both rows.
func (m *Manager) syncMembers(ctx context.Context, res *Result, sections []models.Section) {
	m.progress(ctx, StageBackground, "refreshing member grids", res.Counts)

	for _, section := range sections {
		if ctx.Err() != nil {
			return
		}
		rows, err := m.api.GetMembersGrid(ctx, section.SectionID)
		if err != nil {
			res.fail("section", strconv.Itoa(section.SectionID), section.Name, err)
			continue
		}
		if err := m.store.SaveMembers(ctx, []int{section.SectionID}, rows); err != nil {
			res.fail("section", strconv.Itoa(section.SectionID), section.Name, err)
			continue
		}
		res.add("members", len(rows))
	}

	m.setSyncStatus(ctx, store.TableMembers)
	m.setSyncStatus(ctx, store.TableMemberSections)
}

// syncEvents refreshes each section's events for its current term and
// returns the ones inside the attendance window. Events outside the
// window are stored but not fanned out.
func (m *Manager) syncEvents(ctx context.Context, res *Result, sections []models.Section) ([]models.Event, error) {
	const op = "sync.Events"

	m.progress(ctx, StageBackground, "refreshing events", res.Counts)

	now := time.Now().UTC()
	lower, upper := m.eventWindow(now)

	var window []models.Event
	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.Sync, op, "cancelled", err)
		}

		terms, err := m.store.GetTerms(ctx, section.SectionID)
		if err != nil {
			res.fail("section", strconv.Itoa(section.SectionID), section.Name, err)
			continue
		}
		term := models.SelectCurrentTerm(terms, now)
		if term == nil {
			continue
		}

		evs, err := m.api.GetEvents(ctx, section.SectionID, term.TermID)
		if err != nil {
			res.fail("section", strconv.Itoa(section.SectionID), section.Name, err)
			continue
		}
		if err := m.store.SaveEvents(ctx, section.SectionID, evs); err != nil {
			res.fail("section", strconv.Itoa(section.SectionID), section.Name, err)
			continue
		}
		res.add("events", len(evs))

		for _, ev := range evs {
			if ev.StartDate != "" && ev.StartDate >= lower && ev.StartDate <= upper {
				window = append(window, ev)
			}
		}
	}
	return window, nil
}

// eventWindow returns the inclusive ISO date bounds of the attendance
// fan-out. Lexical comparison on the bounds matches chronological order.
func (m *Manager) eventWindow(now time.Time) (lower, upper string) {
	lower = now.AddDate(0, 0, -m.cfg.Sync.WindowPastDays).Format("2006-01-02")
	upper = now.AddDate(0, 0, m.cfg.Sync.WindowFutureDays).Format("2006-01-02")
	return lower, upper
}

// syncAttendance pulls attendance for the window events in batches so
// a big window cannot monopolise the request governor. Shared partitions
// are refreshed for events flagged by detection.
func (m *Manager) syncAttendance(ctx context.Context, res *Result, evs []models.Event, shared map[string]bool) error {
	const op = "sync.Attendance"

	if len(evs) == 0 {
		return nil
	}
	m.progress(ctx, StageBackground, "refreshing attendance", res.Counts)

	batch := m.cfg.Governor.BatchSize
	if batch < 1 {
		batch = 1
	}

	var mu sync.Mutex
	for start := 0; start < len(evs); start += batch {
		if start > 0 {
			select {
			case <-ctx.Done():
				return errs.Wrap(errs.Sync, op, "cancelled", ctx.Err())
			case <-time.After(m.cfg.Governor.BatchPause):
			}
		}

		var g errgroup.Group
		for _, ev := range evs[start:min(start+batch, len(evs))] {
			g.Go(func() error {
				m.pullEventAttendance(ctx, res, &mu, ev, shared[ev.EventID])
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.Sync, op, "cancelled", err)
		}
	}
	return nil
}

// pullEventAttendance refreshes one event's regular partition and, for
// shared events, its shared partition. Failures land in the result.
func (m *Manager) pullEventAttendance(ctx context.Context, res *Result, mu *sync.Mutex, ev models.Event, sharedEvent bool) {
	rows, err := m.api.GetAttendance(ctx, ev.SectionID, ev.EventID, ev.TermID)
	if err == nil {
		err = m.store.SaveAttendance(ctx, ev.EventID, rows)
	}
	if err != nil {
		mu.Lock()
		res.fail("event", ev.EventID, ev.Name, err)
		mu.Unlock()
		return
	}
	mu.Lock()
	res.add("attendance", len(rows))
	mu.Unlock()

	if !sharedEvent {
		return
	}

	srows, err := m.api.GetSharedAttendance(ctx, ev.EventID, ev.SectionID)
	if err == nil {
		err = m.store.SaveSharedAttendance(ctx, ev.EventID, srows)
	}
	if err != nil {
		mu.Lock()
		res.fail("event", ev.EventID, ev.Name, err)
		mu.Unlock()
		return
	}
	mu.Lock()
	res.add("shared_attendance", len(srows))
	mu.Unlock()
}
