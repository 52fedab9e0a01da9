// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

import "time"

// Reconcile helpers compute the row a sync ingest should store when an
// incoming server row lands over an existing one. Incoming rows from the
// validation boundary carry zero VersionFields; existing == nil means the
// key is new. Unchanged content returns the existing row untouched so a
// repeat sync with identical upstream responses rewrites rows
// byte-identically.

// ReconcileSection returns the section row to store.
func ReconcileSection(existing *Section, incoming Section, now time.Time) Section {
	if existing == nil {
		incoming.VersionFields = NewSyncedVersion(now)
		return incoming
	}
	if existing.ContentEquals(incoming) {
		return *existing
	}
	incoming.VersionFields = existing.VersionFields.ApplyServerUpdate(true, now)
	return incoming
}

// ReconcileEvent returns the event row to store.
func ReconcileEvent(existing *Event, incoming Event, now time.Time) Event {
	if existing == nil {
		incoming.VersionFields = NewSyncedVersion(now)
		return incoming
	}
	if existing.ContentEquals(incoming) {
		return *existing
	}
	incoming.VersionFields = existing.VersionFields.ApplyServerUpdate(true, now)
	return incoming
}

// ReconcileAttendance returns the attendance row to store.
func ReconcileAttendance(existing *Attendance, incoming Attendance, now time.Time) Attendance {
	if existing == nil {
		incoming.VersionFields = NewSyncedVersion(now)
		return incoming
	}
	if existing.ContentEquals(incoming) {
		return *existing
	}
	incoming.VersionFields = existing.VersionFields.ApplyServerUpdate(true, now)
	return incoming
}

// ReconcileMember folds the incoming member into the existing one before
// versioning. Members accumulate across section grids, so the stored row
// is the deep merge, not the incoming payload alone.
func ReconcileMember(existing *Member, incoming Member, now time.Time) Member {
	if existing == nil {
		incoming.VersionFields = NewSyncedVersion(now)
		return incoming
	}

	merged := *existing
	merged.MergeFrom(incoming)
	if existing.ContentEquals(merged) {
		return *existing
	}
	merged.VersionFields = existing.VersionFields.ApplyServerUpdate(true, now)
	return merged
}
