// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

import "time"

// VersionFields tracks per-row sync state for sections, events, attendance,
// and members. Invariant after every write:
//
//	IsLocallyModified == (LocalVersion > LastSyncVersion)
//
// All counters live in a single per-row version space. A fresh ingest
// starts the three counters equal; local edits advance LocalVersion;
// server updates advance Version and, when the row is clean, realign
// LocalVersion and LastSyncVersion with it.
type VersionFields struct {
	Version                  int64     `json:"version"`
	LocalVersion             int64     `json:"local_version"`
	LastSyncVersion          int64     `json:"last_sync_version"`
	IsLocallyModified        bool      `json:"is_locally_modified"`
	UpdatedAt                time.Time `json:"updated_at"`
	LastSyncedAt             time.Time `json:"last_synced_at"`
	ConflictResolutionNeeded bool      `json:"conflict_resolution_needed"`
}

// NewSyncedVersion returns the version state for a row first seen via sync.
func NewSyncedVersion(now time.Time) VersionFields {
	return VersionFields{
		Version:         1,
		LocalVersion:    1,
		LastSyncVersion: 1,
		UpdatedAt:       now,
		LastSyncedAt:    now,
	}
}

// ApplyServerUpdate computes the version state after ingesting a server row
// over this one. contentChanged reports whether the incoming server fields
// differ from the stored ones; an unchanged row is returned untouched so
// repeated syncs with identical upstream responses leave rows byte-identical.
//
// A changed server row over a locally modified one is a conflict: the
// caller stores the server fields, but the local counters are retained and
// ConflictResolutionNeeded is raised so the edit surfaces for resolution.
func (v VersionFields) ApplyServerUpdate(contentChanged bool, now time.Time) VersionFields {
	if !contentChanged {
		return v
	}

	next := v
	next.Version = v.Version + 1
	next.LastSyncedAt = now

	if v.IsLocallyModified && next.Version > v.LastSyncVersion {
		next.ConflictResolutionNeeded = true
		return next
	}

	next.LocalVersion = next.Version
	next.LastSyncVersion = next.Version
	next.IsLocallyModified = false
	next.ConflictResolutionNeeded = false
	next.UpdatedAt = now
	return next
}

// ApplyLocalEdit computes the version state after a local mutation.
func (v VersionFields) ApplyLocalEdit(now time.Time) VersionFields {
	next := v
	next.LocalVersion = v.LocalVersion + 1
	next.IsLocallyModified = next.LocalVersion > next.LastSyncVersion
	next.UpdatedAt = now
	return next
}
