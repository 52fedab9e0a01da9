// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package store defines the local persistence contract shared by the
// DuckDB and Badger backends.
//
// Both backends honor the same write semantics: every save is a single
// atomic transaction, replace-by-scope entities (sections, terms, events,
// attendance partitions, FlexiLists, FlexiData) delete their scope then
// insert, members merge additively, and versioned rows are reconciled
// against the stored row so repeat syncs are byte-identical. Readers on
// an empty store return empty collections, never errors, and filter demo
// fixtures outside demo mode.
package store

import (
	"context"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// Logical table names used for sync-status bookkeeping and stats.
const (
	TableSections        = "sections"
	TableTerms           = "terms"
	TableEvents          = "events"
	TableAttendance      = "attendance"
	TableSharedMetadata  = "shared_event_metadata"
	TableMembers         = "members"
	TableMemberSections  = "member_sections"
	TableFlexiLists      = "flexi_lists"
	TableFlexiStructures = "flexi_structures"
	TableFlexiData       = "flexi_data"
	TablePageCache       = "page_cache"
)

// Store is the uniform persistence API. All writes are atomic; a failed
// write rolls back and surfaces errs.Storage. Single-row getters return
// errs.NotFound for missing keys.
type Store interface {
	// SaveSections replaces the full section list, reconciling version
	// state per row against what is stored.
	SaveSections(ctx context.Context, sections []models.Section) error
	GetSections(ctx context.Context) ([]models.Section, error)

	// SaveTerms replaces all terms of one section.
	SaveTerms(ctx context.Context, sectionID int, terms []models.Term) error
	GetTerms(ctx context.Context, sectionID int) ([]models.Term, error)

	// SaveEvents replaces all events of one section.
	SaveEvents(ctx context.Context, sectionID int, events []models.Event) error
	GetEvents(ctx context.Context, sectionID int) ([]models.Event, error)
	GetAllEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)

	// SaveAttendance replaces the regular rows of one event; shared
	// rows are untouched. SaveSharedAttendance is the mirror image.
	SaveAttendance(ctx context.Context, eventID string, rows []models.Attendance) error
	SaveSharedAttendance(ctx context.Context, eventID string, rows []models.Attendance) error
	GetAttendance(ctx context.Context, eventID string) ([]models.Attendance, error)
	GetAttendanceByScout(ctx context.Context, scoutID int) ([]models.Attendance, error)

	// RecordLocalAttendanceEdit applies a local mutation to one
	// attendance row, advancing its local version.
	RecordLocalAttendanceEdit(ctx context.Context, eventID string, scoutID int, attending, notes string) (*models.Attendance, error)

	// SaveMembers merges member payloads additively and replaces the
	// section links of every section in sectionIDs with the pairs
	// present in rows.
	SaveMembers(ctx context.Context, sectionIDs []int, rows []models.MemberWithSection) error
	GetMembers(ctx context.Context, sectionID int) ([]models.MemberWithSection, error)
	GetMember(ctx context.Context, scoutID int) (*models.Member, error)

	// RecordLocalMemberEdit deep-merges field edits into one member's
	// flattened custom fields, advancing its local version.
	RecordLocalMemberEdit(ctx context.Context, scoutID int, fields map[string]interface{}) (*models.Member, error)

	SaveSharedEventMetadata(ctx context.Context, meta models.SharedEventMetadata) error
	GetSharedEventMetadata(ctx context.Context, eventID string) (*models.SharedEventMetadata, error)

	SaveFlexiLists(ctx context.Context, sectionID int, lists []models.FlexiList) error
	GetFlexiLists(ctx context.Context, sectionID int) ([]models.FlexiList, error)
	SaveFlexiStructure(ctx context.Context, structure models.FlexiStructure) error
	GetFlexiStructure(ctx context.Context, extraID string) (*models.FlexiStructure, error)
	SaveFlexiData(ctx context.Context, extraID string, sectionID int, termID string, rows []models.FlexiData) error
	GetFlexiData(ctx context.Context, extraID string, sectionID int, termID string) ([]models.FlexiData, error)

	SetSyncStatus(ctx context.Context, status models.SyncStatus) error
	GetSyncStatus(ctx context.Context, tableName string) (*models.SyncStatus, error)

	SetPageCache(ctx context.Context, entry models.PageCacheEntry) error
	GetPageCache(ctx context.Context, cacheKey string) (*models.PageCacheEntry, error)
	DeletePageCache(ctx context.Context, cacheKey string) error

	// HasOfflineData reports whether any synced entity rows exist; the
	// auth manager consults it before falling back to offline mode.
	HasOfflineData(ctx context.Context) (bool, error)

	// PurgeCachedData deletes every entity row, page cache entry, and
	// sync-status row. Used by the logout cascade.
	PurgeCachedData(ctx context.Context) error

	Stats(ctx context.Context) (*models.StoreStats, error)
	Backend() string
	Close() error
}
