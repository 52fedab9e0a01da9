// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

import "time"

// SyncStatus is orchestrator bookkeeping for one logical table.
type SyncStatus struct {
	TableName  string    `json:"table_name"`
	LastSyncAt time.Time `json:"last_sync_at"`
	NeedsSync  bool      `json:"needs_sync"`
}

// PageCacheEntry is a persisted page-cache payload. Payload is the raw
// JSON value; staleness is computed by the cache layer from CachedAt.
type PageCacheEntry struct {
	CacheKey string    `json:"cache_key"`
	Payload  []byte    `json:"payload"`
	CachedAt time.Time `json:"cached_at"`
}

// StoreStats reports per-entity row counts for diagnostics.
type StoreStats struct {
	Backend         string `json:"backend"`
	Sections        int64  `json:"sections"`
	Terms           int64  `json:"terms"`
	Events          int64  `json:"events"`
	Attendance      int64  `json:"attendance"`
	Members         int64  `json:"members"`
	MemberSections  int64  `json:"member_sections"`
	FlexiLists      int64  `json:"flexi_lists"`
	FlexiStructures int64  `json:"flexi_structures"`
	FlexiData       int64  `json:"flexi_data"`
	PageCache       int64  `json:"page_cache"`
}
