// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package badgerstore

import "fmt"

// Key layout. One document per scope; scan prefixes are chosen so no
// prefix is a prefix of another kind's keys.
const (
	keySections = "viking_sections_offline"

	prefixTerms            = "viking_terms_"
	prefixEvents           = "viking_events_"
	prefixAttendance       = "viking_attendance_"
	prefixSharedAttendance = "viking_shared_attendance_"
	prefixSharedMetadata   = "viking_shared_metadata_"
	prefixMembers          = "viking_members_"
	prefixMemberSections   = "viking_member_sections_"
	prefixFlexiLists       = "viking_flexi_lists_"
	prefixFlexiStructures  = "viking_flexi_structure_"
	prefixFlexiData        = "viking_flexi_data_"
	prefixSyncStatus       = "viking_sync_status_"
	prefixPageCache        = "page_cache_"
)

func termsKey(sectionID int) string {
	return fmt.Sprintf("%s%d_offline", prefixTerms, sectionID)
}

func eventsKey(sectionID int) string {
	return fmt.Sprintf("%s%d_offline", prefixEvents, sectionID)
}

func attendanceKey(eventID string) string {
	return prefixAttendance + eventID + "_offline"
}

func sharedAttendanceKey(eventID string) string {
	return prefixSharedAttendance + eventID + "_offline"
}

func sharedMetadataKey(eventID string) string {
	return prefixSharedMetadata + eventID
}

func memberKey(scoutID int) string {
	return fmt.Sprintf("%s%d", prefixMembers, scoutID)
}

func memberSectionsKey(sectionID int) string {
	return fmt.Sprintf("%s%d_offline", prefixMemberSections, sectionID)
}

func flexiListsKey(sectionID int) string {
	return fmt.Sprintf("%s%d_offline", prefixFlexiLists, sectionID)
}

func flexiStructureKey(extraID string) string {
	return prefixFlexiStructures + extraID + "_offline"
}

func flexiDataKey(extraID string, sectionID int, termID string) string {
	return fmt.Sprintf("%s%s_%d_%s_offline", prefixFlexiData, extraID, sectionID, termID)
}

func syncStatusKey(tableName string) string {
	return prefixSyncStatus + tableName
}

func pageCacheKey(cacheKey string) string {
	return prefixPageCache + cacheKey
}
