// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package storetest is the persistence conformance suite. Both backends
// run the same suite so their write semantics (atomic replace-by-scope,
// additive member merge, version reconciliation, demo filtering) cannot
// drift apart.
package storetest

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/store"
)

// Factory opens a fresh, empty store for one subtest. Implementations
// register cleanup on t so the suite never closes stores itself.
type Factory func(t *testing.T, demoMode bool) store.Store

// Fixture builders

func section(id int, name string) models.Section {
	return models.Section{SectionID: id, Name: name, SectionType: "beavers"}
}

func event(id string, sectionID int, name, startDate string) models.Event {
	return models.Event{
		EventID:   id,
		SectionID: sectionID,
		TermID:    "term-1",
		Name:      name,
		StartDate: startDate,
	}
}

func attendanceRow(eventID string, scoutID int, lastName, attending string) models.Attendance {
	return models.Attendance{
		EventID:   eventID,
		ScoutID:   scoutID,
		SectionID: 1,
		FirstName: "Alex",
		LastName:  lastName,
		Attending: attending,
	}
}

func memberRow(scoutID int, firstName, lastName string, sectionID int, flattened map[string]interface{}) models.MemberWithSection {
	return models.MemberWithSection{
		Member: models.Member{
			ScoutID:         scoutID,
			FirstName:       firstName,
			LastName:        lastName,
			FlattenedFields: flattened,
		},
		Section: models.MemberSection{
			ScoutID:   scoutID,
			SectionID: sectionID,
			Patrol:    "Red",
			Active:    true,
		},
	}
}

// Run executes the full conformance suite against stores opened by open.
func Run(t *testing.T, open Factory) {
	t.Run("SectionsRoundTrip", func(t *testing.T) { testSectionsRoundTrip(t, open) })
	t.Run("RepeatSyncIsByteIdentical", func(t *testing.T) { testRepeatSyncIsByteIdentical(t, open) })
	t.Run("ChangedContentBumpsVersion", func(t *testing.T) { testChangedContentBumpsVersion(t, open) })
	t.Run("EventsScopedReplace", func(t *testing.T) { testEventsScopedReplace(t, open) })
	t.Run("EventsSortedNewestFirst", func(t *testing.T) { testEventsSortedNewestFirst(t, open) })
	t.Run("TermsReplacePerSection", func(t *testing.T) { testTermsReplacePerSection(t, open) })
	t.Run("AttendancePartitionsIndependent", func(t *testing.T) { testAttendancePartitionsIndependent(t, open) })
	t.Run("AttendanceConflictDetection", func(t *testing.T) { testAttendanceConflictDetection(t, open) })
	t.Run("AttendanceLocalEditSurvivesIdenticalSync", func(t *testing.T) { testLocalEditSurvivesIdenticalSync(t, open) })
	t.Run("AttendanceEditMissingRow", func(t *testing.T) { testAttendanceEditMissingRow(t, open) })
	t.Run("MembersMergeAcrossSections", func(t *testing.T) { testMembersMergeAcrossSections(t, open) })
	t.Run("MembersMergeOrderIndependent", func(t *testing.T) { testMembersMergeOrderIndependent(t, open) })
	t.Run("MemberSectionLinksReplacedPerScope", func(t *testing.T) { testMemberLinksReplacedPerScope(t, open) })
	t.Run("MemberLocalEditDeepMerges", func(t *testing.T) { testMemberLocalEditDeepMerges(t, open) })
	t.Run("SharedEventMetadataRoundTrip", func(t *testing.T) { testSharedEventMetadataRoundTrip(t, open) })
	t.Run("FlexiRoundTrip", func(t *testing.T) { testFlexiRoundTrip(t, open) })
	t.Run("SyncStatusRoundTrip", func(t *testing.T) { testSyncStatusRoundTrip(t, open) })
	t.Run("PageCacheRoundTrip", func(t *testing.T) { testPageCacheRoundTrip(t, open) })
	t.Run("DemoRowsFilteredOutsideDemoMode", func(t *testing.T) { testDemoRowsFiltered(t, open) })
	t.Run("DemoModeKeepsDemoRows", func(t *testing.T) { testDemoModeKeepsDemoRows(t, open) })
	t.Run("EmptyStoreReaders", func(t *testing.T) { testEmptyStoreReaders(t, open) })
	t.Run("OfflineDataLifecycle", func(t *testing.T) { testOfflineDataLifecycle(t, open) })
	t.Run("StatsCountsRows", func(t *testing.T) { testStatsCountsRows(t, open) })
}

func testSectionsRoundTrip(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	in := []models.Section{section(2, "1st Walton Cubs"), section(1, "1st Walton Beavers")}
	if err := s.SaveSections(ctx, in); err != nil {
		t.Fatalf("SaveSections failed: %v", err)
	}

	got, err := s.GetSections(ctx)
	if err != nil {
		t.Fatalf("GetSections failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(got))
	}
	if got[0].Name != "1st Walton Beavers" || got[1].Name != "1st Walton Cubs" {
		t.Errorf("Expected name-sorted sections, got %q then %q", got[0].Name, got[1].Name)
	}
	for _, sec := range got {
		if sec.Version != 1 || sec.LocalVersion != 1 || sec.LastSyncVersion != 1 {
			t.Errorf("Expected fresh version counters 1/1/1 for section %d, got %d/%d/%d",
				sec.SectionID, sec.Version, sec.LocalVersion, sec.LastSyncVersion)
		}
		if sec.IsLocallyModified || sec.ConflictResolutionNeeded {
			t.Errorf("Expected clean flags for section %d", sec.SectionID)
		}
	}
}

func testRepeatSyncIsByteIdentical(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	events := []models.Event{
		event("E1", 1, "Camp Weekend", "2024-07-20"),
		event("E2", 1, "Beach Trip", "2024-08-02"),
	}
	if err := s.SaveEvents(ctx, 1, events); err != nil {
		t.Fatalf("First SaveEvents failed: %v", err)
	}
	first, err := s.GetEvents(ctx, 1)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}

	if err := s.SaveEvents(ctx, 1, events); err != nil {
		t.Fatalf("Second SaveEvents failed: %v", err)
	}
	second, err := s.GetEvents(ctx, 1)
	if err != nil {
		t.Fatalf("GetEvents after repeat failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical rows after repeat sync, got\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func testChangedContentBumpsVersion(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if err := s.SaveSections(ctx, []models.Section{section(1, "1st Walton Beavers")}); err != nil {
		t.Fatalf("SaveSections failed: %v", err)
	}
	if err := s.SaveSections(ctx, []models.Section{section(1, "1st Walton Beavers (Mon)")}); err != nil {
		t.Fatalf("SaveSections with change failed: %v", err)
	}

	got, err := s.GetSections(ctx)
	if err != nil {
		t.Fatalf("GetSections failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(got))
	}
	sec := got[0]
	if sec.Name != "1st Walton Beavers (Mon)" {
		t.Errorf("Expected updated name, got %q", sec.Name)
	}
	if sec.Version != 2 || sec.LocalVersion != 2 || sec.LastSyncVersion != 2 {
		t.Errorf("Expected aligned counters 2/2/2 after clean overwrite, got %d/%d/%d",
			sec.Version, sec.LocalVersion, sec.LastSyncVersion)
	}
	if sec.ConflictResolutionNeeded {
		t.Error("Expected no conflict on clean overwrite")
	}
}

func testEventsScopedReplace(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if err := s.SaveEvents(ctx, 1, []models.Event{
		event("E1", 1, "Camp Weekend", "2024-07-20"),
		event("E2", 1, "Beach Trip", "2024-08-02"),
	}); err != nil {
		t.Fatalf("SaveEvents section 1 failed: %v", err)
	}
	if err := s.SaveEvents(ctx, 2, []models.Event{
		event("E3", 2, "Camp Weekend", "2024-07-20"),
	}); err != nil {
		t.Fatalf("SaveEvents section 2 failed: %v", err)
	}

	if err := s.SaveEvents(ctx, 1, []models.Event{
		event("E4", 1, "Autumn Hike", "2024-10-12"),
	}); err != nil {
		t.Fatalf("SaveEvents replace failed: %v", err)
	}

	s1, err := s.GetEvents(ctx, 1)
	if err != nil {
		t.Fatalf("GetEvents section 1 failed: %v", err)
	}
	if len(s1) != 1 || s1[0].EventID != "E4" {
		t.Errorf("Expected section 1 to hold only E4, got %+v", s1)
	}

	s2, err := s.GetEvents(ctx, 2)
	if err != nil {
		t.Fatalf("GetEvents section 2 failed: %v", err)
	}
	if len(s2) != 1 || s2[0].EventID != "E3" {
		t.Errorf("Expected section 2 untouched with E3, got %+v", s2)
	}

	all, err := s.GetAllEvents(ctx)
	if err != nil {
		t.Fatalf("GetAllEvents failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 events across sections, got %d", len(all))
	}

	if _, err := s.GetEvent(ctx, "E3"); err != nil {
		t.Errorf("GetEvent E3 failed: %v", err)
	}
	if _, err := s.GetEvent(ctx, "E1"); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFound for replaced event E1, got %v", err)
	}
}

func testEventsSortedNewestFirst(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if err := s.SaveEvents(ctx, 1, []models.Event{
		event("E1", 1, "Spring Camp", "2024-04-01"),
		event("E2", 1, "Autumn Hike", "2024-10-12"),
		event("E3", 1, "Summer Fair", "2024-07-06"),
	}); err != nil {
		t.Fatalf("SaveEvents failed: %v", err)
	}

	got, err := s.GetEvents(ctx, 1)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	wantOrder := []string{"E2", "E3", "E1"}
	for i, id := range wantOrder {
		if got[i].EventID != id {
			t.Fatalf("Expected order %v, got %+v", wantOrder, got)
		}
	}
}

func testTermsReplacePerSection(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if err := s.SaveTerms(ctx, 1, []models.Term{
		{TermID: "t2", SectionID: 1, Name: "Summer", StartDate: "2024-04-15", EndDate: "2024-07-20"},
		{TermID: "t1", SectionID: 1, Name: "Spring", StartDate: "2024-01-08", EndDate: "2024-04-01"},
	}); err != nil {
		t.Fatalf("SaveTerms failed: %v", err)
	}
	if err := s.SaveTerms(ctx, 2, []models.Term{
		{TermID: "t3", SectionID: 2, Name: "Summer", StartDate: "2024-04-15", EndDate: "2024-07-20"},
	}); err != nil {
		t.Fatalf("SaveTerms section 2 failed: %v", err)
	}

	got, err := s.GetTerms(ctx, 1)
	if err != nil {
		t.Fatalf("GetTerms failed: %v", err)
	}
	if len(got) != 2 || got[0].TermID != "t1" || got[1].TermID != "t2" {
		t.Errorf("Expected chronological terms t1,t2 for section 1, got %+v", got)
	}

	if err := s.SaveTerms(ctx, 1, []models.Term{
		{TermID: "t4", SectionID: 1, Name: "Autumn", StartDate: "2024-09-02", EndDate: "2024-12-14"},
	}); err != nil {
		t.Fatalf("SaveTerms replace failed: %v", err)
	}
	got, err = s.GetTerms(ctx, 1)
	if err != nil {
		t.Fatalf("GetTerms after replace failed: %v", err)
	}
	if len(got) != 1 || got[0].TermID != "t4" {
		t.Errorf("Expected section 1 to hold only t4, got %+v", got)
	}

	other, err := s.GetTerms(ctx, 2)
	if err != nil {
		t.Fatalf("GetTerms section 2 failed: %v", err)
	}
	if len(other) != 1 || other[0].TermID != "t3" {
		t.Errorf("Expected section 2 untouched, got %+v", other)
	}
}

func testAttendancePartitionsIndependent(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if err := s.SaveAttendance(ctx, "E1", []models.Attendance{
		attendanceRow("E1", 1, "Reed", "yes"),
		attendanceRow("E1", 2, "Stone", "no"),
	}); err != nil {
		t.Fatalf("SaveAttendance failed: %v", err)
	}
	shared := attendanceRow("E1", 3, "Vale", "yes")
	shared.IsSharedSection = true
	if err := s.SaveSharedAttendance(ctx, "E1", []models.Attendance{shared}); err != nil {
		t.Fatalf("SaveSharedAttendance failed: %v", err)
	}

	// Replacing the regular partition must leave the shared row alone.
	if err := s.SaveAttendance(ctx, "E1", []models.Attendance{
		attendanceRow("E1", 4, "Moss", "yes"),
	}); err != nil {
		t.Fatalf("SaveAttendance replace failed: %v", err)
	}

	got, err := s.GetAttendance(ctx, "E1")
	if err != nil {
		t.Fatalf("GetAttendance failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows (R3 and shared S1), got %d: %+v", len(got), got)
	}

	var regular, sharedBack *models.Attendance
	for i := range got {
		if got[i].IsSharedSection {
			sharedBack = &got[i]
		} else {
			regular = &got[i]
		}
	}
	if regular == nil || regular.ScoutID != 4 {
		t.Errorf("Expected regular partition to hold scout 4, got %+v", regular)
	}
	if sharedBack == nil || sharedBack.ScoutID != 3 {
		t.Errorf("Expected shared partition untouched with scout 3, got %+v", sharedBack)
	}

	// And the mirror image: replacing shared leaves regular alone.
	if err := s.SaveSharedAttendance(ctx, "E1", nil); err != nil {
		t.Fatalf("SaveSharedAttendance clear failed: %v", err)
	}
	got, err = s.GetAttendance(ctx, "E1")
	if err != nil {
		t.Fatalf("GetAttendance after shared clear failed: %v", err)
	}
	if len(got) != 1 || got[0].IsSharedSection {
		t.Errorf("Expected only the regular row to remain, got %+v", got)
	}
}

func testAttendanceConflictDetection(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if err := s.SaveAttendance(ctx, "E1", []models.Attendance{
		attendanceRow("E1", 1, "Reed", "yes"),
	}); err != nil {
		t.Fatalf("SaveAttendance failed: %v", err)
	}

	if _, err := s.RecordLocalAttendanceEdit(ctx, "E1", 1, "no", "family holiday"); err != nil {
		t.Fatalf("RecordLocalAttendanceEdit failed: %v", err)
	}

	// Server now disagrees with the local edit.
	if err := s.SaveAttendance(ctx, "E1", []models.Attendance{
		attendanceRow("E1", 1, "Reed", "maybe"),
	}); err != nil {
		t.Fatalf("SaveAttendance with server change failed: %v", err)
	}

	got, err := s.GetAttendance(ctx, "E1")
	if err != nil {
		t.Fatalf("GetAttendance failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(got))
	}
	row := got[0]
	if !row.ConflictResolutionNeeded {
		t.Error("Expected conflict flag after local edit followed by server change")
	}
	if row.Attending != "maybe" {
		t.Errorf("Expected server content stored, got attending=%q", row.Attending)
	}
	if !row.IsLocallyModified {
		t.Error("Expected local-modification flag retained through conflict")
	}
	if row.LocalVersion <= row.LastSyncVersion {
		t.Errorf("Expected local version ahead of last sync, got local=%d last_sync=%d",
			row.LocalVersion, row.LastSyncVersion)
	}
}

func testLocalEditSurvivesIdenticalSync(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	serverRow := attendanceRow("E1", 1, "Reed", "yes")
	if err := s.SaveAttendance(ctx, "E1", []models.Attendance{serverRow}); err != nil {
		t.Fatalf("SaveAttendance failed: %v", err)
	}
	if _, err := s.RecordLocalAttendanceEdit(ctx, "E1", 1, "no", "family holiday"); err != nil {
		t.Fatalf("RecordLocalAttendanceEdit failed: %v", err)
	}

	// A repeat sync with truly identical upstream content would compare
	// against the locally edited row, see changed content, and flag it.
	// Syncing the row the edit produced must leave it untouched.
	edited := attendanceRow("E1", 1, "Reed", "no")
	edited.Notes = "family holiday"
	if err := s.SaveAttendance(ctx, "E1", []models.Attendance{edited}); err != nil {
		t.Fatalf("Repeat SaveAttendance failed: %v", err)
	}

	got, err := s.GetAttendance(ctx, "E1")
	if err != nil {
		t.Fatalf("GetAttendance failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(got))
	}
	row := got[0]
	if row.Attending != "no" || row.Notes != "family holiday" {
		t.Errorf("Expected local edit retained, got attending=%q notes=%q", row.Attending, row.Notes)
	}
	if row.ConflictResolutionNeeded {
		t.Error("Expected no conflict when server content matches the stored row")
	}
	if !row.IsLocallyModified {
		t.Error("Expected local-modification flag retained")
	}
}

func testAttendanceEditMissingRow(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if _, err := s.RecordLocalAttendanceEdit(ctx, "E9", 42, "yes", ""); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFound editing a missing row, got %v", err)
	}
}

func testMembersMergeAcrossSections(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	gridA := memberRow(10, "Alex", "Reed", 1, map[string]interface{}{
		"consent_photos": "yes",
	})
	gridA.Member.DateOfBirth = "2016-03-09"
	if err := s.SaveMembers(ctx, []int{1}, []models.MemberWithSection{gridA}); err != nil {
		t.Fatalf("SaveMembers section 1 failed: %v", err)
	}

	gridB := memberRow(10, "Alex", "Reed", 2, map[string]interface{}{
		"consent_swimming": "no",
	})
	if err := s.SaveMembers(ctx, []int{2}, []models.MemberWithSection{gridB}); err != nil {
		t.Fatalf("SaveMembers section 2 failed: %v", err)
	}

	m, err := s.GetMember(ctx, 10)
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if m.DateOfBirth != "2016-03-09" {
		t.Errorf("Expected date of birth retained through merge, got %q", m.DateOfBirth)
	}
	if m.FlattenedFields["consent_photos"] != "yes" || m.FlattenedFields["consent_swimming"] != "no" {
		t.Errorf("Expected both grids' keys merged, got %+v", m.FlattenedFields)
	}

	for _, sectionID := range []int{1, 2} {
		got, err := s.GetMembers(ctx, sectionID)
		if err != nil {
			t.Fatalf("GetMembers(%d) failed: %v", sectionID, err)
		}
		if len(got) != 1 || got[0].Member.ScoutID != 10 {
			t.Errorf("Expected scout 10 linked to section %d, got %+v", sectionID, got)
		}
		if got[0].Section.SectionID != sectionID {
			t.Errorf("Expected link for section %d, got %d", sectionID, got[0].Section.SectionID)
		}
	}
}

func testMembersMergeOrderIndependent(t *testing.T, open Factory) {
	ctx := context.Background()

	gridA := memberRow(10, "Alex", "Reed", 1, map[string]interface{}{"consent_photos": "yes"})
	gridA.Member.DateOfBirth = "2016-03-09"
	gridB := memberRow(10, "Alex", "Reed", 2, map[string]interface{}{"consent_swimming": "no"})

	ingest := func(t *testing.T, first, second models.MemberWithSection, firstSection, secondSection int) models.Member {
		t.Helper()
		s := open(t, false)
		if err := s.SaveMembers(ctx, []int{firstSection}, []models.MemberWithSection{first}); err != nil {
			t.Fatalf("First SaveMembers failed: %v", err)
		}
		if err := s.SaveMembers(ctx, []int{secondSection}, []models.MemberWithSection{second}); err != nil {
			t.Fatalf("Second SaveMembers failed: %v", err)
		}
		m, err := s.GetMember(ctx, 10)
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		return *m
	}

	ab := ingest(t, gridA, gridB, 1, 2)
	ba := ingest(t, gridB, gridA, 2, 1)

	if !ab.ContentEquals(ba) {
		t.Errorf("Expected merge order not to matter, got\nA-then-B: %+v\nB-then-A: %+v", ab, ba)
	}
}

func testMemberLinksReplacedPerScope(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if err := s.SaveMembers(ctx, []int{1}, []models.MemberWithSection{
		memberRow(10, "Alex", "Reed", 1, nil),
		memberRow(11, "Brook", "Stone", 1, nil),
	}); err != nil {
		t.Fatalf("SaveMembers failed: %v", err)
	}

	// The next grid for section 1 no longer includes scout 11.
	if err := s.SaveMembers(ctx, []int{1}, []models.MemberWithSection{
		memberRow(10, "Alex", "Reed", 1, nil),
	}); err != nil {
		t.Fatalf("SaveMembers replace failed: %v", err)
	}

	got, err := s.GetMembers(ctx, 1)
	if err != nil {
		t.Fatalf("GetMembers failed: %v", err)
	}
	if len(got) != 1 || got[0].Member.ScoutID != 10 {
		t.Errorf("Expected only scout 10 linked after replace, got %+v", got)
	}

	// The core member record is additive and survives losing its link.
	if _, err := s.GetMember(ctx, 11); err != nil {
		t.Errorf("Expected scout 11 core record retained, got %v", err)
	}
}

func testMemberLocalEditDeepMerges(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	row := memberRow(10, "Alex", "Reed", 1, map[string]interface{}{
		"consents": map[string]interface{}{"photos": "yes"},
	})
	if err := s.SaveMembers(ctx, []int{1}, []models.MemberWithSection{row}); err != nil {
		t.Fatalf("SaveMembers failed: %v", err)
	}

	updated, err := s.RecordLocalMemberEdit(ctx, 10, map[string]interface{}{
		"consents": map[string]interface{}{"swimming": "no"},
	})
	if err != nil {
		t.Fatalf("RecordLocalMemberEdit failed: %v", err)
	}

	consents, ok := updated.FlattenedFields["consents"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected nested consents map, got %+v", updated.FlattenedFields)
	}
	if consents["photos"] != "yes" || consents["swimming"] != "no" {
		t.Errorf("Expected deep merge to keep both keys, got %+v", consents)
	}
	if !updated.IsLocallyModified {
		t.Error("Expected local-modification flag set")
	}
	if updated.LocalVersion != 2 {
		t.Errorf("Expected local version 2 after one edit, got %d", updated.LocalVersion)
	}

	stored, err := s.GetMember(ctx, 10)
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if !stored.ContentEquals(*updated) {
		t.Errorf("Expected stored member to match returned one, got %+v vs %+v", stored, updated)
	}

	if _, err := s.RecordLocalMemberEdit(ctx, 99, map[string]interface{}{"x": 1}); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFound editing unknown member, got %v", err)
	}
}

func testSharedEventMetadataRoundTrip(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	meta := models.SharedEventMetadata{
		EventID:        "E1",
		IsShared:       true,
		OwnerSectionID: 1,
		SectionIDs:     []int{1, 2},
	}
	if err := s.SaveSharedEventMetadata(ctx, meta); err != nil {
		t.Fatalf("SaveSharedEventMetadata failed: %v", err)
	}

	got, err := s.GetSharedEventMetadata(ctx, "E1")
	if err != nil {
		t.Fatalf("GetSharedEventMetadata failed: %v", err)
	}
	if !got.IsShared || got.OwnerSectionID != 1 || !reflect.DeepEqual(got.SectionIDs, []int{1, 2}) {
		t.Errorf("Expected metadata round-trip, got %+v", got)
	}

	// Re-detection overwrites in place.
	meta.SectionIDs = []int{1, 2, 3}
	if err := s.SaveSharedEventMetadata(ctx, meta); err != nil {
		t.Fatalf("SaveSharedEventMetadata update failed: %v", err)
	}
	got, err = s.GetSharedEventMetadata(ctx, "E1")
	if err != nil {
		t.Fatalf("GetSharedEventMetadata after update failed: %v", err)
	}
	if !reflect.DeepEqual(got.SectionIDs, []int{1, 2, 3}) {
		t.Errorf("Expected updated section ids, got %v", got.SectionIDs)
	}

	if _, err := s.GetSharedEventMetadata(ctx, "E9"); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFound for unknown event, got %v", err)
	}
}

func testFlexiRoundTrip(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if err := s.SaveFlexiLists(ctx, 1, []models.FlexiList{
		{SectionID: 1, ExtraID: "72", Name: "Sign In/Out"},
		{SectionID: 1, ExtraID: "73", Name: "Section Movers"},
	}); err != nil {
		t.Fatalf("SaveFlexiLists failed: %v", err)
	}
	lists, err := s.GetFlexiLists(ctx, 1)
	if err != nil {
		t.Fatalf("GetFlexiLists failed: %v", err)
	}
	if len(lists) != 2 || lists[0].Name != "Section Movers" {
		t.Errorf("Expected 2 name-sorted lists, got %+v", lists)
	}

	structure := models.FlexiStructure{
		ExtraID: "72",
		Name:    "Sign In/Out",
		Config:  map[string]interface{}{"shared": float64(1)},
		Fields: []models.FlexiField{
			{FieldID: "f_1", Name: "Signed In"},
			{FieldID: "f_2", Name: "Signed Out"},
		},
	}
	if err := s.SaveFlexiStructure(ctx, structure); err != nil {
		t.Fatalf("SaveFlexiStructure failed: %v", err)
	}
	st, err := s.GetFlexiStructure(ctx, "72")
	if err != nil {
		t.Fatalf("GetFlexiStructure failed: %v", err)
	}
	if len(st.Fields) != 2 || st.Fields[0].FieldID != "f_1" {
		t.Errorf("Expected structure fields round-trip, got %+v", st.Fields)
	}
	if _, err := s.GetFlexiStructure(ctx, "99"); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFound for unknown structure, got %v", err)
	}

	rows := []models.FlexiData{
		{ExtraID: "72", SectionID: 1, TermID: "t1", ScoutID: 2, FirstName: "Brook", LastName: "Stone",
			Fields: map[string]interface{}{"f_1": "09:05"}},
		{ExtraID: "72", SectionID: 1, TermID: "t1", ScoutID: 1, FirstName: "Alex", LastName: "Reed",
			Fields: map[string]interface{}{"f_1": "09:02"}},
	}
	if err := s.SaveFlexiData(ctx, "72", 1, "t1", rows); err != nil {
		t.Fatalf("SaveFlexiData failed: %v", err)
	}
	data, err := s.GetFlexiData(ctx, "72", 1, "t1")
	if err != nil {
		t.Fatalf("GetFlexiData failed: %v", err)
	}
	if len(data) != 2 || data[0].LastName != "Reed" {
		t.Errorf("Expected 2 name-sorted rows, got %+v", data)
	}
	if data[0].Fields["f_1"] != "09:02" {
		t.Errorf("Expected opaque columns preserved, got %+v", data[0].Fields)
	}

	// Replacing one scope leaves a sibling term alone.
	if err := s.SaveFlexiData(ctx, "72", 1, "t2", []models.FlexiData{
		{ExtraID: "72", SectionID: 1, TermID: "t2", ScoutID: 1, FirstName: "Alex", LastName: "Reed"},
	}); err != nil {
		t.Fatalf("SaveFlexiData t2 failed: %v", err)
	}
	if err := s.SaveFlexiData(ctx, "72", 1, "t1", nil); err != nil {
		t.Fatalf("SaveFlexiData clear failed: %v", err)
	}
	data, err = s.GetFlexiData(ctx, "72", 1, "t1")
	if err != nil {
		t.Fatalf("GetFlexiData after clear failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected cleared scope to be empty, got %+v", data)
	}
	other, err := s.GetFlexiData(ctx, "72", 1, "t2")
	if err != nil {
		t.Fatalf("GetFlexiData t2 failed: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("Expected sibling term untouched, got %+v", other)
	}
}

func testSyncStatusRoundTrip(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	at := time.Date(2026, 8, 20, 19, 30, 0, 0, time.UTC)
	if err := s.SetSyncStatus(ctx, models.SyncStatus{TableName: "events", LastSyncAt: at, NeedsSync: false}); err != nil {
		t.Fatalf("SetSyncStatus failed: %v", err)
	}

	got, err := s.GetSyncStatus(ctx, "events")
	if err != nil {
		t.Fatalf("GetSyncStatus failed: %v", err)
	}
	if !got.LastSyncAt.Equal(at) || got.NeedsSync {
		t.Errorf("Expected status round-trip, got %+v", got)
	}

	if err := s.SetSyncStatus(ctx, models.SyncStatus{TableName: "events", LastSyncAt: at, NeedsSync: true}); err != nil {
		t.Fatalf("SetSyncStatus update failed: %v", err)
	}
	got, err = s.GetSyncStatus(ctx, "events")
	if err != nil {
		t.Fatalf("GetSyncStatus after update failed: %v", err)
	}
	if !got.NeedsSync {
		t.Error("Expected needs_sync flag updated")
	}

	if _, err := s.GetSyncStatus(ctx, "members"); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFound for untouched table, got %v", err)
	}
}

func testPageCacheRoundTrip(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	entry := models.PageCacheEntry{
		CacheKey: "viking_startup_data_offline",
		Payload:  []byte(`{"roles":[{"section_id":1}]}`),
		CachedAt: time.Date(2026, 8, 20, 19, 30, 0, 0, time.UTC),
	}
	if err := s.SetPageCache(ctx, entry); err != nil {
		t.Fatalf("SetPageCache failed: %v", err)
	}

	got, err := s.GetPageCache(ctx, entry.CacheKey)
	if err != nil {
		t.Fatalf("GetPageCache failed: %v", err)
	}
	if string(got.Payload) != string(entry.Payload) {
		t.Errorf("Expected payload round-trip, got %s", got.Payload)
	}
	if !got.CachedAt.Equal(entry.CachedAt) {
		t.Errorf("Expected cached_at %v, got %v", entry.CachedAt, got.CachedAt)
	}

	if err := s.DeletePageCache(ctx, entry.CacheKey); err != nil {
		t.Fatalf("DeletePageCache failed: %v", err)
	}
	if _, err := s.GetPageCache(ctx, entry.CacheKey); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFound after delete, got %v", err)
	}
	if err := s.DeletePageCache(ctx, entry.CacheKey); err != nil {
		t.Errorf("Expected deleting an absent key to succeed, got %v", err)
	}
}

func testDemoRowsFiltered(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if err := s.SaveSections(ctx, []models.Section{
		section(1, "1st Walton Beavers"),
		section(3, "Demo Beavers"),
	}); err != nil {
		t.Fatalf("SaveSections failed: %v", err)
	}
	sections, err := s.GetSections(ctx)
	if err != nil {
		t.Fatalf("GetSections failed: %v", err)
	}
	if len(sections) != 1 || sections[0].SectionID != 1 {
		t.Errorf("Expected demo section filtered out, got %+v", sections)
	}

	if err := s.SaveEvents(ctx, 1, []models.Event{
		event("E1", 1, "Camp Weekend", "2024-07-20"),
		event("demo_e1", 1, "Evening Meeting", "2024-07-21"),
	}); err != nil {
		t.Fatalf("SaveEvents failed: %v", err)
	}
	events, err := s.GetEvents(ctx, 1)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].EventID != "E1" {
		t.Errorf("Expected demo-keyed event filtered out, got %+v", events)
	}
	if _, err := s.GetEvent(ctx, "demo_e1"); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFound for demo event outside demo mode, got %v", err)
	}

	if err := s.SetPageCache(ctx, models.PageCacheEntry{
		CacheKey: "demo_viking_startup_data_offline",
		Payload:  []byte(`{}`),
		CachedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SetPageCache failed: %v", err)
	}
	if _, err := s.GetPageCache(ctx, "demo_viking_startup_data_offline"); !errs.IsNotFound(err) {
		t.Errorf("Expected demo cache key dropped outside demo mode, got %v", err)
	}
}

func testDemoModeKeepsDemoRows(t *testing.T, open Factory) {
	s := open(t, true)
	ctx := context.Background()

	if err := s.SaveSections(ctx, []models.Section{section(3, "Demo Beavers")}); err != nil {
		t.Fatalf("SaveSections failed: %v", err)
	}
	sections, err := s.GetSections(ctx)
	if err != nil {
		t.Fatalf("GetSections failed: %v", err)
	}
	if len(sections) != 1 || sections[0].Name != "Demo Beavers" {
		t.Errorf("Expected demo fixtures visible in demo mode, got %+v", sections)
	}
}

func testEmptyStoreReaders(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	sections, err := s.GetSections(ctx)
	if err != nil || len(sections) != 0 {
		t.Errorf("Expected empty sections without error, got %v / %+v", err, sections)
	}
	terms, err := s.GetTerms(ctx, 1)
	if err != nil || len(terms) != 0 {
		t.Errorf("Expected empty terms without error, got %v / %+v", err, terms)
	}
	events, err := s.GetEvents(ctx, 1)
	if err != nil || len(events) != 0 {
		t.Errorf("Expected empty events without error, got %v / %+v", err, events)
	}
	attendance, err := s.GetAttendance(ctx, "E1")
	if err != nil || len(attendance) != 0 {
		t.Errorf("Expected empty attendance without error, got %v / %+v", err, attendance)
	}
	members, err := s.GetMembers(ctx, 1)
	if err != nil || len(members) != 0 {
		t.Errorf("Expected empty members without error, got %v / %+v", err, members)
	}

	if _, err := s.GetEvent(ctx, "E1"); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFound for unknown event, got %v", err)
	}
	if _, err := s.GetMember(ctx, 1); !errs.IsNotFound(err) {
		t.Errorf("Expected NotFound for unknown member, got %v", err)
	}
}

func testOfflineDataLifecycle(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	ok, err := s.HasOfflineData(ctx)
	if err != nil {
		t.Fatalf("HasOfflineData failed: %v", err)
	}
	if ok {
		t.Error("Expected no offline data in a fresh store")
	}

	if err := s.SaveSections(ctx, []models.Section{section(1, "1st Walton Beavers")}); err != nil {
		t.Fatalf("SaveSections failed: %v", err)
	}
	if err := s.SetSyncStatus(ctx, models.SyncStatus{TableName: "sections", LastSyncAt: time.Now().UTC()}); err != nil {
		t.Fatalf("SetSyncStatus failed: %v", err)
	}

	ok, err = s.HasOfflineData(ctx)
	if err != nil {
		t.Fatalf("HasOfflineData after save failed: %v", err)
	}
	if !ok {
		t.Error("Expected offline data after a sync")
	}

	if err := s.PurgeCachedData(ctx); err != nil {
		t.Fatalf("PurgeCachedData failed: %v", err)
	}

	ok, err = s.HasOfflineData(ctx)
	if err != nil {
		t.Fatalf("HasOfflineData after purge failed: %v", err)
	}
	if ok {
		t.Error("Expected no offline data after purge")
	}
	sections, err := s.GetSections(ctx)
	if err != nil || len(sections) != 0 {
		t.Errorf("Expected empty sections after purge, got %v / %+v", err, sections)
	}
	if _, err := s.GetSyncStatus(ctx, "sections"); !errs.IsNotFound(err) {
		t.Errorf("Expected sync status purged, got %v", err)
	}
}

func testStatsCountsRows(t *testing.T, open Factory) {
	s := open(t, false)
	ctx := context.Background()

	if err := s.SaveSections(ctx, []models.Section{section(1, "1st Walton Beavers"), section(2, "1st Walton Cubs")}); err != nil {
		t.Fatalf("SaveSections failed: %v", err)
	}
	if err := s.SaveEvents(ctx, 1, []models.Event{event("E1", 1, "Camp Weekend", "2024-07-20")}); err != nil {
		t.Fatalf("SaveEvents failed: %v", err)
	}
	if err := s.SaveAttendance(ctx, "E1", []models.Attendance{
		attendanceRow("E1", 1, "Reed", "yes"),
		attendanceRow("E1", 2, "Stone", "no"),
	}); err != nil {
		t.Fatalf("SaveAttendance failed: %v", err)
	}
	if err := s.SaveMembers(ctx, []int{1}, []models.MemberWithSection{memberRow(10, "Alex", "Reed", 1, nil)}); err != nil {
		t.Fatalf("SaveMembers failed: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Sections != 2 {
		t.Errorf("Expected 2 sections, got %d", stats.Sections)
	}
	if stats.Events != 1 {
		t.Errorf("Expected 1 event, got %d", stats.Events)
	}
	if stats.Attendance != 2 {
		t.Errorf("Expected 2 attendance rows, got %d", stats.Attendance)
	}
	if stats.Members != 1 || stats.MemberSections != 1 {
		t.Errorf("Expected 1 member and 1 link, got %d/%d", stats.Members, stats.MemberSections)
	}
	if stats.Backend != s.Backend() {
		t.Errorf("Expected stats backend %q to match Backend() %q", stats.Backend, s.Backend())
	}
}
