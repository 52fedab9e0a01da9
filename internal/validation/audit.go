// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package validation

import (
	"sort"

	json "github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
)

// Entity kinds handled by the boundary. Closed kinds carry an allow-list
// and are audited; open kinds (member grid, FlexiData) pass unknown
// columns through instead.
const (
	kindSections       = "sections"
	kindTerms          = "terms"
	kindEvents         = "events"
	kindAttendance     = "attendance"
	kindSharedAttend   = "shared_attendance"
	kindFlexiLists     = "flexi_lists"
	kindFlexiStructure = "flexi_structure"
	kindMemberGrid     = "member_grid"
	kindFlexiData      = "flexi_data"
)

// allowedFields lists the upstream JSON keys each closed kind is expected
// to carry. Anything else is reported by the audit and dropped.
var allowedFields = map[string]map[string]struct{}{
	kindSections: fieldSet(
		"sectionid", "sectionname", "section", "groupname", "isDefault",
		"permissions", "groupid", "groupnormalised",
	),
	kindTerms: fieldSet(
		"termid", "sectionid", "name", "startdate", "enddate",
		"master_term", "past",
	),
	kindEvents: fieldSet(
		"eventid", "sectionid", "termid", "name", "startdate", "enddate",
		"starttime", "endtime", "location", "notes", "cost", "attendancelimit",
		"attendancereminder", "approvalrequired", "date",
	),
	kindAttendance: fieldSet(
		"scoutid", "eventid", "sectionid", "firstname", "lastname",
		"attending", "patrolid", "notes", "dob", "payment",
	),
	kindSharedAttend: fieldSet(
		"scoutid", "eventid", "sectionid", "sectionname", "firstname",
		"lastname", "attending", "patrolid", "groupname",
	),
	kindFlexiLists: fieldSet(
		"extraid", "name",
	),
	kindFlexiStructure: fieldSet(
		"extraid", "sectionid", "name", "config", "structure", "archived",
	),
}

func fieldSet(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// auditor accumulates unknown field names seen while decoding one batch of
// a closed kind. A batch produces at most one warning, listing every field
// name and how many elements carried at least one of them.
type auditor struct {
	kind     string
	unknown  map[string]struct{}
	elements int
}

func newAuditor(kind string) *auditor {
	return &auditor{kind: kind, unknown: make(map[string]struct{})}
}

// observe diffs one raw element's keys against the kind's allow-list.
// Elements that do not decode as objects are left for the typed decoder to
// reject.
func (a *auditor) observe(raw json.RawMessage) {
	allowed, ok := allowedFields[a.kind]
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return
	}

	hit := false
	for name := range fields {
		if _, known := allowed[name]; !known {
			a.unknown[name] = struct{}{}
			hit = true
		}
	}
	if hit {
		a.elements++
	}
}

// flush emits the batch's single warning, if any fields were unknown.
func (a *auditor) flush() {
	if len(a.unknown) == 0 {
		return
	}

	names := make([]string, 0, len(a.unknown))
	for name := range a.unknown {
		names = append(names, name)
	}
	sort.Strings(names)

	logging.Warn().
		Str("kind", a.kind).
		Strs("fields", names).
		Int("elements", a.elements).
		Msg("Dropping unrecognized fields from upstream payload")
}
