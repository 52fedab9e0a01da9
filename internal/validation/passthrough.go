// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package validation

import (
	"bytes"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// Open-kind parsers. Member grids and FlexiData rows carry org-configured
// columns that cannot be enumerated ahead of time, so these decode into
// maps, lift the keys the domain model names, and preserve every other
// column verbatim. No extra-field audit runs here.

// gridMemberKeys are the row keys the member mapper consumes. Everything
// else lands in FlattenedFields untouched.
var gridMemberKeys = fieldSet(
	"scoutid", "scout_id", "member_id",
	"firstname", "first_name", "lastname", "last_name",
	"dob", "date_of_birth", "age", "photo_guid",
	"contact_groups", "custom_data", "read_only",
	"sectionid", "section_id",
	"patrol", "patrolid", "patrol_role", "patrolrole", "person_type",
	"started", "joined", "ended", "end_date", "active",
)

// flexiRowKeys are the FlexiData row keys lifted onto the typed record.
var flexiRowKeys = fieldSet(
	"scoutid", "scout_id", "firstname", "lastname", "sectionid", "termid", "extraid",
)

func firstPresent(row map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// decodeRows accepts the grid payload shapes: a bare array, rows under
// "items" or "data", or a "data" object keyed by id. Keyed rows come back
// in key order so repeated ingests are deterministic.
func decodeRows(op string, data []byte) ([]map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errs.New(errs.Validation, op, "empty payload")
	}

	if trimmed[0] == '[' {
		var rows []map[string]interface{}
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, errs.Wrap(errs.Validation, op, "decoding row array", err)
		}
		return rows, nil
	}

	var env rawEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errs.Wrap(errs.Validation, op, "decoding payload envelope", err)
	}
	for _, wrapped := range []json.RawMessage{env.Items, env.Data} {
		inner := bytes.TrimSpace(wrapped)
		if len(inner) == 0 {
			continue
		}
		switch inner[0] {
		case '[':
			var rows []map[string]interface{}
			if err := json.Unmarshal(inner, &rows); err != nil {
				return nil, errs.Wrap(errs.Validation, op, "decoding row array", err)
			}
			return rows, nil
		case '{':
			var keyed map[string]map[string]interface{}
			if err := json.Unmarshal(inner, &keyed); err != nil {
				return nil, errs.Wrap(errs.Validation, op, "decoding keyed rows", err)
			}
			keys := make([]string, 0, len(keyed))
			for k := range keyed {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			rows := make([]map[string]interface{}, 0, len(keys))
			for _, k := range keys {
				if keyed[k] != nil {
					rows = append(rows, keyed[k])
				}
			}
			return rows, nil
		}
	}
	return nil, nil
}

// ParseMemberGrid decodes one section's member grid into member records
// paired with their section links. Core identity fields are coerced; the
// contact_groups and custom_data blobs and every unrecognized column are
// preserved verbatim so org-configured fields survive the round trip.
func ParseMemberGrid(sectionID int, data []byte) ([]models.MemberWithSection, []error) {
	const op = "validation.ParseMemberGrid"

	rows, err := decodeRows(op, data)
	if err != nil {
		return nil, []error{err}
	}

	out := make([]models.MemberWithSection, 0, len(rows))
	var failures []error
	for i, row := range rows {
		scoutID, ok := asInt(firstPresent(row, "scoutid", "scout_id", "member_id"))
		if !ok || scoutID == 0 {
			failures = append(failures, errs.Newf(errs.Validation, op, "row %d: missing scout id", i))
			continue
		}

		member := models.Member{
			ScoutID:       scoutID,
			FirstName:     asString(firstPresent(row, "firstname", "first_name")),
			LastName:      asString(firstPresent(row, "lastname", "last_name")),
			DateOfBirth:   normalizeDate(asString(firstPresent(row, "dob", "date_of_birth"))),
			Age:           asString(row["age"]),
			PhotoGUID:     asString(row["photo_guid"]),
			ContactGroups: asMap(row["contact_groups"]),
			CustomData:    asMap(row["custom_data"]),
			ReadOnly:      asStringSlice(row["read_only"]),
		}

		for key, value := range row {
			if _, known := gridMemberKeys[key]; known {
				continue
			}
			if member.FlattenedFields == nil {
				member.FlattenedFields = make(map[string]interface{})
			}
			member.FlattenedFields[key] = value
		}

		linkSection := sectionID
		if id, ok := asInt(firstPresent(row, "sectionid", "section_id")); ok && id != 0 {
			linkSection = id
		}
		link := models.MemberSection{
			ScoutID:    scoutID,
			SectionID:  linkSection,
			PersonType: asString(row["person_type"]),
			Patrol:     asString(firstPresent(row, "patrol", "patrolid")),
			PatrolRole: asString(firstPresent(row, "patrol_role", "patrolrole")),
			StartedAt:  normalizeDate(asString(row["started"])),
			JoinedAt:   normalizeDate(asString(row["joined"])),
			EndedAt:    normalizeDate(asString(firstPresent(row, "ended", "end_date"))),
			Active:     true,
		}
		if v, present := row["active"]; present {
			link.Active = asBool(v)
		}

		if verr := ValidateStruct(member); verr != nil {
			failures = append(failures, elementErr(op, i, verr))
			continue
		}
		out = append(out, models.MemberWithSection{Member: member, Section: link})
	}
	return out, failures
}

// ParseFlexiData decodes one FlexiRecord's data rows for a (section, term)
// scope. Column cells (f_1, f_2, ...) pass through verbatim under Fields.
func ParseFlexiData(extraID string, sectionID int, termID string, data []byte) ([]models.FlexiData, []error) {
	const op = "validation.ParseFlexiData"

	rows, err := decodeRows(op, data)
	if err != nil {
		return nil, []error{err}
	}

	out := make([]models.FlexiData, 0, len(rows))
	var failures []error
	for i, row := range rows {
		scoutID, ok := asInt(firstPresent(row, "scoutid", "scout_id"))
		if !ok || scoutID == 0 {
			failures = append(failures, errs.Newf(errs.Validation, op, "row %d: missing scout id", i))
			continue
		}

		record := models.FlexiData{
			ExtraID:   extraID,
			SectionID: sectionID,
			TermID:    termID,
			ScoutID:   scoutID,
			FirstName: asString(row["firstname"]),
			LastName:  asString(row["lastname"]),
		}
		for key, value := range row {
			if _, known := flexiRowKeys[key]; known {
				continue
			}
			if record.Fields == nil {
				record.Fields = make(map[string]interface{})
			}
			record.Fields[key] = value
		}
		out = append(out, record)
	}
	return out, failures
}
