// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package validation

import (
	"bytes"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models/osm"
)

// Closed-kind parsers. Each takes one raw upstream payload and returns the
// canonical records plus the per-element failures. Invalid elements are
// dropped, never the batch: one malformed row must not cost the section its
// whole listing. A nil record slice with a single-element error list means
// the payload itself did not decode.

// rawEnvelope holds the elements of any of the upstream listing shapes
// without committing to a type. Listings arrive bare ("[...]") or wrapped
// under "items" or "data"; absent and non-array wrappers count as empty.
type rawEnvelope struct {
	Items json.RawMessage `json:"items"`
	Data  json.RawMessage `json:"data"`
}

func decodeElements(op string, data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errs.New(errs.Validation, op, "empty payload")
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errs.Wrap(errs.Validation, op, "decoding payload array", err)
		}
		return items, nil
	}

	var env rawEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errs.Wrap(errs.Validation, op, "decoding payload envelope", err)
	}
	for _, wrapped := range []json.RawMessage{env.Items, env.Data} {
		elems, ok := arrayElements(wrapped)
		if ok {
			return elems, nil
		}
	}
	return nil, nil
}

func arrayElements(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

func elementErr(op string, i int, err error) error {
	return errs.Wrap(errs.Validation, op, "item "+strconv.Itoa(i), err)
}

// normalizeDate reduces upstream date forms to "YYYY-MM-DD". Timestamps
// with a time suffix keep only the date part; anything else passes through
// for the validator to judge.
func normalizeDate(s string) string {
	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	return s
}

// ParseSections decodes a user-roles payload into the sections the
// signed-in leader can access. Duplicate roles for one section collapse to
// the first occurrence.
func ParseSections(data []byte) ([]models.Section, []error) {
	const op = "validation.ParseSections"

	raws, err := decodeElements(op, data)
	if err != nil {
		return nil, []error{err}
	}

	audit := newAuditor(kindSections)
	defer audit.flush()

	seen := make(map[int]struct{}, len(raws))
	sections := make([]models.Section, 0, len(raws))
	var failures []error
	for i, raw := range raws {
		audit.observe(raw)

		var role osm.Role
		if err := json.Unmarshal(raw, &role); err != nil {
			failures = append(failures, elementErr(op, i, err))
			continue
		}

		section := models.Section{
			SectionID:   role.SectionID.Int(),
			Name:        role.SectionName,
			SectionType: role.SectionType,
		}
		if verr := ValidateStruct(section); verr != nil {
			failures = append(failures, elementErr(op, i, verr))
			continue
		}
		if _, dup := seen[section.SectionID]; dup {
			continue
		}
		seen[section.SectionID] = struct{}{}
		sections = append(sections, section)
	}
	return sections, failures
}

// ParseTerms decodes the terms payload, a map of section id to term list,
// into canonical terms grouped by section. The payload's own sectionid wins
// over the map key when both are present.
func ParseTerms(data []byte) (map[int][]models.Term, []error) {
	const op = "validation.ParseTerms"

	var grouped map[string][]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &grouped); err != nil {
		return nil, []error{errs.Wrap(errs.Validation, op, "decoding terms map", err)}
	}

	audit := newAuditor(kindTerms)
	defer audit.flush()

	out := make(map[int][]models.Term, len(grouped))
	var failures []error
	for key, raws := range grouped {
		keyID, keyErr := strconv.Atoi(key)
		for i, raw := range raws {
			audit.observe(raw)

			var term osm.Term
			if err := json.Unmarshal(raw, &term); err != nil {
				failures = append(failures, elementErr(op, i, err))
				continue
			}

			sectionID := term.SectionID.Int()
			if sectionID == 0 {
				if keyErr != nil {
					failures = append(failures, errs.Newf(errs.Validation, op,
						"term %q: no section id on row or key %q", term.TermID.String(), key))
					continue
				}
				sectionID = keyID
			}

			canonical := models.Term{
				TermID:    term.TermID.String(),
				SectionID: sectionID,
				Name:      term.Name,
				StartDate: normalizeDate(term.StartDate),
				EndDate:   normalizeDate(term.EndDate),
			}
			if verr := ValidateStruct(canonical); verr != nil {
				failures = append(failures, elementErr(op, i, verr))
				continue
			}
			out[sectionID] = append(out[sectionID], canonical)
		}
	}

	for id := range out {
		terms := out[id]
		sort.Slice(terms, func(a, b int) bool {
			if terms[a].StartDate != terms[b].StartDate {
				return terms[a].StartDate < terms[b].StartDate
			}
			return terms[a].TermID < terms[b].TermID
		})
	}
	return out, failures
}

// ParseEvents decodes a (section, term) events listing. The caller's
// sectionID and termID fill rows the upstream left unscoped.
func ParseEvents(sectionID int, termID string, data []byte) ([]models.Event, []error) {
	const op = "validation.ParseEvents"

	raws, err := decodeElements(op, data)
	if err != nil {
		return nil, []error{err}
	}

	audit := newAuditor(kindEvents)
	defer audit.flush()

	events := make([]models.Event, 0, len(raws))
	var failures []error
	for i, raw := range raws {
		audit.observe(raw)

		var ev osm.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			failures = append(failures, elementErr(op, i, err))
			continue
		}

		start := ev.StartDate
		if start == "" {
			start = ev.Date
		}
		canonical := models.Event{
			EventID:   ev.EventID.String(),
			SectionID: ev.SectionID.Int(),
			TermID:    ev.TermID.String(),
			Name:      ev.Name,
			StartDate: normalizeDate(start),
			EndDate:   normalizeDate(ev.EndDate),
			StartTime: ev.StartTime,
			EndTime:   ev.EndTime,
			Location:  ev.Location,
			Notes:     ev.Notes,
		}
		if canonical.SectionID == 0 {
			canonical.SectionID = sectionID
		}
		if canonical.TermID == "" {
			canonical.TermID = termID
		}
		if verr := ValidateStruct(canonical); verr != nil {
			failures = append(failures, elementErr(op, i, verr))
			continue
		}
		events = append(events, canonical)
	}
	return events, failures
}

// ParseAttendance decodes a per-event attendance listing into regular
// (non-shared) attendance rows scoped to eventID and sectionID.
func ParseAttendance(eventID string, sectionID int, data []byte) ([]models.Attendance, []error) {
	const op = "validation.ParseAttendance"

	raws, err := decodeElements(op, data)
	if err != nil {
		return nil, []error{err}
	}

	audit := newAuditor(kindAttendance)
	defer audit.flush()

	rows := make([]models.Attendance, 0, len(raws))
	var failures []error
	for i, raw := range raws {
		audit.observe(raw)

		var att osm.Attendance
		if err := json.Unmarshal(raw, &att); err != nil {
			failures = append(failures, elementErr(op, i, err))
			continue
		}

		canonical := models.Attendance{
			EventID:   att.EventID.String(),
			ScoutID:   att.ScoutID.Int(),
			SectionID: att.SectionID.Int(),
			FirstName: att.FirstName,
			LastName:  att.LastName,
			Attending: att.Attending,
			Patrol:    att.Patrol,
			Notes:     att.Notes,
		}
		if canonical.EventID == "" {
			canonical.EventID = eventID
		}
		if canonical.SectionID == 0 {
			canonical.SectionID = sectionID
		}
		if verr := ValidateStruct(canonical); verr != nil {
			failures = append(failures, elementErr(op, i, verr))
			continue
		}
		rows = append(rows, canonical)
	}
	return rows, failures
}

// ParseSharedAttendance decodes the cross-section attendance listing of a
// shared event. Rows keep the section id the upstream reported for them and
// are flagged as shared-section rows so the regular partition is untouched.
func ParseSharedAttendance(eventID string, data []byte) ([]models.Attendance, []error) {
	const op = "validation.ParseSharedAttendance"

	var env struct {
		Combined json.RawMessage `json:"combined_attendance"`
		Items    json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(data), &env); err != nil {
		return nil, []error{errs.Wrap(errs.Validation, op, "decoding payload envelope", err)}
	}
	raws, ok := arrayElements(env.Combined)
	if !ok {
		raws, _ = arrayElements(env.Items)
	}

	audit := newAuditor(kindSharedAttend)
	defer audit.flush()

	rows := make([]models.Attendance, 0, len(raws))
	var failures []error
	for i, raw := range raws {
		audit.observe(raw)

		var att osm.SharedAttendee
		if err := json.Unmarshal(raw, &att); err != nil {
			failures = append(failures, elementErr(op, i, err))
			continue
		}

		canonical := models.Attendance{
			EventID:         eventID,
			ScoutID:         att.ScoutID.Int(),
			SectionID:       att.SectionID.Int(),
			FirstName:       att.FirstName,
			LastName:        att.LastName,
			Attending:       att.Attending,
			Patrol:          att.Patrol,
			IsSharedSection: true,
		}
		if verr := ValidateStruct(canonical); verr != nil {
			failures = append(failures, elementErr(op, i, verr))
			continue
		}
		rows = append(rows, canonical)
	}
	return rows, failures
}

// ParseFlexiLists decodes a section's FlexiRecord catalog.
func ParseFlexiLists(sectionID int, data []byte) ([]models.FlexiList, []error) {
	const op = "validation.ParseFlexiLists"

	raws, err := decodeElements(op, data)
	if err != nil {
		return nil, []error{err}
	}

	audit := newAuditor(kindFlexiLists)
	defer audit.flush()

	lists := make([]models.FlexiList, 0, len(raws))
	var failures []error
	for i, raw := range raws {
		audit.observe(raw)

		var fl osm.FlexiList
		if err := json.Unmarshal(raw, &fl); err != nil {
			failures = append(failures, elementErr(op, i, err))
			continue
		}

		canonical := models.FlexiList{
			SectionID: sectionID,
			ExtraID:   fl.ExtraID.String(),
			Name:      fl.Name,
		}
		if verr := ValidateStruct(canonical); verr != nil {
			failures = append(failures, elementErr(op, i, verr))
			continue
		}
		lists = append(lists, canonical)
	}
	return lists, failures
}

// ParseFlexiStructure decodes one FlexiRecord schema. Column rows are
// flattened out of their display blocks; the config string, itself
// JSON-encoded, is decoded when present and a bad config is reported
// without discarding the structure.
func ParseFlexiStructure(extraID string, data []byte) (*models.FlexiStructure, []error) {
	const op = "validation.ParseFlexiStructure"

	trimmed := bytes.TrimSpace(data)
	var st osm.FlexiStructure
	if err := json.Unmarshal(trimmed, &st); err != nil {
		return nil, []error{errs.Wrap(errs.Validation, op, "decoding structure", err)}
	}

	audit := newAuditor(kindFlexiStructure)
	audit.observe(trimmed)
	audit.flush()

	canonical := &models.FlexiStructure{
		ExtraID: st.ExtraID.String(),
		Name:    st.Name,
	}
	if canonical.ExtraID == "" {
		canonical.ExtraID = extraID
	}

	seen := make(map[string]struct{})
	addField := func(f models.FlexiField) {
		if f.FieldID == "" {
			return
		}
		if _, dup := seen[f.FieldID]; dup {
			return
		}
		seen[f.FieldID] = struct{}{}
		canonical.Fields = append(canonical.Fields, f)
	}

	for _, block := range st.Structure {
		for _, row := range block.Rows {
			addField(models.FlexiField{FieldID: row.FieldID, Name: row.Name, Width: row.Width})
		}
	}

	// The config string decodes to either an object or an array of column
	// definitions ({"id": "f_1", "name": ..., "width": ...}).
	var failures []error
	if st.Config != "" {
		var cfg interface{}
		if err := json.Unmarshal([]byte(st.Config), &cfg); err != nil {
			failures = append(failures, errs.Wrap(errs.Validation, op, "decoding config", err))
		} else {
			switch t := cfg.(type) {
			case map[string]interface{}:
				canonical.Config = t
			case []interface{}:
				for _, el := range t {
					col := asMap(el)
					if col == nil {
						continue
					}
					addField(models.FlexiField{
						FieldID: asString(col["id"]),
						Name:    asString(col["name"]),
						Width:   asString(col["width"]),
					})
				}
			}
		}
	}
	return canonical, failures
}
