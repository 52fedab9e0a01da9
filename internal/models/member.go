// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

import "reflect"

// Member is the aggregated record for one young person or adult. A member
// can belong to several sections whose grids are fetched asynchronously, so
// members accumulate by merge rather than replace; section links live in
// MemberSection rows.
//
// ContactGroups, CustomData, and FlattenedFields are opaque upstream maps
// preserved verbatim (the passthrough policy of the validation boundary).
type Member struct {
	ScoutID         int                    `json:"scout_id" validate:"required"`
	FirstName       string                 `json:"first_name"`
	LastName        string                 `json:"last_name"`
	DateOfBirth     string                 `json:"date_of_birth,omitempty"`
	Age             string                 `json:"age,omitempty"`
	PhotoGUID       string                 `json:"photo_guid,omitempty"`
	ContactGroups   map[string]interface{} `json:"contact_groups,omitempty"`
	CustomData      map[string]interface{} `json:"custom_data,omitempty"`
	FlattenedFields map[string]interface{} `json:"flattened_fields,omitempty"`
	ReadOnly        []string               `json:"read_only,omitempty"`

	VersionFields
}

// MemberWithSection pairs a member payload with the section link it was
// fetched under. Grid ingests produce one pair per row; saves merge the
// Member part and replace the Section part.
type MemberWithSection struct {
	Member  Member        `json:"member"`
	Section MemberSection `json:"section"`
}

// MemberSection links a member to a section with per-section role data.
type MemberSection struct {
	ScoutID    int    `json:"scout_id"`
	SectionID  int    `json:"section_id"`
	PersonType string `json:"person_type,omitempty"`
	Patrol     string `json:"patrol,omitempty"`
	PatrolRole string `json:"patrol_role,omitempty"`
	StartedAt  string `json:"started,omitempty"`
	JoinedAt   string `json:"joined,omitempty"`
	EndedAt    string `json:"ended,omitempty"`
	Active     bool   `json:"active"`
}

// MergeFrom folds a newer payload for the same scout into m. Scalar fields
// take the newer non-empty value; opaque maps deep-merge with newer keys
// winning on collision. Merging is idempotent and, when payloads agree on
// shared keys, order-independent, so section grids may arrive in any order.
func (m *Member) MergeFrom(newer Member) {
	if newer.FirstName != "" {
		m.FirstName = newer.FirstName
	}
	if newer.LastName != "" {
		m.LastName = newer.LastName
	}
	if newer.DateOfBirth != "" {
		m.DateOfBirth = newer.DateOfBirth
	}
	if newer.Age != "" {
		m.Age = newer.Age
	}
	if newer.PhotoGUID != "" {
		m.PhotoGUID = newer.PhotoGUID
	}
	if len(newer.ReadOnly) > 0 {
		m.ReadOnly = append([]string(nil), newer.ReadOnly...)
	}

	m.ContactGroups = DeepMergeMaps(m.ContactGroups, newer.ContactGroups)
	m.CustomData = DeepMergeMaps(m.CustomData, newer.CustomData)
	m.FlattenedFields = DeepMergeMaps(m.FlattenedFields, newer.FlattenedFields)
}

// ContentEquals reports whether the server-sourced fields match.
func (m Member) ContentEquals(other Member) bool {
	return m.ScoutID == other.ScoutID &&
		m.FirstName == other.FirstName &&
		m.LastName == other.LastName &&
		m.DateOfBirth == other.DateOfBirth &&
		m.Age == other.Age &&
		m.PhotoGUID == other.PhotoGUID &&
		reflect.DeepEqual(m.ContactGroups, other.ContactGroups) &&
		reflect.DeepEqual(m.CustomData, other.CustomData) &&
		reflect.DeepEqual(m.FlattenedFields, other.FlattenedFields) &&
		reflect.DeepEqual(m.ReadOnly, other.ReadOnly)
}

// DeepMergeMaps merges src over dst without mutating either. Nested
// map[string]interface{} values merge recursively; any other value from src
// replaces the dst value for that key. A nil result is returned only when
// both inputs are nil, so unset opaque maps stay unset.
func DeepMergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil && src == nil {
		return nil
	}

	out := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]interface{})
		dstMap, dstIsMap := out[k].(map[string]interface{})
		if srcIsMap && dstIsMap {
			out[k] = DeepMergeMaps(dstMap, srcMap)
			continue
		}
		out[k] = v
	}
	return out
}
