// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

// FlexiList is a per-section catalog entry naming a FlexiRecord list
// (sign-in/sign-out sheets, section-mover bookkeeping, ...).
type FlexiList struct {
	SectionID int    `json:"section_id" validate:"required"`
	ExtraID   string `json:"extra_id" validate:"required"`
	Name      string `json:"name"`
}

// FlexiField describes one column of a FlexiRecord structure.
type FlexiField struct {
	FieldID string `json:"field_id"`
	Name    string `json:"name"`
	Width   string `json:"width,omitempty"`
}

// FlexiStructure is the schema of a FlexiRecord, shared across sections
// that subscribe to the same list.
type FlexiStructure struct {
	ExtraID string                 `json:"extra_id"`
	Name    string                 `json:"name"`
	Config  map[string]interface{} `json:"config,omitempty"`
	Fields  []FlexiField           `json:"fields,omitempty"`
}

// FlexiData is one member's row in a FlexiRecord for a (section, term)
// scope. Fields holds the raw column values (f_1, f_2, ...) verbatim; the
// validation boundary deliberately passes unknown columns through.
type FlexiData struct {
	ExtraID   string                 `json:"extra_id"`
	SectionID int                    `json:"section_id"`
	TermID    string                 `json:"term_id"`
	ScoutID   int                    `json:"scout_id"`
	FirstName string                 `json:"first_name,omitempty"`
	LastName  string                 `json:"last_name,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}
