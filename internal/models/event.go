// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

// Event is a scheduled activity attached to a section and a term.
type Event struct {
	EventID   string `json:"event_id" validate:"required"`
	SectionID int    `json:"section_id" validate:"required"`
	TermID    string `json:"term_id"`
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Location  string `json:"location,omitempty"`
	Notes     string `json:"notes,omitempty"`

	VersionFields
}

// ContentEquals reports whether the server-sourced fields match.
func (e Event) ContentEquals(other Event) bool {
	return e.EventID == other.EventID &&
		e.SectionID == other.SectionID &&
		e.TermID == other.TermID &&
		e.Name == other.Name &&
		e.StartDate == other.StartDate &&
		e.EndDate == other.EndDate &&
		e.StartTime == other.StartTime &&
		e.EndTime == other.EndTime &&
		e.Location == other.Location &&
		e.Notes == other.Notes
}

// SharedEventMetadata annotates an event instance that is run jointly by
// multiple sections. Every participating section holds its own Event row;
// detection groups rows by (name, start_date). SectionIDs is sorted
// ascending so repeated detection passes are byte-identical.
type SharedEventMetadata struct {
	EventID        string `json:"event_id"`
	IsShared       bool   `json:"is_shared"`
	OwnerSectionID int    `json:"owner_section_id"`
	SectionIDs     []int  `json:"section_ids"`
}
