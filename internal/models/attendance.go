// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

// Attendance is a per-scout-per-event intention or record. Regular and
// shared-section rows for the same event coexist; IsSharedSection is the
// only discriminator and each save path replaces only its own partition.
type Attendance struct {
	EventID         string `json:"event_id" validate:"required"`
	ScoutID         int    `json:"scout_id" validate:"required"`
	SectionID       int    `json:"section_id"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Attending       string `json:"attending"`
	Patrol          string `json:"patrol,omitempty"`
	Notes           string `json:"notes,omitempty"`
	IsSharedSection bool   `json:"is_shared_section"`

	VersionFields
}

// ContentEquals reports whether the server-sourced fields match.
func (a Attendance) ContentEquals(other Attendance) bool {
	return a.EventID == other.EventID &&
		a.ScoutID == other.ScoutID &&
		a.SectionID == other.SectionID &&
		a.FirstName == other.FirstName &&
		a.LastName == other.LastName &&
		a.Attending == other.Attending &&
		a.Patrol == other.Patrol &&
		a.Notes == other.Notes &&
		a.IsSharedSection == other.IsSharedSection
}
