// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

import "time"

// Section is a cohort of young people (Beavers, Cubs, Scouts, ...) the
// signed-in leader has a role in.
type Section struct {
	SectionID   int    `json:"section_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	SectionType string `json:"section_type"`

	VersionFields
}

// ContentEquals reports whether the server-sourced fields match. Version
// bookkeeping is excluded.
func (s Section) ContentEquals(other Section) bool {
	return s.SectionID == other.SectionID &&
		s.Name == other.Name &&
		s.SectionType == other.SectionType
}

// Term is a scheduling period attached to a section. Dates are ISO
// "YYYY-MM-DD" strings; lexical order equals chronological order.
type Term struct {
	TermID    string `json:"term_id" validate:"required"`
	SectionID int    `json:"section_id" validate:"required"`
	Name      string `json:"name"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// CurrentActiveTerm is the derived "term to fetch against" selection for a
// section: the term containing today, else the nearest upcoming one, else
// the most recently ended one.
type CurrentActiveTerm struct {
	SectionID int    `json:"section_id"`
	TermID    string `json:"term_id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SelectCurrentTerm applies the CurrentActiveTerm rule to one section's
// terms. A started term with no end date counts as containing today.
// Ties break on term ID so the choice is stable across runs. Terms with
// no usable dates never win; nil means no term qualified.
func SelectCurrentTerm(terms []Term, today time.Time) *CurrentActiveTerm {
	day := today.Format("2006-01-02")

	var current, upcoming, past *Term
	for i := range terms {
		t := &terms[i]
		switch {
		case t.StartDate != "" && t.StartDate <= day && (t.EndDate == "" || day <= t.EndDate):
			if current == nil || t.StartDate > current.StartDate ||
				(t.StartDate == current.StartDate && t.TermID < current.TermID) {
				current = t
			}
		case t.StartDate > day:
			if upcoming == nil || t.StartDate < upcoming.StartDate ||
				(t.StartDate == upcoming.StartDate && t.TermID < upcoming.TermID) {
				upcoming = t
			}
		case t.EndDate != "" && t.EndDate < day:
			if past == nil || t.EndDate > past.EndDate ||
				(t.EndDate == past.EndDate && t.TermID < past.TermID) {
				past = t
			}
		}
	}

	pick := current
	if pick == nil {
		pick = upcoming
	}
	if pick == nil {
		pick = past
	}
	if pick == nil {
		return nil
	}
	return &CurrentActiveTerm{
		SectionID: pick.SectionID,
		TermID:    pick.TermID,
		Name:      pick.Name,
		StartDate: pick.StartDate,
		EndDate:   pick.EndDate,
	}
}
