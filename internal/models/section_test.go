// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

import (
	"testing"
	"time"
)

func TestSelectCurrentTerm(t *testing.T) {
	today := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		terms []Term
		want  string // term ID, "" means nil
	}{
		{
			name: "containing today wins over neighbours",
			terms: []Term{
				{TermID: "spring", SectionID: 1, StartDate: "2025-01-06", EndDate: "2025-03-28"},
				{TermID: "summer", SectionID: 1, StartDate: "2025-04-14", EndDate: "2025-07-18"},
				{TermID: "autumn", SectionID: 1, StartDate: "2025-09-01", EndDate: "2025-12-12"},
			},
			want: "summer",
		},
		{
			name: "open ended started term counts as current",
			terms: []Term{
				{TermID: "rolling", SectionID: 1, StartDate: "2025-05-01"},
				{TermID: "autumn", SectionID: 1, StartDate: "2025-09-01", EndDate: "2025-12-12"},
			},
			want: "rolling",
		},
		{
			name: "gap between terms picks nearest upcoming",
			terms: []Term{
				{TermID: "autumn", SectionID: 1, StartDate: "2025-09-01", EndDate: "2025-12-12"},
				{TermID: "spring26", SectionID: 1, StartDate: "2026-01-05", EndDate: "2026-03-27"},
			},
			want: "autumn",
		},
		{
			name: "only past terms picks most recently ended",
			terms: []Term{
				{TermID: "autumn24", SectionID: 1, StartDate: "2024-09-02", EndDate: "2024-12-13"},
				{TermID: "spring25", SectionID: 1, StartDate: "2025-01-06", EndDate: "2025-03-28"},
			},
			want: "spring25",
		},
		{
			name: "upcoming tie breaks on term id",
			terms: []Term{
				{TermID: "b-term", SectionID: 1, StartDate: "2025-09-01", EndDate: "2025-12-12"},
				{TermID: "a-term", SectionID: 1, StartDate: "2025-09-01", EndDate: "2025-10-24"},
			},
			want: "a-term",
		},
		{
			name: "past tie breaks on term id",
			terms: []Term{
				{TermID: "z-old", SectionID: 1, StartDate: "2025-01-06", EndDate: "2025-03-28"},
				{TermID: "a-old", SectionID: 1, StartDate: "2025-02-03", EndDate: "2025-03-28"},
			},
			want: "a-old",
		},
		{
			name: "overlapping current terms picks latest start",
			terms: []Term{
				{TermID: "year", SectionID: 1, StartDate: "2025-01-01", EndDate: "2025-12-31"},
				{TermID: "summer", SectionID: 1, StartDate: "2025-04-14", EndDate: "2025-07-18"},
			},
			want: "summer",
		},
		{
			name:  "no terms",
			terms: nil,
			want:  "",
		},
		{
			name: "dateless terms never qualify",
			terms: []Term{
				{TermID: "mystery", SectionID: 1},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectCurrentTerm(tt.terms, today)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("Expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Expected term %q, got nil", tt.want)
			}
			if got.TermID != tt.want {
				t.Errorf("Expected term %q, got %q", tt.want, got.TermID)
			}
		})
	}
}

func TestSelectCurrentTerm_CarriesSectionFields(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	terms := []Term{{TermID: "summer", SectionID: 7, Name: "Summer 2025", StartDate: "2025-04-14", EndDate: "2025-07-18"}}

	got := SelectCurrentTerm(terms, today)
	if got == nil {
		t.Fatal("Expected a term")
	}
	if got.SectionID != 7 || got.Name != "Summer 2025" || got.StartDate != "2025-04-14" || got.EndDate != "2025-07-18" {
		t.Errorf("Expected fields carried over, got %+v", got)
	}
}
