// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package osm

// Role is one entry of the user-roles response: a section the signed-in
// leader has access to.
type Role struct {
	SectionID   FlexInt                `json:"sectionid"`
	SectionName string                 `json:"sectionname"`
	SectionType string                 `json:"section"`
	GroupName   string                 `json:"groupname,omitempty"`
	IsDefault   FlexString             `json:"isDefault,omitempty"`
	Permissions map[string]interface{} `json:"permissions,omitempty"`
}

// Term is one scheduling period. The terms endpoint returns a map keyed by
// section id (as a string) to the section's terms.
type Term struct {
	TermID    FlexString `json:"termid"`
	SectionID FlexInt    `json:"sectionid"`
	Name      string     `json:"name"`
	StartDate string     `json:"startdate"`
	EndDate   string     `json:"enddate"`
}

// TermsResponse maps section id strings to term lists.
type TermsResponse map[string][]Term

// EventsResponse wraps the per-(section, term) events listing.
type EventsResponse struct {
	Identifier string  `json:"identifier,omitempty"`
	Items      []Event `json:"items"`
}

// Event is one scheduled activity row. Some listings carry the start date
// under "date" instead of "startdate"; both are kept so the boundary can
// fall back.
type Event struct {
	EventID   FlexString `json:"eventid"`
	SectionID FlexInt    `json:"sectionid"`
	TermID    FlexString `json:"termid"`
	Name      string     `json:"name"`
	StartDate string     `json:"startdate"`
	Date      string     `json:"date,omitempty"`
	EndDate   string     `json:"enddate"`
	StartTime string     `json:"starttime,omitempty"`
	EndTime   string     `json:"endtime,omitempty"`
	Location  string     `json:"location,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// AttendanceResponse wraps the per-event attendance listing.
type AttendanceResponse struct {
	Identifier string       `json:"identifier,omitempty"`
	Items      []Attendance `json:"items"`
}

// Attendance is one scout's intention row for an event.
type Attendance struct {
	ScoutID   FlexInt    `json:"scoutid"`
	EventID   FlexString `json:"eventid,omitempty"`
	SectionID FlexInt    `json:"sectionid,omitempty"`
	FirstName string     `json:"firstname"`
	LastName  string     `json:"lastname"`
	Attending string     `json:"attending"`
	Patrol    string     `json:"patrolid,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// SharedAttendanceResponse wraps the cross-section attendance listing for a
// shared event. Each attendee row names the section it came from.
type SharedAttendanceResponse struct {
	Identifier string           `json:"identifier,omitempty"`
	Items      []SharedAttendee `json:"combined_attendance,omitempty"`
	Fallback   []SharedAttendee `json:"items,omitempty"`
}

// Attendees returns whichever field the upstream populated.
func (r SharedAttendanceResponse) Attendees() []SharedAttendee {
	if len(r.Items) > 0 {
		return r.Items
	}
	return r.Fallback
}

// SharedAttendee is one row of a shared-event attendance listing.
type SharedAttendee struct {
	ScoutID     FlexInt `json:"scoutid"`
	SectionID   FlexInt `json:"sectionid"`
	SectionName string  `json:"sectionname,omitempty"`
	FirstName   string  `json:"firstname"`
	LastName    string  `json:"lastname"`
	Attending   string  `json:"attending"`
	Patrol      string  `json:"patrolid,omitempty"`
}

// FlexiListResponse wraps a section's FlexiRecord catalog.
type FlexiListResponse struct {
	Identifier string      `json:"identifier,omitempty"`
	Items      []FlexiList `json:"items"`
}

// FlexiList is one catalog entry.
type FlexiList struct {
	ExtraID FlexString `json:"extraid"`
	Name    string     `json:"name"`
}

// FlexiStructure describes a FlexiRecord's columns. Config arrives as a
// JSON-encoded string; Structure nests column rows in display blocks.
type FlexiStructure struct {
	ExtraID   FlexString       `json:"extraid"`
	Name      string           `json:"name"`
	Config    string           `json:"config,omitempty"`
	Structure []StructureBlock `json:"structure,omitempty"`
}

// StructureBlock is one display block of structure columns.
type StructureBlock struct {
	Name string       `json:"name,omitempty"`
	Rows []FlexiField `json:"rows,omitempty"`
}

// FlexiField is one column definition.
type FlexiField struct {
	FieldID string `json:"field"`
	Name    string `json:"name"`
	Width   string `json:"width,omitempty"`
}
