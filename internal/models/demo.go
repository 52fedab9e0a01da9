// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package models

import "strings"

// Demo fixtures share the live store with real data. Names carry the
// "Demo " prefix (or are exactly "Demo"), string keys the "demo_" prefix.
// Store readers outside demo mode filter both forms so fixtures never
// reach a real session.
const (
	DemoNamePrefix = "Demo "
	DemoKeyPrefix  = "demo_"
)

// IsDemoName reports whether a row name marks a demo fixture.
func IsDemoName(name string) bool {
	return name == "Demo" || strings.HasPrefix(name, DemoNamePrefix)
}

// IsDemoKey reports whether a string key marks a demo fixture.
func IsDemoKey(key string) bool {
	return strings.HasPrefix(key, DemoKeyPrefix)
}

// IsDemo reports whether the section is a demo fixture.
func (s Section) IsDemo() bool { return IsDemoName(s.Name) }

// IsDemo reports whether the term is a demo fixture.
func (t Term) IsDemo() bool { return IsDemoName(t.Name) || IsDemoKey(t.TermID) }

// IsDemo reports whether the event is a demo fixture.
func (e Event) IsDemo() bool { return IsDemoName(e.Name) || IsDemoKey(e.EventID) }

// IsDemo reports whether the attendance row is a demo fixture.
func (a Attendance) IsDemo() bool {
	return IsDemoKey(a.EventID) || IsDemoName(a.FirstName) || IsDemoName(a.LastName)
}

// IsDemo reports whether the member is a demo fixture.
func (m Member) IsDemo() bool { return IsDemoName(m.FirstName) || IsDemoName(m.LastName) }

// IsDemo reports whether the catalog entry is a demo fixture.
func (f FlexiList) IsDemo() bool { return IsDemoName(f.Name) || IsDemoKey(f.ExtraID) }

// IsDemo reports whether the structure is a demo fixture.
func (f FlexiStructure) IsDemo() bool { return IsDemoName(f.Name) || IsDemoKey(f.ExtraID) }

// IsDemo reports whether the data row is a demo fixture.
func (f FlexiData) IsDemo() bool { return IsDemoKey(f.ExtraID) }
