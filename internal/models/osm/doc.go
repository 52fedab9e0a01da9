// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package osm defines the raw payload shapes returned by the Online Scout
// Manager REST API.
//
// The upstream serializes identifiers inconsistently: the same field can
// arrive as a JSON number or as a numeric string depending on endpoint and
// account age. FlexInt and FlexString absorb that at decode time so the
// validation boundary canonicalizes exactly once.
//
// Open-schema payloads (member grid rows, FlexiRecord data rows) are not
// modelled here; they are decoded as generic maps at the validation
// boundary, which owns the passthrough policy for their custom columns.
package osm
