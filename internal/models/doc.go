// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package models defines the canonical records held in the local store.
//
// All records are canonicalized at the validation boundary before they reach
// this package: numeric identifiers (section_id, scout_id) are numbers,
// event and term identifiers are strings, regardless of how the upstream
// serialized them. Raw upstream payload shapes live in the osm subpackage;
// nothing here should ever see a string-or-number union.
//
// Records that participate in sync conflict tracking embed VersionFields.
// The version state machine (fresh ingest, server update, local edit) is
// implemented here as pure functions so both store backends share identical
// observable behavior.
package models
