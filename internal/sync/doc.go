// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

/*
Package sync orchestrates the two-stage pull from the upstream API into
the local store.

Stage A ("dashboard") serially fetches user roles, terms, and the
whitelisted FlexiRecord catalogs and structures. It is the readiness
gate: until it completes once, the app is not considered ready, and a
Stage A failure aborts the run.

Stage B ("background") fills in the heavy data: per-section member
grids with an accumulating merge, events for each section's current
term, and a batched attendance fan-out (regular plus shared rows) for
every event inside the displayable window. Per-event failures are
recorded in the run result without failing the stage. A final
deterministic pass groups events by (name, start date) to detect events
run jointly by several sections.

A run is guarded by an is-syncing flag; a second caller gets an
in-progress result instead of a second run. Attendance refreshes for a
single event collapse concurrent callers onto one flight. Progress,
completion, and failure are emitted on the event bus.
*/
package sync
