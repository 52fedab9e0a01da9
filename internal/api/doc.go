// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package api serves the daemon's loopback HTTP surface: health and
// readiness probes, a status snapshot, the manual sync trigger, the
// OAuth login redirect and callback, Prometheus metrics, and the
// websocket event stream for the local UI.
//
// The server binds the configured loopback address only. Handlers
// depend on narrow controller interfaces rather than the concrete
// managers so each endpoint is testable with a fake behind httptest.
package api
