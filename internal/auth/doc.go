// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package auth owns the session lifecycle: the authorization-code
// login flow, the in-memory session token, expiry detection, and the
// fallback to cached-only browsing when credentials lapse.
//
// The lifecycle is a five-state machine (Unauthenticated,
// Authenticated, Expired, OfflineWithCache, Blocked) driven by a pure
// reducer. The Manager wraps the reducer with the side effects each
// transition carries: token install and teardown, cached-data checks
// and purges, bus notifications, and the login prompt handshake with
// the UI shell.
//
// Tokens are session-scoped. Nothing here persists a credential;
// a process restart always begins Unauthenticated, with cached rows
// deciding whether the session resumes as OfflineWithCache.
package auth
