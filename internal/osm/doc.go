// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package osm is the Online Scout Manager API client.
//
// Every method rides the governor's serialized queue, so callers never
// talk to the upstream directly and the spacing floor, retry cycle, and
// rate-limit pauses apply uniformly. Responses come back as raw JSON and
// are decoded through the validation boundary into canonical records;
// the client never hands raw upstream shapes to its callers.
//
// Two upstream quirks are absorbed here. The API reports a blocked
// account as a sentinel string inside an HTTP 200 body, not as a status
// code; the client screens every successful payload for it and notifies
// the auth layer before surfacing errs.Blocked. And listings scoped to a
// term that does not exist come back 404; for those operations a 404
// reads as an empty listing, not a failure.
//
// Mutations (attendance and FlexiRecord cell updates) pass a write
// guard before enqueueing, so an expired or blocked session rejects the
// write locally instead of burning an upstream dispatch.
package osm
