// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package websocket streams sync-core events to local UI clients.
//
// The Hub owns the client set and fans frames out in deterministic id
// order; the Relay subscribes to the in-process event bus and forwards
// every envelope, so a connected frontend observes auth transitions,
// connectivity changes, and sync progress live without polling. Frames
// carry the bus kind as their type and the full envelope as data. Each
// client is served by read/write pumps with ping keepalive; a slow
// client is dropped rather than allowed to stall the others.
package websocket
