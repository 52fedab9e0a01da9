// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package events is the in-process broadcast bus connecting the sync
// core to its consumers (websocket hub, status endpoint, UI shells).
//
// The bus is built on Watermill's gochannel Pub/Sub: one topic per event
// kind, goccy-JSON payloads, FIFO delivery per subscriber. Subscribers
// register with a context and deregister by cancelling it. Publishing is
// fire-and-forget: a kind with no subscribers is dropped, and a slow
// subscriber only backpressures its own channel.
package events

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
)

// Kind identifies an event category on the bus. Each kind maps to its
// own gochannel topic so subscribers only receive what they asked for.
type Kind string

const (
	KindConnectivityChanged  Kind = "connectivity_changed"
	KindAuthStateChanged     Kind = "auth_state_changed"
	KindSyncProgress         Kind = "sync_progress"
	KindSyncCompleted        Kind = "sync_completed"
	KindSyncFailed           Kind = "sync_failed"
	KindLoginPromptRequested Kind = "login_prompt_requested"
)

// Payload is implemented by every event body. EventKind binds the body
// to its topic so a publish can never put a payload on the wrong kind.
type Payload interface {
	EventKind() Kind
}

// ConnectivityChanged reports a transition of the upstream probe.
type ConnectivityChanged struct {
	Online    bool      `json:"online"`
	CheckedAt time.Time `json:"checked_at"`
}

// EventKind implements Payload.
func (ConnectivityChanged) EventKind() Kind { return KindConnectivityChanged }

// AuthStateChanged reports an authentication state transition. States
// are carried as strings (the auth package owns the enum) so the bus
// stays import-free of its producers.
type AuthStateChanged struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// EventKind implements Payload.
func (AuthStateChanged) EventKind() Kind { return KindAuthStateChanged }

// SyncProgress is emitted as a sync stage works through its sections
// and events. Counts carries running totals keyed by entity name.
type SyncProgress struct {
	Stage   string         `json:"stage"`
	Message string         `json:"message"`
	Counts  map[string]int `json:"counts,omitempty"`
}

// EventKind implements Payload.
func (SyncProgress) EventKind() Kind { return KindSyncProgress }

// SyncCompleted is emitted when a sync stage finishes without a
// stage-level failure. Summary carries final record counts per entity.
type SyncCompleted struct {
	Stage    string         `json:"stage"`
	Summary  map[string]int `json:"summary,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// EventKind implements Payload.
func (SyncCompleted) EventKind() Kind { return KindSyncCompleted }

// SyncFailed is emitted when a sync stage aborts. ErrorKind is the
// errs.Kind string for consumers that branch on the failure class.
type SyncFailed struct {
	Stage     string `json:"stage"`
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// EventKind implements Payload.
func (SyncFailed) EventKind() Kind { return KindSyncFailed }

// LoginPromptRequested asks the UI shell to confirm an interactive
// re-login. The prompt is resolved out of band through the auth
// package using PromptID; the event itself carries no callbacks.
type LoginPromptRequested struct {
	PromptID string `json:"prompt_id"`
	Reason   string `json:"reason,omitempty"`
}

// EventKind implements Payload.
func (LoginPromptRequested) EventKind() Kind { return KindLoginPromptRequested }

// Event is the envelope delivered to subscribers. Payload holds the
// goccy-JSON encoding of the published body.
type Event struct {
	ID      string          `json:"id"`
	Kind    Kind            `json:"kind"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the event payload into v, which should be a
// pointer to the payload type matching the event kind.
func (e Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errs.Wrap(errs.Validation, "events.Decode", "decode "+string(e.Kind)+" payload", err)
	}
	return nil
}
