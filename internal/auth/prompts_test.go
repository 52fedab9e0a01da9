// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package auth

import (
	"testing"
	"time"
)

func TestPromptRegistry_ConsumeOnce(t *testing.T) {
	r := newPromptRegistry()
	id := r.add("session expired", "/events/42")

	p, ok := r.consume(id)
	if !ok {
		t.Fatal("Expected first consume to succeed")
	}
	if p.reason != "session expired" {
		t.Errorf("Expected reason to survive, got %q", p.reason)
	}
	if p.returnPath != "/events/42" {
		t.Errorf("Expected return path to survive, got %q", p.returnPath)
	}

	if _, ok := r.consume(id); ok {
		t.Error("Expected second consume of the same id to fail")
	}
}

func TestPromptRegistry_UnknownID(t *testing.T) {
	r := newPromptRegistry()
	if _, ok := r.consume("nope"); ok {
		t.Error("Expected consume of unknown id to fail")
	}
}

func TestPromptRegistry_Expiry(t *testing.T) {
	r := newPromptRegistry()
	id := r.add("session expired", "")

	r.mu.Lock()
	p := r.pending[id]
	p.createdAt = time.Now().Add(-promptTTL - time.Minute)
	r.pending[id] = p
	r.mu.Unlock()

	if _, ok := r.consume(id); ok {
		t.Error("Expected consume past the TTL to fail")
	}
}

func TestPromptRegistry_AddSweepsStaleEntries(t *testing.T) {
	r := newPromptRegistry()
	stale := r.add("old", "")

	r.mu.Lock()
	p := r.pending[stale]
	p.createdAt = time.Now().Add(-promptTTL - time.Minute)
	r.pending[stale] = p
	r.mu.Unlock()

	r.add("fresh", "")

	r.mu.Lock()
	_, kept := r.pending[stale]
	n := len(r.pending)
	r.mu.Unlock()
	if kept {
		t.Error("Expected stale prompt to be swept on add")
	}
	if n != 1 {
		t.Errorf("Expected 1 pending prompt after sweep, got %d", n)
	}
}

func TestPromptRegistry_Clear(t *testing.T) {
	r := newPromptRegistry()
	id := r.add("session expired", "")
	r.clear()
	if _, ok := r.consume(id); ok {
		t.Error("Expected consume after clear to fail")
	}
}
