// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// promptTTL bounds how long a login prompt stays answerable.
const promptTTL = 5 * time.Minute

// pendingPrompt is one outstanding login confirmation awaiting the
// shell's answer.
type pendingPrompt struct {
	reason     string
	returnPath string
	createdAt  time.Time
}

func (p pendingPrompt) expired(now time.Time) bool {
	return now.Sub(p.createdAt) > promptTTL
}

// promptRegistry tracks pending login prompts by id. Entries are
// consume-once and expire after promptTTL; stale entries are swept
// opportunistically on add.
type promptRegistry struct {
	mu      sync.Mutex
	pending map[string]pendingPrompt
}

func newPromptRegistry() *promptRegistry {
	return &promptRegistry{pending: make(map[string]pendingPrompt)}
}

// add registers a prompt and returns its id.
func (r *promptRegistry) add(reason, returnPath string) string {
	id := uuid.New().String()
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, p := range r.pending {
		if p.expired(now) {
			delete(r.pending, k)
		}
	}
	r.pending[id] = pendingPrompt{reason: reason, returnPath: returnPath, createdAt: now}
	return id
}

// consume removes and returns the prompt for id. A second consume of
// the same id, or a consume past the TTL, reports false.
func (r *promptRegistry) consume(id string) (pendingPrompt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[id]
	if !ok {
		return pendingPrompt{}, false
	}
	delete(r.pending, id)
	if p.expired(time.Now()) {
		return pendingPrompt{}, false
	}
	return p, true
}

// clear drops every pending prompt.
func (r *promptRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = make(map[string]pendingPrompt)
}
