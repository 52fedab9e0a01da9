// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package auth

import "testing"

func TestNext_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		ev      event
		want    State
		changed bool
	}{
		{"login from unauthenticated", StateUnauthenticated, eventLoginSucceeded, StateAuthenticated, true},
		{"login from expired", StateExpired, eventLoginSucceeded, StateAuthenticated, true},
		{"login from offline", StateOfflineWithCache, eventLoginSucceeded, StateAuthenticated, true},
		{"relogin keeps authenticated", StateAuthenticated, eventLoginSucceeded, StateAuthenticated, false},
		{"login refused while blocked", StateBlocked, eventLoginSucceeded, StateBlocked, false},

		{"auth failure expires live session", StateAuthenticated, eventAuthFailure, StateExpired, true},
		{"auth failure ignored when unauthenticated", StateUnauthenticated, eventAuthFailure, StateUnauthenticated, false},
		{"auth failure ignored when already expired", StateExpired, eventAuthFailure, StateExpired, false},
		{"auth failure ignored when offline", StateOfflineWithCache, eventAuthFailure, StateOfflineWithCache, false},

		{"expired settles to offline with cache", StateExpired, eventCacheAvailable, StateOfflineWithCache, true},
		{"expired settles to unauthenticated without cache", StateExpired, eventCacheEmpty, StateUnauthenticated, true},
		{"startup resume with cache", StateUnauthenticated, eventCacheAvailable, StateOfflineWithCache, true},
		{"cache check ignored when authenticated", StateAuthenticated, eventCacheAvailable, StateAuthenticated, false},
		{"cache empty ignored when unauthenticated", StateUnauthenticated, eventCacheEmpty, StateUnauthenticated, false},

		{"blocked from authenticated", StateAuthenticated, eventBlockedUser, StateBlocked, true},
		{"blocked from offline", StateOfflineWithCache, eventBlockedUser, StateBlocked, true},
		{"blocked is idempotent", StateBlocked, eventBlockedUser, StateBlocked, false},

		{"logout from authenticated", StateAuthenticated, eventLogout, StateUnauthenticated, true},
		{"logout from blocked", StateBlocked, eventLogout, StateUnauthenticated, true},
		{"logout from offline", StateOfflineWithCache, eventLogout, StateUnauthenticated, true},
		{"logout is idempotent", StateUnauthenticated, eventLogout, StateUnauthenticated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := next(tt.from, tt.ev)
			if got != tt.want {
				t.Errorf("Expected state %q, got %q", tt.want, got)
			}
			if changed != tt.changed {
				t.Errorf("Expected changed=%v, got %v", tt.changed, changed)
			}
		})
	}
}

func TestStates_ListsEveryState(t *testing.T) {
	all := States()
	if len(all) != 5 {
		t.Fatalf("Expected 5 states, got %d", len(all))
	}
	seen := make(map[string]bool, len(all))
	for _, s := range all {
		seen[s] = true
	}
	for _, want := range []State{StateUnauthenticated, StateAuthenticated, StateExpired, StateOfflineWithCache, StateBlocked} {
		if !seen[string(want)] {
			t.Errorf("Expected States() to include %q", want)
		}
	}
}
