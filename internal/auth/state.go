// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package auth

// State is one position in the session lifecycle.
type State string

const (
	// StateUnauthenticated means no token and no cached data to browse.
	StateUnauthenticated State = "unauthenticated"

	// StateAuthenticated means a live token is installed.
	StateAuthenticated State = "authenticated"

	// StateExpired is the transient state entered when the upstream
	// rejects credentials; it settles into OfflineWithCache or
	// Unauthenticated once the local store has been consulted.
	StateExpired State = "expired"

	// StateOfflineWithCache means credentials have lapsed but cached
	// rows remain browsable. Upstream mutations are rejected.
	StateOfflineWithCache State = "offline_with_cache"

	// StateBlocked means the upstream returned its blocked sentinel.
	// Every upstream call is refused until an explicit logout.
	StateBlocked State = "blocked"
)

// States lists every lifecycle state in declaration order.
func States() []string {
	return []string{
		string(StateUnauthenticated),
		string(StateAuthenticated),
		string(StateExpired),
		string(StateOfflineWithCache),
		string(StateBlocked),
	}
}

// event is a lifecycle input consumed by the reducer.
type event string

const (
	eventLoginSucceeded event = "login_succeeded"
	eventAuthFailure    event = "auth_failure"
	eventCacheAvailable event = "cache_available"
	eventCacheEmpty     event = "cache_empty"
	eventBlockedUser    event = "blocked_sentinel"
	eventLogout         event = "logout"
)

// next is the lifecycle reducer. It returns the state after ev and
// whether the state moved. It performs no side effects; the Manager
// owns token teardown, purges, and notifications.
func next(s State, ev event) (State, bool) {
	switch ev {
	case eventLogout:
		return StateUnauthenticated, s != StateUnauthenticated

	case eventBlockedUser:
		return StateBlocked, s != StateBlocked

	case eventLoginSucceeded:
		switch s {
		case StateUnauthenticated, StateExpired, StateOfflineWithCache:
			return StateAuthenticated, true
		case StateAuthenticated:
			// Re-login replaces the token without a state change.
			return StateAuthenticated, false
		}
		// Blocked requires a logout first.
		return s, false

	case eventAuthFailure:
		if s == StateAuthenticated {
			return StateExpired, true
		}
		return s, false

	case eventCacheAvailable:
		// Expired settles here; Unauthenticated takes the same edge at
		// process start when cached rows survive from a prior session.
		if s == StateExpired || s == StateUnauthenticated {
			return StateOfflineWithCache, true
		}
		return s, false

	case eventCacheEmpty:
		if s == StateExpired {
			return StateUnauthenticated, true
		}
		return s, false
	}
	return s, false
}
