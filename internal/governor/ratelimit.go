// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package governor

import (
	"net/http"
	"strconv"
	"time"
)

const (
	// defaultRateLimitPause applies when a 429 carries no usable retry
	// indicator.
	defaultRateLimitPause = 30 * time.Second

	// maxRateLimitPause caps any server-provided window so a bad header
	// cannot park the queue indefinitely.
	maxRateLimitPause = 5 * time.Minute

	// minRateLimitPause keeps an already-elapsed window from turning the
	// pause into a no-op busy loop.
	minRateLimitPause = time.Second

	// lowRemainingThreshold is the X-RateLimit-Remaining value at which the
	// queue pauses pre-emptively.
	lowRemainingThreshold = 1
)

// retryWindow derives the pause length from a 429 response. Retry-After
// wins, then X-RateLimit-Reset, then the default.
func retryWindow(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return clampPause(time.Duration(secs) * time.Second)
		}
		if t, err := http.ParseTime(v); err == nil {
			return clampPause(time.Until(t))
		}
	}
	if window, ok := resetWindow(h); ok {
		return clampPause(window)
	}
	return defaultRateLimitPause
}

// resetWindow reads X-RateLimit-Reset, which servers send either as
// seconds-until-reset or as an epoch timestamp. Epoch values are far larger
// than any sane relative window, so magnitude disambiguates.
func resetWindow(h http.Header) (time.Duration, bool) {
	v := h.Get("X-RateLimit-Reset")
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	if n > 1e9 {
		return time.Until(time.Unix(n, 0)), true
	}
	return time.Duration(n) * time.Second, true
}

// lowRemaining reports whether a successful response shows the rate budget
// nearly spent, and for how long to pause. Without a reset indicator there
// is no window to wait out, so no pause.
func lowRemaining(h http.Header) (time.Duration, bool) {
	v := h.Get("X-RateLimit-Remaining")
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n > lowRemainingThreshold {
		return 0, false
	}
	window, ok := resetWindow(h)
	if !ok {
		return 0, false
	}
	return clampPause(window), true
}

func clampPause(d time.Duration) time.Duration {
	if d < minRateLimitPause {
		return minRateLimitPause
	}
	if d > maxRateLimitPause {
		return maxRateLimitPause
	}
	return d
}
