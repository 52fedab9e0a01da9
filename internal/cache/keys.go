// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package cache

import (
	"strconv"
	"strings"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
)

// Page identifies a cached page kind. Every kind carries its own TTL and
// its own registered loader; event-detail keys share one kind across all
// event/section scopes.
type Page string

const (
	// PageStartup caches the combined roles-and-terms payload loaded at
	// app start.
	PageStartup Page = "startup"

	// PageEvents caches the dashboard events listing.
	PageEvents Page = "events-page"

	// PageSections caches the sections listing with member summaries.
	PageSections Page = "sections-page"

	// PageEventDetail is the kind shared by all event-detail keys. Concrete
	// keys are built with EventDetailKey.
	PageEventDetail Page = "event-detail"
)

// eventDetailPrefix prefixes every event-detail cache key.
const eventDetailPrefix = string(PageEventDetail) + "-"

// EventDetailKey builds the cache key for one event's detail page in one
// section's scope.
func EventDetailKey(eventID string, sectionID int) string {
	return eventDetailPrefix + eventID + "-" + strconv.Itoa(sectionID)
}

// ParseEventDetailKey splits an event-detail cache key back into its event
// and section components. ok is false for keys of any other kind. Event IDs
// may themselves contain dashes, so the section id is taken from the last
// dash-separated component.
func ParseEventDetailKey(key string) (eventID string, sectionID int, ok bool) {
	rest, found := strings.CutPrefix(key, eventDetailPrefix)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(rest, "-")
	if idx <= 0 {
		return "", 0, false
	}
	sectionID, err := strconv.Atoi(rest[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:idx], sectionID, true
}

// PageOf maps a cache key to its page kind. Unknown keys return the empty
// Page, which resolves to the shortest TTL.
func PageOf(key string) Page {
	switch {
	case key == string(PageStartup):
		return PageStartup
	case key == string(PageEvents):
		return PageEvents
	case key == string(PageSections):
		return PageSections
	case strings.HasPrefix(key, eventDetailPrefix):
		return PageEventDetail
	}
	return ""
}

// ttlFor resolves a page kind to its configured TTL. Unknown kinds get the
// event-detail TTL so an unregistered key can never outlive a known one.
func ttlFor(cfg config.CacheConfig, page Page) time.Duration {
	switch page {
	case PageStartup:
		return cfg.StartupTTL
	case PageEvents:
		return cfg.EventsTTL
	case PageSections:
		return cfg.SectionsTTL
	default:
		return cfg.EventDetailTTL
	}
}

// label returns the bounded metrics label for a page kind. Event-detail
// keys collapse onto one label so cardinality stays fixed.
func label(page Page) string {
	if page == "" {
		return "other"
	}
	return string(page)
}
