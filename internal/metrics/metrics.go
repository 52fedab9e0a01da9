// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package metrics defines the Prometheus instruments for the sync core:
// local store queries, page cache efficiency, governor queue behavior,
// sync stages, connectivity probing, and auth transitions. Instruments are
// package-level promauto vars; callers use the Record*/Set* helpers so
// label values stay bounded.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
)

var (
	// Local Store Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Duration of local store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "entity"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_query_errors_total",
			Help: "Total number of local store operation errors",
		},
		[]string{"operation", "entity", "kind"},
	)

	StoreBackendInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_backend_info",
			Help: "Active local store backend (1 for the backend in use)",
		},
		[]string{"backend"},
	)

	// Page Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_hits_total",
			Help: "Total number of page cache hits",
		},
		[]string{"page"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_misses_total",
			Help: "Total number of page cache misses",
		},
		[]string{"page"},
	)

	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_expirations_total",
			Help: "Total number of page cache entries found expired on read",
		},
		[]string{"page"},
	)

	CacheStaleServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_stale_served_total",
			Help: "Total number of expired page cache entries served while offline",
		},
		[]string{"page"},
	)

	// Governor Metrics
	GovernorQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "governor_queue_depth",
			Help: "Current number of requests waiting in the governor queue",
		},
		[]string{"class"},
	)

	GovernorDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governor_dispatches_total",
			Help: "Total number of governor dispatch outcomes",
		},
		[]string{"class", "outcome"}, // outcome: success, retry, rate_limited, auth_expired, blocked, error
	)

	GovernorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "governor_request_duration_seconds",
			Help:    "Upstream request duration through the governor in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	GovernorRateLimitPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "governor_rate_limit_pauses_total",
			Help: "Total number of queue pauses caused by upstream rate limiting",
		},
	)

	GovernorRateLimitPauseSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "governor_rate_limit_pause_seconds",
			Help:    "Length of rate-limit pauses in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	GovernorRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governor_retries_total",
			Help: "Total number of transient-failure retries",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Sync Metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync stages in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"}, // "core", "background", "full"
	)

	SyncRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_processed_total",
			Help: "Total number of records written during sync",
		},
		[]string{"entity"},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync errors",
		},
		[]string{"stage", "kind"},
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync per stage",
		},
		[]string{"stage"},
	)

	SyncConflictsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_conflicts_detected_total",
			Help: "Total number of rows flagged for conflict resolution",
		},
	)

	SyncLocalEditsPreserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_local_edits_preserved_total",
			Help: "Total number of locally modified rows preserved through sync",
		},
	)

	// Connectivity Metrics
	ConnectivityUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connectivity_up",
			Help: "Upstream reachability (1=up, 0=down)",
		},
	)

	ConnectivityProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectivity_probes_total",
			Help: "Total number of health probes by result",
		},
		[]string{"result"}, // "up", "down", "rate_limited"
	)

	// Auth Metrics
	AuthState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auth_state",
			Help: "Current auth lifecycle state (1 for the active state)",
		},
		[]string{"state"},
	)

	AuthTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_state_transitions_total",
			Help: "Total number of auth state transitions",
		},
		[]string{"from", "to"},
	)

	// Event Bus Metrics
	BusEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_published_total",
			Help: "Total number of events published on the in-process bus",
		},
		[]string{"kind"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)
)

// RecordStoreQuery records one local store operation. Errors are labelled
// with their taxonomy kind so cardinality stays bounded.
func RecordStoreQuery(operation, entity string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation, entity).Observe(duration.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation, entity, string(errs.KindOf(err))).Inc()
	}
}

// SetStoreBackend marks which backend opened at startup.
func SetStoreBackend(backend string) {
	for _, b := range []string{"duckdb", "badger"} {
		v := 0.0
		if b == backend {
			v = 1.0
		}
		StoreBackendInfo.WithLabelValues(b).Set(v)
	}
}

// RecordCacheHit records a fresh page cache hit.
func RecordCacheHit(page string) { CacheHits.WithLabelValues(page).Inc() }

// RecordCacheMiss records a page cache miss.
func RecordCacheMiss(page string) { CacheMisses.WithLabelValues(page).Inc() }

// RecordCacheExpired records an entry found past its TTL.
func RecordCacheExpired(page string) { CacheExpirations.WithLabelValues(page).Inc() }

// RecordCacheStaleServed records an expired entry served while offline.
func RecordCacheStaleServed(page string) { CacheStaleServed.WithLabelValues(page).Inc() }

// RecordDispatch records a governor dispatch outcome.
func RecordDispatch(class, outcome string) {
	GovernorDispatches.WithLabelValues(class, outcome).Inc()
}

// RecordRateLimitPause records one rate-limit pause of the given length.
func RecordRateLimitPause(pause time.Duration) {
	GovernorRateLimitPauses.Inc()
	GovernorRateLimitPauseSeconds.Observe(pause.Seconds())
}

// RecordSyncStage records one stage run.
func RecordSyncStage(stage string, duration time.Duration, err error) {
	SyncDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		SyncErrors.WithLabelValues(stage, string(errs.KindOf(err))).Inc()
		return
	}
	SyncLastSuccess.WithLabelValues(stage).SetToCurrentTime()
}

// SetConnectivity publishes the reachability gauge.
func SetConnectivity(up bool) {
	if up {
		ConnectivityUp.Set(1)
	} else {
		ConnectivityUp.Set(0)
	}
}

// RecordProbe records a health probe result.
func RecordProbe(result string) { ConnectivityProbes.WithLabelValues(result).Inc() }

// SetAuthState publishes the active auth state and zeroes the others.
func SetAuthState(active string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == active {
			v = 1.0
		}
		AuthState.WithLabelValues(s).Set(v)
	}
}

// RecordAuthTransition records one auth state transition.
func RecordAuthTransition(from, to string) {
	AuthTransitions.WithLabelValues(from, to).Inc()
}

// RecordBusEvent records one published bus event.
func RecordBusEvent(kind string) { BusEventsPublished.WithLabelValues(kind).Inc() }
