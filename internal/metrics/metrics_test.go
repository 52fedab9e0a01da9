// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
)

func TestRecordStoreQuery_ErrorLabelledByKind(t *testing.T) {
	before := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("save", "events", "Storage"))

	RecordStoreQuery("save", "events", 5*time.Millisecond,
		errs.New(errs.Storage, "store.SaveEvents", "disk full"))

	after := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("save", "events", "Storage"))
	if after != before+1 {
		t.Errorf("Expected Storage error counter to increment, got %v -> %v", before, after)
	}
}

func TestRecordStoreQuery_SuccessRecordsNoError(t *testing.T) {
	before := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("get", "sections", "Storage"))

	RecordStoreQuery("get", "sections", time.Millisecond, nil)

	after := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("get", "sections", "Storage"))
	if after != before {
		t.Errorf("Expected no error increment on success, got %v -> %v", before, after)
	}
}

func TestSetStoreBackend_ExclusiveGauge(t *testing.T) {
	SetStoreBackend("duckdb")
	if got := testutil.ToFloat64(StoreBackendInfo.WithLabelValues("duckdb")); got != 1 {
		t.Errorf("Expected duckdb gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(StoreBackendInfo.WithLabelValues("badger")); got != 0 {
		t.Errorf("Expected badger gauge 0, got %v", got)
	}

	SetStoreBackend("badger")
	if got := testutil.ToFloat64(StoreBackendInfo.WithLabelValues("duckdb")); got != 0 {
		t.Errorf("Expected duckdb gauge reset to 0, got %v", got)
	}
	if got := testutil.ToFloat64(StoreBackendInfo.WithLabelValues("badger")); got != 1 {
		t.Errorf("Expected badger gauge 1, got %v", got)
	}
}

func TestCacheCounters(t *testing.T) {
	before := testutil.ToFloat64(CacheHits.WithLabelValues("startup"))
	RecordCacheHit("startup")
	RecordCacheHit("startup")
	after := testutil.ToFloat64(CacheHits.WithLabelValues("startup"))
	if after != before+2 {
		t.Errorf("Expected 2 hits recorded, got %v -> %v", before, after)
	}

	beforeStale := testutil.ToFloat64(CacheStaleServed.WithLabelValues("terms"))
	RecordCacheStaleServed("terms")
	afterStale := testutil.ToFloat64(CacheStaleServed.WithLabelValues("terms"))
	if afterStale != beforeStale+1 {
		t.Errorf("Expected stale-served increment, got %v -> %v", beforeStale, afterStale)
	}
}

func TestSetConnectivity(t *testing.T) {
	SetConnectivity(true)
	if got := testutil.ToFloat64(ConnectivityUp); got != 1 {
		t.Errorf("Expected connectivity gauge 1, got %v", got)
	}
	SetConnectivity(false)
	if got := testutil.ToFloat64(ConnectivityUp); got != 0 {
		t.Errorf("Expected connectivity gauge 0, got %v", got)
	}
}

func TestSetAuthState_ExclusiveGauge(t *testing.T) {
	states := []string{"unauthenticated", "authenticated", "expired", "offline_with_cache", "blocked"}

	SetAuthState("authenticated", states)
	for _, s := range states {
		want := 0.0
		if s == "authenticated" {
			want = 1.0
		}
		if got := testutil.ToFloat64(AuthState.WithLabelValues(s)); got != want {
			t.Errorf("AuthState[%s] = %v, want %v", s, got, want)
		}
	}
}

func TestRecordSyncStage_SuccessSetsTimestamp(t *testing.T) {
	RecordSyncStage("core", 2*time.Second, nil)
	if got := testutil.ToFloat64(SyncLastSuccess.WithLabelValues("core")); got == 0 {
		t.Error("Expected last-success timestamp set after successful stage")
	}
}

func TestMetricGathering(t *testing.T) {
	RecordDispatch("normal", "success")
	RecordRateLimitPause(5 * time.Second)
	RecordProbe("up")
	RecordBusEvent("SyncProgress")

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}
