// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package events

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("Event channel closed before delivery")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
	}
	return Event{}
}

// ===================================================================================================
// Publish and Subscribe Tests
// ===================================================================================================

func TestBus_PublishDelivered(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, KindSyncProgress)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	want := SyncProgress{
		Stage:   "events",
		Message: "Syncing 1st Walton Beavers",
		Counts:  map[string]int{"events": 4, "sections": 1},
	}
	if err := bus.Publish(ctx, want); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	ev := recvEvent(t, ch)
	if ev.Kind != KindSyncProgress {
		t.Errorf("Expected kind %s, got %s", KindSyncProgress, ev.Kind)
	}
	if ev.ID == "" {
		t.Error("Expected a message ID, got empty string")
	}
	if ev.At.IsZero() {
		t.Error("Expected a publish timestamp, got zero time")
	}

	var got SyncProgress
	if err := ev.Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Stage != want.Stage || got.Message != want.Message {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if got.Counts["events"] != 4 {
		t.Errorf("Expected events count 4, got %d", got.Counts["events"])
	}
}

func TestBus_KindFiltering(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, KindAuthStateChanged)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := bus.Publish(ctx, ConnectivityChanged{Online: true, CheckedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Publish connectivity failed: %v", err)
	}
	if err := bus.Publish(ctx, AuthStateChanged{From: "unauthenticated", To: "authenticated"}); err != nil {
		t.Fatalf("Publish auth failed: %v", err)
	}

	ev := recvEvent(t, ch)
	if ev.Kind != KindAuthStateChanged {
		t.Fatalf("Expected only %s, got %s", KindAuthStateChanged, ev.Kind)
	}

	select {
	case extra := <-ch:
		t.Errorf("Expected no further events, got %s", extra.Kind)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_FIFOWithinKind(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, KindSyncProgress)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	const n = 20
	for i := 0; i < n; i++ {
		p := SyncProgress{Stage: "events", Message: fmt.Sprintf("step-%02d", i)}
		if err := bus.Publish(ctx, p); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		ev := recvEvent(t, ch)
		var got SyncProgress
		if err := ev.Decode(&got); err != nil {
			t.Fatalf("Decode %d failed: %v", i, err)
		}
		want := fmt.Sprintf("step-%02d", i)
		if got.Message != want {
			t.Fatalf("Expected %s at position %d, got %s", want, i, got.Message)
		}
	}
}

func TestBus_FanOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, KindSyncCompleted)
	if err != nil {
		t.Fatalf("First subscribe failed: %v", err)
	}
	second, err := bus.Subscribe(ctx, KindSyncCompleted)
	if err != nil {
		t.Fatalf("Second subscribe failed: %v", err)
	}

	if err := bus.Publish(ctx, SyncCompleted{Stage: "attendance", Summary: map[string]int{"attendance": 12}}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for name, ch := range map[string]<-chan Event{"first": first, "second": second} {
		ev := recvEvent(t, ch)
		if ev.Kind != KindSyncCompleted {
			t.Errorf("Expected %s subscriber to get %s, got %s", name, KindSyncCompleted, ev.Kind)
		}
	}
}

func TestBus_SubscribeDefaultsToAllKinds(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := bus.Publish(ctx, ConnectivityChanged{Online: false, CheckedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Publish connectivity failed: %v", err)
	}
	if err := bus.Publish(ctx, LoginPromptRequested{PromptID: "prompt-1", Reason: "token expired"}); err != nil {
		t.Fatalf("Publish prompt failed: %v", err)
	}

	seen := map[Kind]bool{}
	for i := 0; i < 2; i++ {
		ev := recvEvent(t, ch)
		seen[ev.Kind] = true
	}
	if !seen[KindConnectivityChanged] || !seen[KindLoginPromptRequested] {
		t.Errorf("Expected both kinds delivered, got %v", seen)
	}
}

// ===================================================================================================
// Lifecycle Tests
// ===================================================================================================

func TestBus_ContextCancelDeregisters(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, KindSyncProgress)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Subscriber channel did not close after context cancel")
		}
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus()
	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Expected second Close to be a no-op, got %v", err)
	}

	err := bus.Publish(context.Background(), SyncFailed{Stage: "events", Error: "upstream unreachable"})
	if err == nil {
		t.Fatal("Expected publish on closed bus to fail")
	}
	if !strings.Contains(err.Error(), "bus is closed") {
		t.Errorf("Expected 'bus is closed' error, got %v", err)
	}
}

func TestBus_CloseDrainsSubscribers(t *testing.T) {
	bus := NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, KindConnectivityChanged)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Subscriber channel did not close after bus shutdown")
		}
	}
}

// ===================================================================================================
// Envelope Tests
// ===================================================================================================

func TestEvent_DecodeBadPayload(t *testing.T) {
	ev := Event{Kind: KindSyncProgress, Payload: []byte(`{"stage": `)}

	var p SyncProgress
	err := ev.Decode(&p)
	if err == nil {
		t.Fatal("Expected decode of truncated payload to fail")
	}
	if errs.KindOf(err) != errs.Validation {
		t.Errorf("Expected Validation kind, got %s", errs.KindOf(err))
	}
}

func TestAllKinds_CoversEveryPayload(t *testing.T) {
	payloads := []Payload{
		ConnectivityChanged{},
		AuthStateChanged{},
		SyncProgress{},
		SyncCompleted{},
		SyncFailed{},
		LoginPromptRequested{},
	}

	kinds := map[Kind]bool{}
	for _, k := range AllKinds() {
		kinds[k] = true
	}
	if len(kinds) != len(payloads) {
		t.Fatalf("Expected %d kinds, got %d", len(payloads), len(kinds))
	}
	for _, p := range payloads {
		if !kinds[p.EventKind()] {
			t.Errorf("Expected AllKinds to include %s", p.EventKind())
		}
	}
}
