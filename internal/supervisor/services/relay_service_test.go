// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockRelay is a test double for StartStopRelay interface.
type mockRelay struct {
	startErr   error
	startCount atomic.Int32
	stopCount  atomic.Int32
}

func (m *mockRelay) Start(ctx context.Context) error {
	m.startCount.Add(1)
	return m.startErr
}

func (m *mockRelay) Stop() {
	m.stopCount.Add(1)
}

func TestRelayService_Interface(t *testing.T) {
	// Verify RelayService implements suture.Service
	var _ suture.Service = (*RelayService)(nil)
}

func TestNewRelayService(t *testing.T) {
	relay := &mockRelay{}
	svc := NewRelayService(relay)

	if svc == nil {
		t.Fatal("NewRelayService returned nil")
	}
	if svc.relay != relay {
		t.Error("relay not assigned correctly")
	}
	if svc.name != "bus-relay" {
		t.Errorf("expected name 'bus-relay', got %q", svc.name)
	}
}

func TestRelayService_Serve(t *testing.T) {
	t.Run("stops relay on context cancellation", func(t *testing.T) {
		relay := &mockRelay{}
		svc := NewRelayService(relay)

		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			errCh <- svc.Serve(ctx)
		}()

		// Wait for start with polling (more reliable in CI under load)
		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			if relay.startCount.Load() >= 1 {
				break
			}
		}
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Error("Serve did not return after context cancellation")
		}

		if got := relay.startCount.Load(); got != 1 {
			t.Errorf("expected 1 Start call, got %d", got)
		}
		if got := relay.stopCount.Load(); got != 1 {
			t.Errorf("expected 1 Stop call, got %d", got)
		}
	})

	t.Run("returns error on startup failure", func(t *testing.T) {
		expectedErr := errors.New("relay already started")
		relay := &mockRelay{startErr: expectedErr}
		svc := NewRelayService(relay)

		err := svc.Serve(context.Background())
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error containing %v, got %v", expectedErr, err)
		}
		if got := relay.stopCount.Load(); got != 0 {
			t.Errorf("expected Stop not to be called after failed start, got %d calls", got)
		}
	})
}

func TestRelayService_String(t *testing.T) {
	svc := NewRelayService(&mockRelay{})

	if svc.String() != "bus-relay" {
		t.Errorf("expected 'bus-relay', got %q", svc.String())
	}
}

func TestRelayService_WithSupervisor(t *testing.T) {
	relay := &mockRelay{}
	svc := NewRelayService(relay)

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	errCh := sup.ServeBackground(ctx)

	// Wait for relay to start with polling
	var started bool
	for i := 0; i < 10; i++ {
		time.Sleep(20 * time.Millisecond)
		if relay.startCount.Load() >= 1 {
			started = true
			break
		}
	}
	if !started {
		t.Error("relay Start was not called")
	}

	cancel()
	<-errCh

	if relay.stopCount.Load() < 1 {
		t.Error("relay Stop was not called")
	}
}
