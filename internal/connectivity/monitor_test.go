// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package connectivity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/events"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/osm"
)

var _ Prober = (*osm.Client)(nil)

type fakeProber struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (f *fakeProber) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) == 0 {
		return nil
	}
	err := f.results[0]
	f.results = f.results[1:]
	return err
}

func (f *fakeProber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type busSpy struct {
	mu       sync.Mutex
	payloads []events.Payload
}

func (b *busSpy) Publish(ctx context.Context, p events.Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, p)
	return nil
}

func (b *busSpy) transitions() []events.ConnectivityChanged {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.ConnectivityChanged
	for _, p := range b.payloads {
		if c, ok := p.(events.ConnectivityChanged); ok {
			out = append(out, c)
		}
	}
	return out
}

func testCfg() config.ConnectivityConfig {
	return config.ConnectivityConfig{
		ProbeInterval:     30 * time.Second,
		ProbeMaxInterval:  5 * time.Minute,
		BackoffMultiplier: 1.5,
	}
}

func (m *Monitor) currentInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interval
}

func probeErr() error {
	return errs.New(errs.Network, "osm.Ping", "connection refused")
}

func rateLimitedErr() error {
	return errs.New(errs.RateLimited, "osm.Ping", "rate limited upstream")
}

func TestMonitor_StartsReachable(t *testing.T) {
	m := New(testCfg(), &fakeProber{}, nil)
	if !m.IsOnline() || !m.APIReachable() || !m.Effective() {
		t.Error("Expected a fresh monitor to report online and reachable")
	}
	if got := m.currentInterval(); got != 30*time.Second {
		t.Errorf("Expected initial interval 30s, got %v", got)
	}
}

func TestMonitor_BackoffGrowsOnFailureAndCaps(t *testing.T) {
	p := &fakeProber{results: []error{
		probeErr(), probeErr(), probeErr(), probeErr(), probeErr(),
		probeErr(), probeErr(), probeErr(), probeErr(), probeErr(),
	}}
	m := New(testCfg(), p, nil)

	want := []time.Duration{
		30 * time.Second,
		45 * time.Second,
		67500 * time.Millisecond,
		101250 * time.Millisecond,
	}
	for i, w := range want {
		m.probe(context.Background())
		if got := m.currentInterval(); got != w {
			t.Errorf("Probe %d: expected interval %v, got %v", i+1, w, got)
		}
	}

	for i := 0; i < 6; i++ {
		m.probe(context.Background())
	}
	if got := m.currentInterval(); got != 5*time.Minute {
		t.Errorf("Expected interval capped at 5m, got %v", got)
	}
	if m.APIReachable() {
		t.Error("Expected unreachable after failed probes")
	}
}

func TestMonitor_SuccessResetsBackoff(t *testing.T) {
	p := &fakeProber{results: []error{probeErr(), probeErr(), probeErr(), nil, probeErr()}}
	m := New(testCfg(), p, nil)

	for i := 0; i < 3; i++ {
		m.probe(context.Background())
	}
	if got := m.currentInterval(); got != 67500*time.Millisecond {
		t.Fatalf("Expected interval 67.5s before reset, got %v", got)
	}

	m.probe(context.Background())
	if got := m.currentInterval(); got != 30*time.Second {
		t.Errorf("Expected success to reset interval to 30s, got %v", got)
	}
	if !m.APIReachable() {
		t.Error("Expected reachable after successful probe")
	}

	m.probe(context.Background())
	if got := m.currentInterval(); got != 45*time.Second {
		t.Errorf("Expected first failure after reset to grow to 45s, got %v", got)
	}
}

func TestMonitor_RateLimitedProbeHoldsEverything(t *testing.T) {
	p := &fakeProber{results: []error{probeErr(), rateLimitedErr(), probeErr()}}
	bus := &busSpy{}
	m := New(testCfg(), p, bus)

	m.probe(context.Background())
	if m.APIReachable() {
		t.Fatal("Expected unreachable after failed probe")
	}
	before := m.currentInterval()

	m.probe(context.Background())
	if got := m.currentInterval(); got != before {
		t.Errorf("Expected rate-limited probe to hold interval %v, got %v", before, got)
	}
	if m.APIReachable() {
		t.Error("Expected rate-limited probe to hold reachability")
	}
	if n := len(bus.transitions()); n != 1 {
		t.Errorf("Expected no event from a rate-limited probe, got %d total", n)
	}

	m.probe(context.Background())
	if got := m.currentInterval(); got != 45*time.Second {
		t.Errorf("Expected backoff to resume where it left off, got %v", got)
	}
}

func TestMonitor_RateLimitedHoldsReachableToo(t *testing.T) {
	p := &fakeProber{results: []error{rateLimitedErr()}}
	bus := &busSpy{}
	m := New(testCfg(), p, bus)

	m.probe(context.Background())
	if !m.APIReachable() {
		t.Error("Expected rate-limited probe to keep prior reachable state")
	}
	if n := len(bus.transitions()); n != 0 {
		t.Errorf("Expected no events, got %d", n)
	}
}

func TestMonitor_EmitsOnEffectiveTransitionsOnly(t *testing.T) {
	p := &fakeProber{results: []error{probeErr(), probeErr(), nil}}
	bus := &busSpy{}
	m := New(testCfg(), p, bus)

	m.probe(context.Background())
	m.probe(context.Background())
	m.probe(context.Background())

	got := bus.transitions()
	if len(got) != 2 {
		t.Fatalf("Expected 2 transitions (down, up), got %d", len(got))
	}
	if got[0].Online || !got[1].Online {
		t.Errorf("Expected down then up, got %+v", got)
	}
	if got[0].CheckedAt.IsZero() {
		t.Error("Expected CheckedAt to be stamped")
	}
}

func TestMonitor_SetOnline(t *testing.T) {
	bus := &busSpy{}
	m := New(testCfg(), &fakeProber{}, bus)

	m.SetOnline(context.Background(), false)
	if m.Effective() {
		t.Error("Expected effective offline after SetOnline(false)")
	}
	if m.APIReachable() != true {
		t.Error("Expected platform flag to leave reachability alone")
	}

	m.SetOnline(context.Background(), false)
	if n := len(bus.transitions()); n != 1 {
		t.Errorf("Expected repeated SetOnline(false) to emit once, got %d", n)
	}

	m.SetOnline(context.Background(), true)
	got := bus.transitions()
	if len(got) != 2 || !got[1].Online {
		t.Errorf("Expected offline then online transitions, got %+v", got)
	}
	if len(m.probeNow) != 1 {
		t.Error("Expected regained network to nudge an immediate probe")
	}
}

func TestMonitor_ProbeSuccessWhileOfflineStaysSilent(t *testing.T) {
	bus := &busSpy{}
	m := New(testCfg(), &fakeProber{}, bus)

	m.SetOnline(context.Background(), false)
	m.probe(context.Background())

	if m.Effective() {
		t.Error("Expected effective to stay offline while the platform flag is down")
	}
	if n := len(bus.transitions()); n != 1 {
		t.Errorf("Expected only the SetOnline transition, got %d", n)
	}
}

func TestMonitor_StartStop(t *testing.T) {
	cfg := config.ConnectivityConfig{
		ProbeInterval:     5 * time.Millisecond,
		ProbeMaxInterval:  20 * time.Millisecond,
		BackoffMultiplier: 1.5,
	}
	p := &fakeProber{}
	m := New(cfg, p, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && p.count() < 3 {
		time.Sleep(5 * time.Millisecond)
	}
	if p.count() < 3 {
		t.Fatalf("Expected at least 3 probes, got %d", p.count())
	}

	m.Stop()
	m.Stop()

	settled := p.count()
	time.Sleep(30 * time.Millisecond)
	if got := p.count(); got != settled {
		t.Errorf("Expected no probes after Stop, got %d more", got-settled)
	}
}
