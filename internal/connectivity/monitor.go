// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package connectivity tracks whether the upstream API is worth
// calling. It holds two flags: the platform's own online signal
// (SetOnline, true by default for the daemon) and upstream
// reachability, driven by a probe loop with exponential backoff.
// The effective value, online AND reachable, is what consumers see
// and what ConnectivityChanged events report.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/events"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
)

// Prober issues the upstream health check.
type Prober interface {
	Ping(ctx context.Context) error
}

// Publisher is the slice of the event bus the monitor emits on.
type Publisher interface {
	Publish(ctx context.Context, p events.Payload) error
}

// Monitor owns the reachability flags and the probe loop. Both flags
// start true so a fresh process does not sit in a false offline window
// before the first probe lands.
type Monitor struct {
	prober Prober
	bus    Publisher
	cfg    config.ConnectivityConfig

	mu           sync.RWMutex
	online       bool
	apiReachable bool
	interval     time.Duration
	backoff      *backoff.ExponentialBackOff

	running  bool
	stopChan chan struct{}
	probeNow chan struct{}
	wg       sync.WaitGroup
}

// New builds a Monitor. bus may be nil in tests.
func New(cfg config.ConnectivityConfig, prober Prober, bus Publisher) *Monitor {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.ProbeInterval
	b.MaxInterval = cfg.ProbeMaxInterval
	b.Multiplier = cfg.BackoffMultiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	m := &Monitor{
		prober:       prober,
		bus:          bus,
		cfg:          cfg,
		online:       true,
		apiReachable: true,
		interval:     cfg.ProbeInterval,
		backoff:      b,
		probeNow:     make(chan struct{}, 1),
	}
	metrics.SetConnectivity(true)
	return m
}

// IsOnline reports the platform's network flag.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// APIReachable reports the last probe verdict.
func (m *Monitor) APIReachable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.apiReachable
}

// Effective reports the value consumers act on: online AND reachable.
func (m *Monitor) Effective() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online && m.apiReachable
}

// SetOnline records the platform's network signal. Regaining the
// network nudges an immediate probe so reachability catches up without
// waiting out the current backoff interval.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	prev := m.online && m.apiReachable
	regained := online && !m.online
	m.online = online
	effective := m.online && m.apiReachable
	m.mu.Unlock()

	metrics.SetConnectivity(effective)
	if effective != prev {
		m.emit(ctx, events.ConnectivityChanged{Online: effective, CheckedAt: time.Now()})
	}
	if regained {
		select {
		case m.probeNow <- struct{}{}:
		default:
		}
	}
}

// Start launches the probe loop. A second Start while running is a
// no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.mu.Unlock()

	logging.Info().
		Dur("interval", m.cfg.ProbeInterval).
		Dur("max_interval", m.cfg.ProbeMaxInterval).
		Msg("Starting connectivity monitor")

	m.wg.Add(1)
	go m.loop(ctx)
	return nil
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	m.wg.Wait()
	logging.Info().Msg("Connectivity monitor stopped")
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	m.probe(ctx)
	for {
		m.mu.RLock()
		interval := m.interval
		m.mu.RUnlock()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.stopChan:
			timer.Stop()
			return
		case <-m.probeNow:
			timer.Stop()
			m.probe(ctx)
		case <-timer.C:
			m.probe(ctx)
		}
	}
}

// probe runs one health check and folds the verdict into the flags.
// A rate-limited probe is a non-answer: reachability, the backoff
// position, and the probe cadence all stay where they were.
func (m *Monitor) probe(ctx context.Context) {
	err := m.prober.Ping(ctx)
	switch {
	case err == nil:
		metrics.RecordProbe("success")
		m.applyProbe(ctx, true)
	case errs.IsRateLimited(err):
		metrics.RecordProbe("rate_limited")
		logging.Debug().Msg("Health probe rate limited; holding reachability and cadence")
	default:
		metrics.RecordProbe("failure")
		m.applyProbe(ctx, false)
		m.mu.RLock()
		next := m.interval
		m.mu.RUnlock()
		logging.Warn().Err(err).Dur("next_probe", next).Msg("Health probe failed")
	}
}

func (m *Monitor) applyProbe(ctx context.Context, reachable bool) {
	m.mu.Lock()
	prev := m.online && m.apiReachable
	m.apiReachable = reachable
	if reachable {
		m.backoff.Reset()
	}
	m.interval = m.backoff.NextBackOff()
	if m.interval < 0 {
		m.interval = m.cfg.ProbeMaxInterval
	}
	effective := m.online && m.apiReachable
	m.mu.Unlock()

	metrics.SetConnectivity(effective)
	if effective != prev {
		m.emit(ctx, events.ConnectivityChanged{Online: effective, CheckedAt: time.Now()})
	}
}

func (m *Monitor) emit(ctx context.Context, p events.Payload) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, p); err != nil {
		logging.Warn().Err(err).Msg("Dropped connectivity event after bus publish failure")
	}
}
