// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/auth"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/cache"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/events"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// Stage names as they appear in SyncProgress and SyncCompleted events.
const (
	StageDashboard  = "dashboard"
	StageBackground = "background"
)

// Result statuses.
const (
	StatusCompleted  = "completed"
	StatusInProgress = "sync in progress"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Upstream is the slice of the OSM client the sync engine reads from.
type Upstream interface {
	GetUserRoles(ctx context.Context) ([]models.Section, error)
	GetTerms(ctx context.Context) (map[int][]models.Term, error)
	GetEvents(ctx context.Context, sectionID int, termID string) ([]models.Event, error)
	GetAttendance(ctx context.Context, sectionID int, eventID, termID string) ([]models.Attendance, error)
	GetSharedAttendance(ctx context.Context, eventID string, sectionID int) ([]models.Attendance, error)
	GetMembersGrid(ctx context.Context, sectionID int) ([]models.MemberWithSection, error)
	GetFlexiRecords(ctx context.Context, sectionID int) ([]models.FlexiList, error)
	GetFlexiStructure(ctx context.Context, extraID string, sectionID int) (*models.FlexiStructure, error)
}

// Store is the slice of the persistence layer the sync engine writes to.
type Store interface {
	SaveSections(ctx context.Context, sections []models.Section) error
	GetSections(ctx context.Context) ([]models.Section, error)
	SaveTerms(ctx context.Context, sectionID int, terms []models.Term) error
	GetTerms(ctx context.Context, sectionID int) ([]models.Term, error)
	SaveEvents(ctx context.Context, sectionID int, evs []models.Event) error
	GetAllEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	SaveAttendance(ctx context.Context, eventID string, rows []models.Attendance) error
	SaveSharedAttendance(ctx context.Context, eventID string, rows []models.Attendance) error
	SaveMembers(ctx context.Context, sectionIDs []int, rows []models.MemberWithSection) error
	SaveSharedEventMetadata(ctx context.Context, meta models.SharedEventMetadata) error
	GetSharedEventMetadata(ctx context.Context, eventID string) (*models.SharedEventMetadata, error)
	SaveFlexiLists(ctx context.Context, sectionID int, lists []models.FlexiList) error
	SaveFlexiStructure(ctx context.Context, structure models.FlexiStructure) error
	SetSyncStatus(ctx context.Context, status models.SyncStatus) error
}

// Session reports the credential state the engine gates on.
type Session interface {
	State() auth.State
}

// PageCache invalidates derived page snapshots after fresh writes.
type PageCache interface {
	Invalidate(ctx context.Context, key string) error
}

// Failure records one isolated per-scope error from a background pass.
type Failure struct {
	Scope string `json:"scope"` // "section" or "event"
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Err   string `json:"error"`
}

// Result summarises one sync run.
type Result struct {
	RunID     string         `json:"run_id,omitempty"`
	Stage     string         `json:"stage"`
	Status    string         `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Counts    map[string]int `json:"counts"`
	Failures  []Failure      `json:"failures,omitempty"`
}

func (r *Result) add(key string, n int) {
	if r.Counts == nil {
		r.Counts = make(map[string]int)
	}
	r.Counts[key] += n
}

func (r *Result) fail(scope, id, name string, err error) {
	r.Failures = append(r.Failures, Failure{Scope: scope, ID: id, Name: name, Err: err.Error()})
}

// Manager drives the two-stage refresh pipeline. Runs never overlap;
// a call that lands while another run is active reports StatusInProgress
// instead of queueing or failing.
type Manager struct {
	api     Upstream
	store   Store
	bus     *events.Bus
	cache   PageCache
	session Session
	cfg     *config.Config

	mu         sync.RWMutex
	running    bool
	syncing    bool
	ready      bool
	lastSync   time.Time
	lastResult *Result

	flight    singleflight.Group
	stopChan  chan struct{}
	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup

	onSyncCompleted func(res *Result)
}

// New wires a sync manager. The bus and cache may be nil in tests.
func New(cfg *config.Config, api Upstream, st Store, bus *events.Bus, pages PageCache, session Session) *Manager {
	return &Manager{
		api:     api,
		store:   st,
		bus:     bus,
		cache:   pages,
		session: session,
		cfg:     cfg,
	}
}

// SetOnSyncCompleted registers a callback invoked after each finished run.
func (m *Manager) SetOnSyncCompleted(fn func(res *Result)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSyncCompleted = fn
}

// Start launches the auto-sync loops: the connectivity-regained trigger
// and, when enabled, the periodic full refresh. The connectivity
// subscription is registered before Start returns so a transition right
// after startup is never missed.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("sync manager is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)

	var connectivity <-chan events.Event
	if m.bus != nil {
		var err error
		connectivity, err = m.bus.Subscribe(runCtx, events.KindConnectivityChanged)
		if err != nil {
			cancel()
			return fmt.Errorf("connectivity subscription failed: %w", err)
		}
	}

	m.running = true
	m.stopChan = make(chan struct{})
	m.runCtx = runCtx
	m.runCancel = cancel

	m.wg.Add(1)
	go m.autoLoop(runCtx, connectivity)

	if m.cfg.Sync.Auto {
		m.wg.Add(1)
		go m.intervalLoop(runCtx)
	}

	logging.Info().
		Bool("auto", m.cfg.Sync.Auto).
		Dur("auto_interval", m.cfg.Sync.AutoInterval).
		Msg("Sync manager started")
	return nil
}

// Stop halts the auto-sync loops and waits for them to exit.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	close(m.stopChan)
	cancel := m.runCancel
	m.runCtx = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// Ready reports whether a dashboard pass has completed since startup.
// Until then reads served from the store may predate this session.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Syncing reports whether a run is active right now.
func (m *Manager) Syncing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.syncing
}

// LastSyncTime returns the completion time of the most recent successful run.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// LastResult returns the outcome of the most recent finished run, or nil.
func (m *Manager) LastResult() *Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastResult
}

// SyncAll runs the dashboard stage followed by the background stage.
func (m *Manager) SyncAll(ctx context.Context) (*Result, error) {
	return m.run(ctx, true)
}

// SyncDashboard runs only the dashboard stage. Auto-sync uses this so a
// flapping connection never pins the governor behind full fan-outs.
func (m *Manager) SyncDashboard(ctx context.Context) (*Result, error) {
	return m.run(ctx, false)
}

// TriggerSync schedules a full run in the background. It reports false
// when one is already active.
//
// The run belongs to the manager, not the caller: an HTTP request
// context ends with its response, so the caller's cancellation is
// detached. Stop still interrupts the run through the manager's own
// context when it is running.
func (m *Manager) TriggerSync(ctx context.Context) bool {
	m.mu.RLock()
	busy := m.syncing
	runCtx := m.runCtx
	m.mu.RUnlock()
	if busy {
		return false
	}

	bg := context.WithoutCancel(ctx)
	if runCtx != nil {
		bg = runCtx
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.SyncAll(bg); err != nil {
			logging.Err(err).Msg("Triggered sync failed")
		}
	}()
	return true
}

func (m *Manager) run(ctx context.Context, background bool) (*Result, error) {
	m.mu.Lock()
	if m.syncing {
		m.mu.Unlock()
		return &Result{Status: StatusInProgress}, nil
	}
	m.syncing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.syncing = false
		m.mu.Unlock()
	}()

	res := &Result{
		RunID:     uuid.New().String(),
		Stage:     StageDashboard,
		Status:    StatusInProgress,
		StartedAt: time.Now().UTC(),
		Counts:    make(map[string]int),
	}
	if background {
		res.Stage = StageBackground
	}

	if err := m.runStage(ctx, StageDashboard, res, m.syncDashboard); err != nil {
		return m.finish(ctx, res, err), err
	}

	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()
	m.invalidate(ctx, string(cache.PageStartup))

	if background {
		if err := m.runStage(ctx, StageBackground, res, m.syncBackground); err != nil {
			return m.finish(ctx, res, err), err
		}
		m.invalidate(ctx, string(cache.PageEvents))
		m.invalidate(ctx, string(cache.PageSections))
	}

	return m.finish(ctx, res, nil), nil
}

// runStage times one stage, records its metric, and emits the terminal
// bus event for it. Stage errors come back to run for status plumbing.
func (m *Manager) runStage(ctx context.Context, stage string, res *Result, fn func(context.Context, *Result) error) error {
	start := time.Now()
	err := fn(ctx, res)
	elapsed := time.Since(start)
	metrics.RecordSyncStage(stage, elapsed, err)

	if err != nil {
		errText := err.Error()
		if ctx.Err() != nil {
			errText = "cancelled"
		}
		m.emit(context.WithoutCancel(ctx), events.SyncFailed{
			Stage:     stage,
			Error:     errText,
			ErrorKind: string(errs.KindOf(err)),
		})
		logging.Err(err).Str("stage", stage).Dur("elapsed", elapsed).Msg("Sync stage failed")
		return err
	}

	m.emit(ctx, events.SyncCompleted{
		Stage:    stage,
		Summary:  res.Counts,
		Duration: elapsed,
	})
	logging.Info().Str("stage", stage).Dur("elapsed", elapsed).Msg("Sync stage completed")
	return nil
}

func (m *Manager) finish(ctx context.Context, res *Result, err error) *Result {
	res.Duration = time.Since(res.StartedAt)

	switch {
	case err == nil:
		res.Status = StatusCompleted
	case ctx.Err() != nil:
		res.Status = StatusCancelled
	default:
		res.Status = StatusFailed
	}

	m.mu.Lock()
	if err == nil {
		m.lastSync = time.Now().UTC()
	}
	m.lastResult = res
	cb := m.onSyncCompleted
	m.mu.Unlock()

	if cb != nil {
		cb(res)
	}
	return res
}

// autoLoop watches connectivity transitions and refreshes the dashboard
// slice whenever the API becomes reachable mid-session.
func (m *Manager) autoLoop(ctx context.Context, ch <-chan events.Event) {
	defer m.wg.Done()

	if ch == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			var change events.ConnectivityChanged
			if err := ev.Decode(&change); err != nil {
				logging.Err(err).Msg("Dropped undecodable connectivity event")
				continue
			}
			if !change.Online {
				continue
			}
			if m.session != nil && m.session.State() != auth.StateAuthenticated {
				continue
			}
			logging.Info().Msg("Connectivity regained, refreshing dashboard data")
			if _, err := m.SyncDashboard(ctx); err != nil {
				logging.Err(err).Msg("Auto sync after reconnect failed")
			}
		}
	}
}

// intervalLoop runs a periodic full refresh while a session is active.
func (m *Manager) intervalLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Sync.AutoInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			if m.session != nil && m.session.State() != auth.StateAuthenticated {
				continue
			}
			if _, err := m.SyncAll(ctx); err != nil {
				logging.Err(err).Msg("Scheduled sync failed")
			}
		}
	}
}

func (m *Manager) progress(ctx context.Context, stage, msg string, counts map[string]int) {
	m.emit(ctx, events.SyncProgress{Stage: stage, Message: msg, Counts: counts})
}

func (m *Manager) emit(ctx context.Context, p events.Payload) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, p); err != nil {
		logging.Warn().Err(err).Str("kind", string(p.EventKind())).Msg("Dropped sync event after bus publish failure")
	}
}

func (m *Manager) invalidate(ctx context.Context, key string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx, key); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Page cache invalidation failed")
	}
}

func (m *Manager) setSyncStatus(ctx context.Context, table string) {
	status := models.SyncStatus{
		TableName:  table,
		LastSyncAt: time.Now().UTC(),
		NeedsSync:  false,
	}
	if err := m.store.SetSyncStatus(ctx, status); err != nil {
		logging.Warn().Err(err).Str("table", table).Msg("Sync status bookkeeping failed")
	}
}
