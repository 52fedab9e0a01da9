// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package sync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/auth"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/cache"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/events"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/osm"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/store"
)

// The production wiring must satisfy the seams without adapters.
var (
	_ Upstream  = (*osm.Client)(nil)
	_ Store     = (store.Store)(nil)
	_ Session   = (*auth.Manager)(nil)
	_ PageCache = (*cache.Cache)(nil)
)

func isoDaysFromNow(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

// fakeUpstream serves canned payloads and records calls. Failures are
// injected per call key; one key can also be gated on a channel so a
// test can hold a run mid-flight.
type fakeUpstream struct {
	mu sync.Mutex

	roles      []models.Section
	terms      map[int][]models.Term
	events     map[int][]models.Event
	attendance map[string][]models.Attendance
	shared     map[string][]models.Attendance
	members    map[int][]models.MemberWithSection
	flexiLists map[int][]models.FlexiList
	structures map[string]*models.FlexiStructure

	fail    map[string]error
	calls   map[string]int
	termIDs map[int]string

	gateKey string
	gate    chan struct{}
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		terms:      make(map[int][]models.Term),
		events:     make(map[int][]models.Event),
		attendance: make(map[string][]models.Attendance),
		shared:     make(map[string][]models.Attendance),
		members:    make(map[int][]models.MemberWithSection),
		flexiLists: make(map[int][]models.FlexiList),
		structures: make(map[string]*models.FlexiStructure),
		fail:       make(map[string]error),
		calls:      make(map[string]int),
		termIDs:    make(map[int]string),
	}
}

func (f *fakeUpstream) enter(key string) (error, chan struct{}) {
	f.mu.Lock()
	f.calls[key]++
	err := f.fail[key]
	var gate chan struct{}
	if f.gateKey == key {
		gate = f.gate
	}
	f.mu.Unlock()
	return err, gate
}

func (f *fakeUpstream) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeUpstream) failOn(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = err
}

func (f *fakeUpstream) gateOn(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gateKey = key
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeUpstream) termUsed(sectionID int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.termIDs[sectionID]
}

func (f *fakeUpstream) GetUserRoles(ctx context.Context) ([]models.Section, error) {
	err, gate := f.enter("roles")
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Section(nil), f.roles...), nil
}

func (f *fakeUpstream) GetTerms(ctx context.Context) (map[int][]models.Term, error) {
	err, _ := f.enter("terms")
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int][]models.Term, len(f.terms))
	for sid, ts := range f.terms {
		out[sid] = append([]models.Term(nil), ts...)
	}
	return out, nil
}

func (f *fakeUpstream) GetEvents(ctx context.Context, sectionID int, termID string) ([]models.Event, error) {
	err, _ := f.enter(fmt.Sprintf("events:%d", sectionID))
	f.mu.Lock()
	f.termIDs[sectionID] = termID
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Event(nil), f.events[sectionID]...), nil
}

func (f *fakeUpstream) GetAttendance(ctx context.Context, sectionID int, eventID, termID string) ([]models.Attendance, error) {
	err, gate := f.enter("attendance:" + eventID)
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Attendance(nil), f.attendance[eventID]...), nil
}

func (f *fakeUpstream) GetSharedAttendance(ctx context.Context, eventID string, sectionID int) ([]models.Attendance, error) {
	err, _ := f.enter("shared:" + eventID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Attendance(nil), f.shared[eventID]...), nil
}

func (f *fakeUpstream) GetMembersGrid(ctx context.Context, sectionID int) ([]models.MemberWithSection, error) {
	err, _ := f.enter(fmt.Sprintf("members:%d", sectionID))
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MemberWithSection(nil), f.members[sectionID]...), nil
}

func (f *fakeUpstream) GetFlexiRecords(ctx context.Context, sectionID int) ([]models.FlexiList, error) {
	err, _ := f.enter(fmt.Sprintf("flexilists:%d", sectionID))
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.FlexiList(nil), f.flexiLists[sectionID]...), nil
}

func (f *fakeUpstream) GetFlexiStructure(ctx context.Context, extraID string, sectionID int) (*models.FlexiStructure, error) {
	err, _ := f.enter("flexistructure:" + extraID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.structures[extraID]; ok {
		cp := *s
		return &cp, nil
	}
	return &models.FlexiStructure{ExtraID: extraID}, nil
}

// fakeStore keeps everything in maps and mirrors the replace/merge
// contracts of the real backends closely enough for orchestration tests.
type fakeStore struct {
	mu sync.Mutex

	sections   []models.Section
	terms      map[int][]models.Term
	events     map[int][]models.Event
	attendance map[string][]models.Attendance
	shared     map[string][]models.Attendance
	members    map[int][]models.MemberWithSection
	meta       map[string]models.SharedEventMetadata
	flexiLists map[int][]models.FlexiList
	structures map[string]*models.FlexiStructure
	statuses   map[string]models.SyncStatus

	fail map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		terms:      make(map[int][]models.Term),
		events:     make(map[int][]models.Event),
		attendance: make(map[string][]models.Attendance),
		shared:     make(map[string][]models.Attendance),
		members:    make(map[int][]models.MemberWithSection),
		meta:       make(map[string]models.SharedEventMetadata),
		flexiLists: make(map[int][]models.FlexiList),
		structures: make(map[string]*models.FlexiStructure),
		statuses:   make(map[string]models.SyncStatus),
		fail:       make(map[string]error),
	}
}

func (s *fakeStore) failOn(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[key] = err
}

func (s *fakeStore) failure(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail[key]
}

func (s *fakeStore) SaveSections(ctx context.Context, sections []models.Section) error {
	if err := s.failure("SaveSections"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections = append([]models.Section(nil), sections...)
	return nil
}

func (s *fakeStore) GetSections(ctx context.Context) ([]models.Section, error) {
	if err := s.failure("GetSections"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Section(nil), s.sections...), nil
}

func (s *fakeStore) SaveTerms(ctx context.Context, sectionID int, terms []models.Term) error {
	if err := s.failure("SaveTerms"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[sectionID] = append([]models.Term(nil), terms...)
	return nil
}

func (s *fakeStore) GetTerms(ctx context.Context, sectionID int) ([]models.Term, error) {
	if err := s.failure("GetTerms"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Term(nil), s.terms[sectionID]...), nil
}

func (s *fakeStore) SaveEvents(ctx context.Context, sectionID int, evs []models.Event) error {
	if err := s.failure("SaveEvents"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[sectionID] = append([]models.Event(nil), evs...)
	return nil
}

func (s *fakeStore) GetAllEvents(ctx context.Context) ([]models.Event, error) {
	if err := s.failure("GetAllEvents"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Event
	for _, evs := range s.events {
		all = append(all, evs...)
	}
	return all, nil
}

func (s *fakeStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	if err := s.failure("GetEvent"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evs := range s.events {
		for _, ev := range evs {
			if ev.EventID == eventID {
				cp := ev
				return &cp, nil
			}
		}
	}
	return nil, errs.New(errs.NotFound, "fakestore.GetEvent", "no such event")
}

func (s *fakeStore) SaveAttendance(ctx context.Context, eventID string, rows []models.Attendance) error {
	if err := s.failure("SaveAttendance"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance[eventID] = append([]models.Attendance(nil), rows...)
	return nil
}

func (s *fakeStore) SaveSharedAttendance(ctx context.Context, eventID string, rows []models.Attendance) error {
	if err := s.failure("SaveSharedAttendance"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared[eventID] = append([]models.Attendance(nil), rows...)
	return nil
}

func (s *fakeStore) SaveMembers(ctx context.Context, sectionIDs []int, rows []models.MemberWithSection) error {
	if err := s.failure("SaveMembers"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sid := range sectionIDs {
		s.members[sid] = append([]models.MemberWithSection(nil), rows...)
	}
	return nil
}

func (s *fakeStore) SaveSharedEventMetadata(ctx context.Context, meta models.SharedEventMetadata) error {
	if err := s.failure("SaveSharedEventMetadata"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[meta.EventID] = meta
	return nil
}

func (s *fakeStore) GetSharedEventMetadata(ctx context.Context, eventID string) (*models.SharedEventMetadata, error) {
	if err := s.failure("GetSharedEventMetadata"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.meta[eventID]; ok {
		cp := m
		return &cp, nil
	}
	return nil, errs.New(errs.NotFound, "fakestore.GetSharedEventMetadata", "no metadata")
}

func (s *fakeStore) SaveFlexiLists(ctx context.Context, sectionID int, lists []models.FlexiList) error {
	if err := s.failure("SaveFlexiLists"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flexiLists[sectionID] = append([]models.FlexiList(nil), lists...)
	return nil
}

func (s *fakeStore) SaveFlexiStructure(ctx context.Context, structure models.FlexiStructure) error {
	if err := s.failure("SaveFlexiStructure"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := structure
	s.structures[structure.ExtraID] = &cp
	return nil
}

func (s *fakeStore) SetSyncStatus(ctx context.Context, status models.SyncStatus) error {
	if err := s.failure("SetSyncStatus"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.TableName] = status
	return nil
}

func (s *fakeStore) metaFor(eventID string) (models.SharedEventMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[eventID]
	return m, ok
}

func (s *fakeStore) attendanceFor(eventID string) []models.Attendance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Attendance(nil), s.attendance[eventID]...)
}

func (s *fakeStore) sharedFor(eventID string) []models.Attendance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Attendance(nil), s.shared[eventID]...)
}

func (s *fakeStore) membersFor(sectionID int) []models.MemberWithSection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MemberWithSection(nil), s.members[sectionID]...)
}

func (s *fakeStore) statusFor(table string) (models.SyncStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[table]
	return st, ok
}

// staticSession reports a fixed credential state.
type staticSession struct {
	mu    sync.Mutex
	state auth.State
}

func (s *staticSession) State() auth.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *staticSession) set(state auth.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// cacheSpy records invalidated page keys.
type cacheSpy struct {
	mu   sync.Mutex
	keys []string
}

func (c *cacheSpy) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	return nil
}

func (c *cacheSpy) invalidated(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.keys {
		if k == key {
			return true
		}
	}
	return false
}

func testSyncConfig() *config.Config {
	return &config.Config{
		Sync: config.SyncConfig{
			Auto:             false,
			AutoInterval:     time.Hour,
			WindowPastDays:   7,
			WindowFutureDays: 90,
			FlexiWhitelist:   []string{"Viking Event Mgmt", "Viking Section Movers"},
		},
		Governor: config.GovernorConfig{
			BatchSize:  2,
			BatchPause: time.Millisecond,
		},
	}
}

// twoSectionFixture seeds an upstream with two sections, current terms,
// one shared event pair, and per-section extras inside the window.
func twoSectionFixture(api *fakeUpstream) {
	api.roles = []models.Section{
		{SectionID: 101, Name: "Monday Beavers", SectionType: "beavers"},
		{SectionID: 102, Name: "Thursday Cubs", SectionType: "cubs"},
	}
	for _, sid := range []int{101, 102} {
		api.terms[sid] = []models.Term{{
			TermID:    fmt.Sprintf("term-%d", sid),
			SectionID: sid,
			Name:      "Summer",
			StartDate: isoDaysFromNow(-30),
			EndDate:   isoDaysFromNow(60),
		}}
	}
	camp := isoDaysFromNow(10)
	api.events[101] = []models.Event{
		{EventID: "evt-101-camp", SectionID: 101, TermID: "term-101", Name: "Camp Weekend", StartDate: camp},
		{EventID: "evt-101-hike", SectionID: 101, TermID: "term-101", Name: "District Hike", StartDate: isoDaysFromNow(3)},
	}
	api.events[102] = []models.Event{
		{EventID: "evt-102-camp", SectionID: 102, TermID: "term-102", Name: "Camp Weekend", StartDate: camp},
	}
	api.attendance["evt-101-camp"] = []models.Attendance{
		{EventID: "evt-101-camp", ScoutID: 1, SectionID: 101, FirstName: "Alice", LastName: "Archer", Attending: "yes"},
	}
	api.attendance["evt-101-hike"] = []models.Attendance{
		{EventID: "evt-101-hike", ScoutID: 1, SectionID: 101, FirstName: "Alice", LastName: "Archer", Attending: "no"},
	}
	api.attendance["evt-102-camp"] = []models.Attendance{
		{EventID: "evt-102-camp", ScoutID: 2, SectionID: 102, FirstName: "Ben", LastName: "Baker", Attending: "yes"},
	}
	api.shared["evt-101-camp"] = []models.Attendance{
		{EventID: "evt-101-camp", ScoutID: 2, SectionID: 102, FirstName: "Ben", LastName: "Baker", Attending: "yes", IsSharedSection: true},
	}
	api.shared["evt-102-camp"] = []models.Attendance{
		{EventID: "evt-102-camp", ScoutID: 1, SectionID: 101, FirstName: "Alice", LastName: "Archer", Attending: "yes", IsSharedSection: true},
	}
	api.members[101] = []models.MemberWithSection{{
		Member:  models.Member{ScoutID: 1, FirstName: "Alice", LastName: "Archer"},
		Section: models.MemberSection{ScoutID: 1, SectionID: 101, PersonType: "young_person"},
	}}
	api.members[102] = []models.MemberWithSection{{
		Member:  models.Member{ScoutID: 2, FirstName: "Ben", LastName: "Baker"},
		Section: models.MemberSection{ScoutID: 2, SectionID: 102, PersonType: "young_person"},
	}}
	api.flexiLists[101] = []models.FlexiList{
		{SectionID: 101, ExtraID: "flexi-1", Name: "Viking Event Mgmt"},
		{SectionID: 101, ExtraID: "flexi-9", Name: "Badge Tracker"},
	}
	api.flexiLists[102] = []models.FlexiList{
		{SectionID: 102, ExtraID: "flexi-1", Name: "viking event mgmt"},
	}
	api.structures["flexi-1"] = &models.FlexiStructure{ExtraID: "flexi-1", Name: "Viking Event Mgmt"}
}

type managerFixture struct {
	api     *fakeUpstream
	store   *fakeStore
	bus     *events.Bus
	cache   *cacheSpy
	session *staticSession
	mgr     *Manager
}

func newManagerFixture(t *testing.T) *managerFixture {
	f := &managerFixture{
		api:     newFakeUpstream(),
		store:   newFakeStore(),
		bus:     events.NewBus(),
		cache:   &cacheSpy{},
		session: &staticSession{state: auth.StateAuthenticated},
	}
	t.Cleanup(func() { _ = f.bus.Close() })
	f.mgr = New(testSyncConfig(), f.api, f.store, f.bus, f.cache, f.session)
	return f
}
