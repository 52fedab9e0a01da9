// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package store_test

import (
	"testing"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/store"
)

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := store.Open(config.StoreConfig{Backend: "sqlite", Dir: t.TempDir()}, false)
	if err == nil {
		t.Fatal("Expected error for unknown backend")
	}
	if errs.KindOf(err) != errs.Validation {
		t.Errorf("Expected Validation error, got kind %q: %v", errs.KindOf(err), err)
	}
}

func TestOpen_ExplicitBadger(t *testing.T) {
	s, err := store.Open(config.StoreConfig{Backend: store.BackendBadger, Dir: t.TempDir()}, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if s.Backend() != store.BackendBadger {
		t.Errorf("Expected badger backend, got %q", s.Backend())
	}
}

func TestOpen_AutoSelectsABackend(t *testing.T) {
	s, err := store.Open(config.StoreConfig{Backend: store.BackendAuto, Dir: t.TempDir()}, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if b := s.Backend(); b != store.BackendDuckDB && b != store.BackendBadger {
		t.Errorf("Expected a known backend, got %q", b)
	}
}
