// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package store

import (
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/store/badgerstore"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/store/duckstore"
)

// Backend names accepted by config store.backend.
const (
	BackendAuto   = "auto"
	BackendDuckDB = "duckdb"
	BackendBadger = "badger"
)

// Open selects and opens a backend. "auto" prefers DuckDB and falls
// back to Badger when the embedded engine cannot open its file, so a
// host without the native library still gets a working store.
func Open(cfg config.StoreConfig, demoMode bool) (Store, error) {
	const op = "store.Open"

	switch cfg.Backend {
	case BackendDuckDB:
		s, err := duckstore.Open(cfg, demoMode)
		if err != nil {
			return nil, err
		}
		metrics.SetStoreBackend(BackendDuckDB)
		return s, nil

	case BackendBadger:
		s, err := badgerstore.Open(cfg, demoMode)
		if err != nil {
			return nil, err
		}
		metrics.SetStoreBackend(BackendBadger)
		return s, nil

	case BackendAuto, "":
		s, err := duckstore.Open(cfg, demoMode)
		if err == nil {
			metrics.SetStoreBackend(BackendDuckDB)
			return s, nil
		}
		logging.Warn().Err(err).Msg("DuckDB backend unavailable, falling back to Badger")

		b, berr := badgerstore.Open(cfg, demoMode)
		if berr != nil {
			return nil, berr
		}
		metrics.SetStoreBackend(BackendBadger)
		return b, nil

	default:
		return nil, errs.Newf(errs.Validation, op, "unknown store backend %q", cfg.Backend)
	}
}
