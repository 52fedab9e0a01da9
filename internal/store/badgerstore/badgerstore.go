// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

// Package badgerstore is the keyed-object-store backend. Each scope
// (a section's events, an event's attendance partition, a FlexiRecord
// data grid) is one JSON document under one key, so replace-by-scope is
// a single Set inside one transaction. Keys follow the browser layout
// patterns (viking_events_<section_id>_offline, ...) with a demo_
// prefix in demo mode.
package badgerstore

import (
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/config"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/models"
)

// BackendName identifies this backend in stats and metrics.
const BackendName = "badger"

const (
	defaultGCPeriod = 10 * time.Minute
	gcDiscardRatio  = 0.5
)

// Store is a Badger-backed implementation of the persistence contract.
type Store struct {
	db       *badger.DB
	dir      string
	demoMode bool

	gcStop chan struct{}
	gcDone chan struct{}
}

// Open opens (or creates) the keyed object store under cfg.BadgerDir()
// and starts the value-log GC loop.
func Open(cfg config.StoreConfig, demoMode bool) (*Store, error) {
	const op = "badgerstore.Open"

	dir := cfg.BadgerDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errs.Wrap(errs.Storage, op, "create store directory", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, op, "open badger", err)
	}

	s := &Store{
		db:       db,
		dir:      dir,
		demoMode: demoMode,
		gcStop:   make(chan struct{}),
		gcDone:   make(chan struct{}),
	}

	gcPeriod := cfg.BadgerGCPeriod
	if gcPeriod <= 0 {
		gcPeriod = defaultGCPeriod
	}
	go s.gcLoop(gcPeriod)

	logging.Info().
		Str("dir", dir).
		Bool("demo_mode", demoMode).
		Msg("Badger store opened")
	return s, nil
}

// gcLoop reclaims value-log space on a fixed period until Close.
func (s *Store) gcLoop(period time.Duration) {
	defer close(s.gcDone)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			s.runGC()
		}
	}
}

func (s *Store) runGC() {
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if err == nil {
			continue
		}
		if err != badger.ErrNoRewrite {
			logging.Warn().Err(err).Msg("Badger value log GC failed")
		}
		return
	}
}

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	const op = "badgerstore.Close"

	close(s.gcStop)
	<-s.gcDone

	if err := s.db.Close(); err != nil {
		return errs.Wrap(errs.Storage, op, "close badger", err)
	}
	logging.Info().Str("dir", s.dir).Msg("Badger store closed")
	return nil
}

// key maps a logical key onto its storage key. Demo mode prefixes every
// key so demo fixtures and real data never collide.
func (s *Store) key(logical string) []byte {
	if s.demoMode {
		return []byte(models.DemoKeyPrefix + logical)
	}
	return []byte(logical)
}

// readDoc loads and decodes one document inside txn. A missing key is
// not an error; ok reports whether the document existed.
func readDoc(op string, txn *badger.Txn, key []byte, v interface{}) (ok bool, err error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.Storage, op, "get "+string(key), err)
	}

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
	if err != nil {
		return false, errs.Wrap(errs.Storage, op, "decode "+string(key), err)
	}
	return true, nil
}

// writeDoc encodes and stores one document inside txn.
func writeDoc(op string, txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errs.Wrap(errs.Storage, op, "encode "+string(key), err)
	}
	if err := txn.Set(key, data); err != nil {
		return errs.Wrap(errs.Storage, op, "set "+string(key), err)
	}
	return nil
}

// forEachValue streams every document under prefix to fn. fn must fully
// consume val before returning; the bytes are only valid inside the
// callback.
func forEachValue(op string, txn *badger.Txn, prefix []byte, fn func(key string, val []byte) error) error {
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.PrefetchValues = true
	it := txn.NewIterator(iterOpts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := string(item.Key())
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return errs.Wrap(errs.Storage, op, "read "+key, err)
		}
	}
	return nil
}

// countKeys counts keys under prefix without touching values.
func countKeys(txn *badger.Txn, prefix []byte) int64 {
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.PrefetchValues = false
	it := txn.NewIterator(iterOpts)
	defer it.Close()

	var n int64
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		n++
	}
	return n
}

// countDocRows sums the element counts of the JSON array documents
// under prefix.
func countDocRows(op string, txn *badger.Txn, prefix []byte) (int64, error) {
	var n int64
	err := forEachValue(op, txn, prefix, func(_ string, val []byte) error {
		var rows []json.RawMessage
		if err := json.Unmarshal(val, &rows); err != nil {
			return err
		}
		n += int64(len(rows))
		return nil
	})
	return n, err
}
