// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package enrichcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/filminsight/internal/metrics"
	"github.com/tomtom215/filminsight/internal/models"
)

// enrichKeyPrefix namespaces cache entries in the database.
const enrichKeyPrefix = "enrich:"

// BadgerStore keeps one key per title in a BadgerDB directory. Values are the
// JSON encoding of the enrichment payload; the literal "null" is the
// no-result marker.
//
// Persist writes only titles changed since the last Load or Persist. Changes
// go out in as few transactions as Badger allows; each transaction commits
// atomically.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
	logger zerolog.Logger

	mu      sync.RWMutex
	records map[string]*models.Enrichment
	dirty   map[string]struct{}
	deleted map[string]struct{}
	cleared bool
}

// OpenBadgerStore opens (or creates) a BadgerDB at dir.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenBadgerStore(dir string, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for enrichment cache: %w", err)
	}
	s := NewBadgerStore(db, logger)
	s.ownsDB = true
	return s, nil
}

// NewBadgerStore wraps an already open database. Close leaves it open.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBadgerStore(db *badger.DB, logger zerolog.Logger) *BadgerStore {
	return &BadgerStore{
		db:      db,
		logger:  logger.With().Str("component", "enrichcache").Str("backend", BackendBadger).Logger(),
		records: make(map[string]*models.Enrichment),
		dirty:   make(map[string]struct{}),
		deleted: make(map[string]struct{}),
	}
}

// Load implements Store. Entries that fail to decode are skipped with a warning.
func (s *BadgerStore) Load(_ context.Context) (map[string]models.Record, error) {
	records := make(map[string]*models.Enrichment)
	skipped := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(enrichKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			title := strings.TrimPrefix(string(item.Key()), enrichKeyPrefix)

			var payload *models.Enrichment
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &payload)
			})
			if err != nil {
				skipped++
				s.logger.Warn().Err(err).Str("title", title).Msg("skipping malformed cache entry")
				continue
			}
			records[title] = payload
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read enrichment cache: %w", err)
	}

	s.mu.Lock()
	s.records = records
	s.dirty = make(map[string]struct{})
	s.deleted = make(map[string]struct{})
	s.cleared = false
	out := recordsOf(records)
	s.mu.Unlock()

	s.logger.Debug().Int("titles", len(out)).Int("skipped", skipped).Msg("loaded enrichment cache")
	return out, nil
}

// Lookup implements Store.
func (s *BadgerStore) Lookup(title string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[NormalizeTitle(title)]
	return models.Record{Enrichment: e}, ok
}

// Merge implements Store.
func (s *BadgerStore) Merge(title string, rec models.Record) {
	key := NormalizeTitle(title)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = rec.Enrichment
	s.dirty[key] = struct{}{}
	delete(s.deleted, key)
}

// Invalidate implements Store.
func (s *BadgerStore) Invalidate(title string) {
	key := NormalizeTitle(title)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	delete(s.dirty, key)
	s.deleted[key] = struct{}{}
}

// Clear implements Store.
func (s *BadgerStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*models.Enrichment)
	s.dirty = make(map[string]struct{})
	s.deleted = make(map[string]struct{})
	s.cleared = true
}

// Len implements Store.
func (s *BadgerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Persist implements Store.
func (s *BadgerStore) Persist(_ context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.RecordCachePersist(BackendBadger, time.Since(start), err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cleared {
		if err := s.db.DropPrefix([]byte(enrichKeyPrefix)); err != nil {
			return fmt.Errorf("clear enrichment cache: %w", err)
		}
	}

	type write struct {
		key   []byte
		value []byte
	}
	writes := make([]write, 0, len(s.dirty))
	for title := range s.dirty {
		data, err := json.Marshal(s.records[title])
		if err != nil {
			return fmt.Errorf("encode cache entry %q: %w", title, err)
		}
		writes = append(writes, write{key: []byte(enrichKeyPrefix + title), value: data})
	}

	txn := s.db.NewTransaction(true)
	defer func() { txn.Discard() }()

	// A transaction that grows past Badger's limit is committed and a fresh
	// one started for the remaining writes.
	apply := func(op func(*badger.Txn) error) error {
		err := op(txn)
		if !errors.Is(err, badger.ErrTxnTooBig) {
			return err
		}
		if err := txn.Commit(); err != nil {
			return err
		}
		txn = s.db.NewTransaction(true)
		return op(txn)
	}

	for title := range s.deleted {
		key := []byte(enrichKeyPrefix + title)
		if err := apply(func(t *badger.Txn) error { return t.Delete(key) }); err != nil {
			return fmt.Errorf("delete cache entry %q: %w", title, err)
		}
	}
	for _, w := range writes {
		if err := apply(func(t *badger.Txn) error { return t.Set(w.key, w.value) }); err != nil {
			return fmt.Errorf("write cache entry %q: %w", strings.TrimPrefix(string(w.key), enrichKeyPrefix), err)
		}
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit enrichment cache: %w", err)
	}

	s.logger.Debug().
		Int("written", len(writes)).
		Int("deleted", len(s.deleted)).
		Bool("cleared", s.cleared).
		Msg("persisted enrichment cache")

	s.dirty = make(map[string]struct{})
	s.deleted = make(map[string]struct{})
	s.cleared = false
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
