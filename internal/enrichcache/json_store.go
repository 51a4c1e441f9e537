// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package enrichcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/tomtom215/filminsight/internal/metrics"
	"github.com/tomtom215/filminsight/internal/models"
)

// lockRetryDelay is how often Persist retries a contended file lock.
const lockRetryDelay = 50 * time.Millisecond

var errMalformed = errors.New("malformed cache document")

// JSONFileStore keeps the cache as one JSON document:
//
//	{
//	  "Toy Story (1995)": {"abstract": "...", "director": "John Lasseter", "starring": null, "genre": null},
//	  "Some Obscure Film": null
//	}
//
// A null value is the no-result marker. Persist writes a temp file next to
// the target and renames it into place while holding <path>.lock, so a crash
// never leaves a partially written document.
type JSONFileStore struct {
	path   string
	logger zerolog.Logger

	mu      sync.RWMutex
	records map[string]*models.Enrichment
}

// NewJSONFileStore creates a store backed by the file at path. Nothing is
// read until Load is called.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewJSONFileStore(path string, logger zerolog.Logger) *JSONFileStore {
	return &JSONFileStore{
		path:    path,
		logger:  logger.With().Str("component", "enrichcache").Str("backend", BackendJSON).Logger(),
		records: make(map[string]*models.Enrichment),
	}
}

// Path returns the backing file path.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *JSONFileStore) Load(_ context.Context) (map[string]models.Record, error) {
	records, err := s.read()
	if err != nil {
		if !errors.Is(err, errMalformed) {
			return nil, err
		}
		s.logger.Warn().Err(err).Str("path", s.path).Msg("cache file is malformed, starting with an empty cache")
		records = make(map[string]*models.Enrichment)
	}

	s.mu.Lock()
	s.records = records
	out := recordsOf(records)
	s.mu.Unlock()

	s.logger.Debug().Int("titles", len(out)).Str("path", s.path).Msg("loaded enrichment cache")
	return out, nil
}

func (s *JSONFileStore) read() (map[string]*models.Enrichment, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]*models.Enrichment), nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return make(map[string]*models.Enrichment), nil
	}

	var records map[string]*models.Enrichment
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if records == nil {
		records = make(map[string]*models.Enrichment)
	}
	return records, nil
}

// Lookup implements Store.
func (s *JSONFileStore) Lookup(title string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[NormalizeTitle(title)]
	return models.Record{Enrichment: e}, ok
}

// Merge implements Store.
func (s *JSONFileStore) Merge(title string, rec models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[NormalizeTitle(title)] = rec.Enrichment
}

// Invalidate implements Store.
func (s *JSONFileStore) Invalidate(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, NormalizeTitle(title))
}

// Clear implements Store.
func (s *JSONFileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*models.Enrichment)
}

// Len implements Store.
func (s *JSONFileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Persist implements Store.
func (s *JSONFileStore) Persist(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.RecordCachePersist(BackendJSON, time.Since(start), err) }()

	s.mu.RLock()
	data, err := json.MarshalIndent(s.records, "", "    ")
	n := len(s.records)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock cache file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock cache file: %s is held by another process", lock.Path())
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			s.logger.Warn().Err(unlockErr).Msg("failed to release cache lock")
		}
	}()

	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	s.logger.Debug().Int("titles", n).Str("path", s.path).Msg("persisted enrichment cache")
	return nil
}

// Close implements Store. The file store holds no open handles.
func (s *JSONFileStore) Close() error {
	return nil
}

// writeFileAtomic replaces path with data via a synced temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
