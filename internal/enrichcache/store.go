// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package enrichcache provides durable storage for knowledge-graph lookups.
//
// The cache maps a normalized title to a models.Record. A record whose
// Enrichment is nil marks a title that was queried without success; such
// titles are never queried again unless invalidated. A title missing from
// the map has not been queried.
//
// Two backends are available:
//
//   - JSONFileStore: a single JSON document, rewritten atomically on Persist
//   - BadgerStore: one key per title in a BadgerDB directory
//
// Stores keep the working set in memory. Merge, Invalidate and Clear change
// only memory; Persist writes the changes out.
package enrichcache

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/filminsight/internal/models"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendBadger = "badger"
)

// Store is a durable title to record cache.
type Store interface {
	// Load reads the backing store into memory and returns a copy of it.
	// A missing, empty or unreadable-as-JSON store yields an empty map
	// and a nil error.
	Load(ctx context.Context) (map[string]models.Record, error)

	// Lookup returns the record for title and whether one exists.
	Lookup(title string) (models.Record, bool)

	// Merge records rec for title in memory.
	Merge(title string, rec models.Record)

	// Invalidate forgets title so the next enrichment run queries it again.
	Invalidate(title string)

	// Clear forgets every title.
	Clear()

	// Len returns the number of cached titles, including no-result markers.
	Len() int

	// Persist writes the in-memory state to the backing store atomically.
	Persist(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}

// NormalizeTitle returns the cache key for a title.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// Open returns the store for the named backend.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(backend, path string, logger zerolog.Logger) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendJSON:
		return NewJSONFileStore(path, logger), nil
	case BackendBadger:
		return OpenBadgerStore(path, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q (expected %q or %q)", backend, BackendJSON, BackendBadger)
	}
}

// recordsOf converts the internal payload map to records.
func recordsOf(m map[string]*models.Enrichment) map[string]models.Record {
	out := make(map[string]models.Record, len(m))
	for k, v := range m {
		out[k] = models.Record{Enrichment: v}
	}
	return out
}
