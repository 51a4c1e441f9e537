// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package enrich attaches knowledge-graph metadata to catalog items.
//
// An Enricher serves cached titles from an enrichcache.Store, dispatches the
// rest in concurrent batches, retries titles carrying a release year without
// it, and records every concluded title in the cache so it is never queried
// twice.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/filminsight/internal/enrichcache"
	"github.com/tomtom215/filminsight/internal/logging"
	"github.com/tomtom215/filminsight/internal/metrics"
	"github.com/tomtom215/filminsight/internal/models"
)

// Stats summarizes one Enrich call.
type Stats struct {
	Items            int           `json:"items"`
	DistinctTitles   int           `json:"distinct_titles"`
	CacheHits        int           `json:"cache_hits"`
	Dispatched       int           `json:"dispatched"`
	Resolved         int           `json:"resolved"`
	FallbackResolved int           `json:"fallback_resolved"`
	NoResult         int           `json:"no_result"`
	Canceled         int           `json:"canceled"`
	Duration         time.Duration `json:"duration_ns"`
}

// Enricher orchestrates cache lookups, batch dispatch and the year-stripping
// fallback. Calls to Enrich are serialized.
type Enricher struct {
	store      enrichcache.Store
	dispatcher *Dispatcher
	logger     zerolog.Logger

	mu sync.Mutex
}

// New creates an Enricher over store that resolves misses through querier.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg DispatcherConfig, store enrichcache.Store, querier Querier, logger zerolog.Logger) (*Enricher, error) {
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	d, err := NewDispatcher(cfg, querier, logger)
	if err != nil {
		return nil, err
	}
	return &Enricher{
		store:      store,
		dispatcher: d,
		logger:     logger.With().Str("component", "enrich").Logger(),
	}, nil
}

// Store returns the underlying cache.
func (e *Enricher) Store() enrichcache.Store {
	return e.store
}

// Enrich returns a copy of items with enrichment applied. Items whose title
// resolves to the no-result marker are returned unchanged.
//
// The returned error is non-nil only when the cache could not be persisted;
// the items are fully enriched in that case too.
func (e *Enricher) Enrich(ctx context.Context, items []models.CatalogItem) ([]models.CatalogItem, Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	logger := logging.FromContext(ctx, e.logger)
	stats := Stats{Items: len(items)}

	// Distinct titles, split into cached and missing.
	titles := dedupe(titlesOf(items))
	stats.DistinctTitles = len(titles)

	var misses []string
	for _, t := range titles {
		if _, ok := e.store.Lookup(t); ok {
			stats.CacheHits++
			continue
		}
		misses = append(misses, t)
	}
	metrics.RecordCacheLookups(stats.CacheHits, len(misses))

	changed := 0
	if len(misses) > 0 {
		stats.Dispatched = len(misses)
		logger.Info().
			Int("titles", len(titles)).
			Int("cache_hits", stats.CacheHits).
			Int("to_query", len(misses)).
			Msg("enriching catalog")

		resolved := e.resolve(ctx, misses, &stats)
		for title, rec := range resolved {
			e.store.Merge(title, rec)
			changed++
		}
		metrics.RecordTitlesResolved(metrics.PathExact, stats.Resolved-stats.FallbackResolved)
		metrics.RecordTitlesResolved(metrics.PathFallback, stats.FallbackResolved)
		metrics.RecordTitlesNoResult(stats.NoResult)
	}

	out := make([]models.CatalogItem, len(items))
	copy(out, items)
	for i := range out {
		if rec, ok := e.store.Lookup(out[i].Title); ok {
			out[i].Apply(rec)
		}
	}

	metrics.SetCacheSize(e.store.Len())
	stats.Duration = time.Since(start)

	var persistErr error
	if changed > 0 {
		if err := e.store.Persist(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to persist enrichment cache")
			persistErr = fmt.Errorf("persist enrichment cache: %w", err)
		}
	}

	logger.Info().
		Int("items", stats.Items).
		Int("cache_hits", stats.CacheHits).
		Int("resolved", stats.Resolved).
		Int("fallback_resolved", stats.FallbackResolved).
		Int("no_result", stats.NoResult).
		Int("canceled", stats.Canceled).
		Dur("duration", stats.Duration).
		Msg("enrichment complete")

	return out, stats, persistErr
}

// resolve runs the exact round and the fallback round for misses and returns
// a record for every concluded title. Titles cut short by cancellation are
// left out so a later run queries them again.
func (e *Enricher) resolve(ctx context.Context, misses []string, stats *Stats) map[string]models.Record {
	out := make(map[string]models.Record, len(misses))
	canceled := make(map[string]struct{})

	exact := e.dispatcher.Dispatch(ctx, misses)
	for _, t := range exact.Canceled {
		canceled[t] = struct{}{}
	}

	// Originals that missed, grouped by their year-stripped title.
	byFallback := make(map[string][]string)
	var fallbackTitles []string
	for _, title := range misses {
		if rec, ok := exact.Found[title]; ok {
			out[title] = rec
			stats.Resolved++
			continue
		}
		if _, ok := canceled[title]; ok {
			continue
		}
		fb, ok := FallbackTitle(title)
		if !ok {
			out[title] = models.NoResult()
			stats.NoResult++
			continue
		}
		if _, seen := byFallback[fb]; !seen {
			fallbackTitles = append(fallbackTitles, fb)
		}
		byFallback[fb] = append(byFallback[fb], title)
	}

	// A year-stripped title already looked up in this call or held by the
	// cache is settled without another round-trip.
	queried := make(map[string]struct{}, len(misses))
	for _, t := range misses {
		queried[t] = struct{}{}
	}
	settle := func(fb string, rec models.Record, found, wasCanceled bool) {
		for _, title := range byFallback[fb] {
			switch {
			case wasCanceled:
				canceled[title] = struct{}{}
			case found && !rec.IsNoResult():
				out[title] = rec
				stats.Resolved++
				stats.FallbackResolved++
			default:
				out[title] = models.NoResult()
				stats.NoResult++
			}
		}
	}

	var toDispatch []string
	for _, fb := range fallbackTitles {
		if rec, ok := exact.Found[fb]; ok {
			settle(fb, rec, true, false)
			continue
		}
		if _, ok := queried[fb]; ok {
			_, wasCanceled := canceled[fb]
			settle(fb, models.Record{}, false, wasCanceled)
			continue
		}
		if rec, ok := e.store.Lookup(fb); ok {
			settle(fb, rec, true, false)
			continue
		}
		toDispatch = append(toDispatch, fb)
	}

	if len(toDispatch) > 0 {
		fallback := e.dispatcher.DispatchEach(ctx, toDispatch)
		fbCanceled := make(map[string]struct{}, len(fallback.Canceled))
		for _, t := range fallback.Canceled {
			fbCanceled[t] = struct{}{}
		}
		for _, fb := range toDispatch {
			rec, found := fallback.Found[fb]
			_, wasCanceled := fbCanceled[fb]
			settle(fb, rec, found, wasCanceled && !found)
		}
	}

	stats.Canceled = len(canceled)
	return out
}

func titlesOf(items []models.CatalogItem) []string {
	titles := make([]string, len(items))
	for i := range items {
		titles[i] = items[i].Title
	}
	return titles
}
