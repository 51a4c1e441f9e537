// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package enrich

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tomtom215/filminsight/internal/enrichcache"
	"github.com/tomtom215/filminsight/internal/logging"
	"github.com/tomtom215/filminsight/internal/models"
)

// countingStore counts Persist calls and can fail them.
type countingStore struct {
	*enrichcache.JSONFileStore
	persists   int
	persistErr error
}

func (s *countingStore) Persist(ctx context.Context) error {
	s.persists++
	if s.persistErr != nil {
		return s.persistErr
	}
	return s.JSONFileStore.Persist(ctx)
}

func newTestStore(t *testing.T) *countingStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	return &countingStore{JSONFileStore: enrichcache.NewJSONFileStore(path, logging.NewTestLogger(&bytes.Buffer{}))}
}

func newTestEnricher(t *testing.T, store enrichcache.Store, q Querier) *Enricher {
	t.Helper()
	e, err := New(fastConfig(), store, q, logging.NewTestLogger(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func catalog(titles ...string) []models.CatalogItem {
	items := make([]models.CatalogItem, len(titles))
	for i, t := range titles {
		items[i] = models.CatalogItem{ID: i + 1, Title: t}
	}
	return items
}

func TestEnrich_ResolvesAndCaches(t *testing.T) {
	q := &fakeQuerier{known: map[string]models.Enrichment{
		"Toy Story (1995)": {Director: strPtr("John Lasseter"), Starring: strPtr("Tom Hanks, Tim Allen")},
	}}
	store := newTestStore(t)
	e := newTestEnricher(t, store, q)

	items := catalog("Toy Story (1995)", "Unknown Film")
	out, stats, err := e.Enrich(context.Background(), items)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if out[0].Director == nil || *out[0].Director != "John Lasseter" {
		t.Errorf("Toy Story director = %v", out[0].Director)
	}
	if got := out[0].Cast(); len(got) != 2 {
		t.Errorf("Toy Story cast = %v", got)
	}
	if out[1].Abstract != nil || out[1].Director != nil {
		t.Errorf("Unknown Film should stay unenriched, got %+v", out[1])
	}
	if items[0].Director != nil {
		t.Error("Enrich() must not mutate its input")
	}

	if stats.Resolved != 1 || stats.NoResult != 1 || stats.CacheHits != 0 {
		t.Errorf("stats = %+v", stats)
	}
	rec, ok := store.Lookup("Unknown Film")
	if !ok || !rec.IsNoResult() {
		t.Errorf("Unknown Film cache entry = %+v, %v; want no-result marker", rec, ok)
	}
	if store.persists != 1 {
		t.Errorf("persists = %d, want 1", store.persists)
	}
}

func TestEnrich_RerunMakesNoRequests(t *testing.T) {
	q := &fakeQuerier{known: map[string]models.Enrichment{"Heat (1995)": {Director: strPtr("Michael Mann")}}}
	store := newTestStore(t)
	e := newTestEnricher(t, store, q)
	items := catalog("Heat (1995)", "Nothing Here")

	if _, _, err := e.Enrich(context.Background(), items); err != nil {
		t.Fatal(err)
	}
	first := q.calls.Load()

	// A fresh store loaded from disk must also avoid the network.
	reloaded := newTestStore(t)
	reloaded.JSONFileStore = enrichcache.NewJSONFileStore(store.Path(), logging.NewTestLogger(&bytes.Buffer{}))
	if _, err := reloaded.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	e2 := newTestEnricher(t, reloaded, q)

	out, stats, err := e2.Enrich(context.Background(), items)
	if err != nil {
		t.Fatal(err)
	}
	if q.calls.Load() != first {
		t.Errorf("re-run made %d requests, want 0", q.calls.Load()-first)
	}
	if stats.CacheHits != 2 || stats.Dispatched != 0 {
		t.Errorf("stats = %+v, want 2 cache hits and nothing dispatched", stats)
	}
	if out[0].Director == nil || *out[0].Director != "Michael Mann" {
		t.Errorf("cached enrichment not applied: %+v", out[0])
	}
	if reloaded.persists != 0 {
		t.Errorf("persists = %d, want 0 when nothing changed", reloaded.persists)
	}
}

func TestEnrich_YearStrippedFallback(t *testing.T) {
	q := &fakeQuerier{known: map[string]models.Enrichment{"Up": {Director: strPtr("Pete Docter")}}}
	store := newTestStore(t)
	e := newTestEnricher(t, store, q)

	out, stats, err := e.Enrich(context.Background(), catalog("Up (2009)"))
	if err != nil {
		t.Fatal(err)
	}

	rec, ok := store.Lookup("Up (2009)")
	if !ok || rec.IsNoResult() || *rec.Enrichment.Director != "Pete Docter" {
		t.Errorf("cache[Up (2009)] = %+v, %v; want fallback result under the original title", rec, ok)
	}
	if _, ok := store.Lookup("Up"); ok {
		t.Error("fallback title must not get its own cache entry")
	}
	if out[0].Director == nil {
		t.Error("item not enriched through fallback")
	}
	if stats.FallbackResolved != 1 || stats.Resolved != 1 {
		t.Errorf("stats = %+v", stats)
	}

	// Exact round, then one singleton request for the fallback.
	if got := q.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestEnrich_FallbackSharedAcrossOriginals(t *testing.T) {
	q := &fakeQuerier{known: map[string]models.Enrichment{"Solaris": {Director: strPtr("Andrei Tarkovsky")}}}
	store := newTestStore(t)
	e := newTestEnricher(t, store, q)

	_, stats, err := e.Enrich(context.Background(), catalog("Solaris (1972)", "Solaris (2002)", "Plain Title"))
	if err != nil {
		t.Fatal(err)
	}

	for _, title := range []string{"Solaris (1972)", "Solaris (2002)"} {
		if rec, ok := store.Lookup(title); !ok || rec.IsNoResult() {
			t.Errorf("cache[%s] = %+v, %v; want fallback result", title, rec, ok)
		}
	}
	if rec, ok := store.Lookup("Plain Title"); !ok || !rec.IsNoResult() {
		t.Errorf("Plain Title without a year should be no-result, got %+v, %v", rec, ok)
	}
	if stats.FallbackResolved != 2 {
		t.Errorf("FallbackResolved = %d, want 2", stats.FallbackResolved)
	}
	// One exact batch plus a single fallback request for "Solaris".
	if got := q.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestEnrich_RateLimitedEverywhere(t *testing.T) {
	q := &fakeQuerier{alwaysRateLimit: true}
	store := newTestStore(t)
	e := newTestEnricher(t, store, q)

	titles := []string{"A (2001)", "B (2002)", "C"}
	out, stats, err := e.Enrich(context.Background(), catalog(titles...))
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("Enrich() returned %d items, want 3", len(out))
	}
	for _, title := range titles {
		rec, ok := store.Lookup(title)
		if !ok || !rec.IsNoResult() {
			t.Errorf("cache[%s] = %+v, %v; want no-result", title, rec, ok)
		}
	}
	if stats.NoResult != 3 {
		t.Errorf("NoResult = %d, want 3 (each title once)", stats.NoResult)
	}
	if store.Len() != 3 {
		t.Errorf("store.Len() = %d, want 3", store.Len())
	}
	// 5 attempts for the exact batch, 5 for each of the two fallback singletons.
	if got := q.calls.Load(); got != 15 {
		t.Errorf("calls = %d, want 15", got)
	}
}

func TestEnrich_DuplicateTitlesDispatchedOnce(t *testing.T) {
	q := &fakeQuerier{known: map[string]models.Enrichment{"Heat": {Director: strPtr("Michael Mann")}}}
	e := newTestEnricher(t, newTestStore(t), q)

	out, stats, err := e.Enrich(context.Background(), catalog("Heat", "Heat", " Heat"))
	if err != nil {
		t.Fatal(err)
	}
	if got := q.requested(); len(got) != 1 {
		t.Errorf("requested = %v, want a single title", got)
	}
	if stats.DistinctTitles != 1 {
		t.Errorf("DistinctTitles = %d, want 1", stats.DistinctTitles)
	}
	for i := range out {
		if out[i].Director == nil {
			t.Errorf("item %d not enriched", i)
		}
	}
}

func TestEnrich_CanceledTitlesStayUncached(t *testing.T) {
	q := &fakeQuerier{}
	store := newTestStore(t)
	e := newTestEnricher(t, store, q)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, stats, err := e.Enrich(ctx, catalog("Heat (1995)"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Lookup("Heat (1995)"); ok {
		t.Error("canceled title must not be cached")
	}
	if stats.Canceled != 1 {
		t.Errorf("Canceled = %d, want 1", stats.Canceled)
	}
}

func TestEnrich_PersistFailureStillEnriches(t *testing.T) {
	q := &fakeQuerier{known: map[string]models.Enrichment{"Heat": {Director: strPtr("Michael Mann")}}}
	store := newTestStore(t)
	store.persistErr = errors.New("disk full")
	e := newTestEnricher(t, store, q)

	out, _, err := e.Enrich(context.Background(), catalog("Heat"))
	if err == nil {
		t.Fatal("expected persist error")
	}
	if !errors.Is(err, store.persistErr) {
		t.Errorf("err = %v, want wrapped persist error", err)
	}
	if out[0].Director == nil {
		t.Error("items should be enriched even when persistence fails")
	}
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(fastConfig(), nil, &fakeQuerier{}, logging.NewTestLogger(&bytes.Buffer{})); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestFallbackTitle(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Up (2009)", "Up", true},
		{"Toy Story (1995) ", "Toy Story", true},
		{"Blade Runner 2049 (2017)", "Blade Runner 2049", true},
		{"Up", "", false},
		{"(1995)", "", false},
		{"Film (Director's Cut)", "", false},
		{"1984 (1984)", "1984", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := FallbackTitle(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FallbackTitle(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// lookupsOf counts how many batches sent to q contained title.
func lookupsOf(q *fakeQuerier, title string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, batch := range q.batches {
		for _, t := range batch {
			if t == title {
				n++
			}
		}
	}
	return n
}

func TestEnrich_FallbackReusesKnownTitles(t *testing.T) {
	up := models.Enrichment{Director: strPtr("Pete Docter")}

	tests := []struct {
		name         string
		known        map[string]models.Enrichment
		cached       map[string]models.Record
		items        []models.CatalogItem
		wantUpCalls  int
		wantDirector bool
	}{
		{
			name:         "resolved in the same call",
			known:        map[string]models.Enrichment{"Up": up},
			items:        catalog("Up", "Up (2009)"),
			wantUpCalls:  1,
			wantDirector: true,
		},
		{
			name:         "missed in the same call",
			items:        catalog("Up", "Up (2009)"),
			wantUpCalls:  1,
			wantDirector: false,
		},
		{
			name:         "cached by an earlier run",
			known:        map[string]models.Enrichment{"Up": up},
			cached:       map[string]models.Record{"Up": models.Found(up)},
			items:        catalog("Up (2009)"),
			wantUpCalls:  0,
			wantDirector: true,
		},
		{
			name:         "cached as no result",
			known:        map[string]models.Enrichment{"Up": up},
			cached:       map[string]models.Record{"Up": models.NoResult()},
			items:        catalog("Up (2009)"),
			wantUpCalls:  0,
			wantDirector: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{known: tt.known}
			store := newTestStore(t)
			for title, rec := range tt.cached {
				store.Merge(title, rec)
			}
			e := newTestEnricher(t, store, q)

			if _, _, err := e.Enrich(context.Background(), tt.items); err != nil {
				t.Fatalf("Enrich() error = %v", err)
			}
			if got := lookupsOf(q, "Up"); got != tt.wantUpCalls {
				t.Errorf("lookups of %q = %d, want %d", "Up", got, tt.wantUpCalls)
			}
			rec, ok := store.Lookup("Up (2009)")
			if !ok {
				t.Fatal("Up (2009) was not cached")
			}
			if got := !rec.IsNoResult() && rec.Enrichment.Director != nil; got != tt.wantDirector {
				t.Errorf("cache[Up (2009)] = %+v, want director present = %v", rec, tt.wantDirector)
			}
		})
	}
}
