// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/filminsight/internal/models"
)

// CatalogSink receives the enriched catalog after each refresh.
type CatalogSink interface {
	SetItems(items []models.CatalogItem)
}

// RefreshStatus describes the most recent refresh.
type RefreshStatus struct {
	Running bool      `json:"running"`
	Runs    int       `json:"runs"`
	LastRun time.Time `json:"last_run,omitempty"`
	Stats   Stats     `json:"stats"`
	LastErr string    `json:"last_error,omitempty"`
	Items   int       `json:"items"`
}

// Refresher re-enriches a base catalog and hands the result to a sink.
// The base catalog is kept unenriched so invalidated titles lose their old
// metadata on the next run.
type Refresher struct {
	enricher *Enricher
	base     []models.CatalogItem
	sink     CatalogSink

	mu     sync.Mutex
	status RefreshStatus
}

// NewRefresher creates a Refresher. base is copied.
func NewRefresher(enricher *Enricher, base []models.CatalogItem, sink CatalogSink) *Refresher {
	cp := make([]models.CatalogItem, len(base))
	copy(cp, base)
	return &Refresher{enricher: enricher, base: cp, sink: sink}
}

// Refresh runs one enrichment pass. The sink is updated even when the cache
// could not be persisted.
func (r *Refresher) Refresh(ctx context.Context) (Stats, error) {
	r.mu.Lock()
	r.status.Running = true
	r.mu.Unlock()

	items, stats, err := r.enricher.Enrich(ctx, r.base)
	if r.sink != nil {
		r.sink.SetItems(items)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Running = false
	r.status.Runs++
	r.status.LastRun = time.Now()
	r.status.Stats = stats
	r.status.Items = len(items)
	r.status.LastErr = ""
	if err != nil {
		r.status.LastErr = err.Error()
	}
	return stats, err
}

// Status returns the state of the most recent refresh.
func (r *Refresher) Status() RefreshStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
