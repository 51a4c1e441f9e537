// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/tomtom215/filminsight/internal/catalog"
	"github.com/tomtom215/filminsight/internal/config"
	"github.com/tomtom215/filminsight/internal/enrich"
	"github.com/tomtom215/filminsight/internal/enrichcache"
	"github.com/tomtom215/filminsight/internal/models"
	"github.com/tomtom215/filminsight/internal/recommend"
	"github.com/tomtom215/filminsight/internal/recommend/bandit"
	"github.com/tomtom215/filminsight/internal/sparql"
)

// errCacheLocked reports that another filminsight process holds the cache.
var errCacheLocked = errors.New("enrichment cache is in use by another filminsight process")

// lockedStore is an enrichment cache plus the file lock guarding it.
type lockedStore struct {
	enrichcache.Store
	lock *flock.Flock
}

// Close closes the store and releases the lock.
func (s *lockedStore) Close() error {
	err := s.Store.Close()
	if uerr := s.lock.Unlock(); uerr != nil && err == nil {
		err = uerr
	}
	return err
}

// openStore locks, opens and loads the configured cache. The session lock
// is held from Load to Close so two processes cannot load, merge and
// overwrite each other's results. It is separate from the short
// write lock the JSON store takes inside Persist.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func openStore(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (*lockedStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	lock := flock.New(cfg.Path + ".session.lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", errCacheLocked, lock.Path())
	}

	store, err := enrichcache.Open(cfg.Backend, cfg.Path, logger)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	if _, err := store.Load(ctx); err != nil {
		_ = store.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("load enrichment cache: %w", err)
	}
	return &lockedStore{Store: store, lock: lock}, nil
}

// loadCatalog reads the movies and ratings files.
func loadCatalog(cfg config.DataConfig) ([]models.CatalogItem, []models.RatingEvent, error) {
	items, err := catalog.LoadMovies(cfg.MoviesPath)
	if err != nil {
		return nil, nil, err
	}
	ratings, err := catalog.LoadRatings(cfg.RatingsPath)
	if err != nil {
		return nil, nil, err
	}
	return items, ratings, nil
}

func dispatcherConfig(cfg config.EnrichConfig) enrich.DispatcherConfig {
	return enrich.DispatcherConfig{
		BatchSize:         cfg.BatchSize,
		Concurrency:       cfg.Concurrency,
		MaxAttempts:       cfg.MaxAttempts,
		BackoffMin:        cfg.BackoffMin,
		BackoffMax:        cfg.BackoffMax,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Seed:              cfg.BackoffSeed,
	}
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newSPARQLClient(cfg config.SPARQLConfig, logger zerolog.Logger) *sparql.Client {
	opts := []sparql.Option{
		sparql.WithTimeout(cfg.Timeout),
		sparql.WithUserAgent(cfg.UserAgent),
	}
	if cfg.CircuitBreaker {
		opts = append(opts, sparql.WithCircuitBreaker("dbpedia"))
	}
	return sparql.NewClient(cfg.Endpoint, logger, opts...)
}

func recommendConfig(cfg config.RecommendConfig) (recommend.Config, error) {
	memory, err := recommend.ParseArmMemory(cfg.ArmMemory)
	if err != nil {
		return recommend.Config{}, err
	}
	decay, err := bandit.ParseDecay(cfg.Bandit.Decay)
	if err != nil {
		return recommend.Config{}, err
	}
	return recommend.Config{
		DefaultK:          cfg.DefaultK,
		MaxK:              cfg.MaxK,
		RequireGenreMatch: cfg.RequireGenreMatch,
		DirectorWeight:    cfg.DirectorWeight,
		CastWeight:        cfg.CastWeight,
		ArmMemory:         memory,
		Seed:              cfg.Seed,
		Bandit: bandit.Config{
			Epsilon:           cfg.Bandit.Epsilon,
			MinEpsilon:        cfg.Bandit.MinEpsilon,
			Decay:             decay,
			LinearStep:        cfg.Bandit.LinearStep,
			ExponentialFactor: cfg.Bandit.ExponentialFactor,
		},
	}, nil
}

// pipeline is the wiring shared by enrich, recommend and serve.
type pipeline struct {
	items    []models.CatalogItem
	ratings  []models.RatingEvent
	store    *lockedStore
	client   *sparql.Client
	enricher *enrich.Enricher
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newPipeline(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pipeline, error) {
	items, ratings, err := loadCatalog(cfg.Data)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	client := newSPARQLClient(cfg.SPARQL, logger)
	enricher, err := enrich.New(dispatcherConfig(cfg.Enrich), store, client, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &pipeline{
		items:    items,
		ratings:  ratings,
		store:    store,
		client:   client,
		enricher: enricher,
	}, nil
}

func (p *pipeline) Close() error {
	return p.store.Close()
}
