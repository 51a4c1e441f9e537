// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/filminsight/internal/enrich"
)

// Refresher runs one enrichment pass.
type Refresher interface {
	Refresh(ctx context.Context) (enrich.Stats, error)
	Status() enrich.RefreshStatus
}

// RefreshServiceConfig holds configuration for the refresh service.
type RefreshServiceConfig struct {
	// Interval between scheduled runs. 0 disables the schedule; runs then
	// happen only through Trigger.
	Interval time.Duration

	// RunTimeout bounds one run. Default: 30m
	RunTimeout time.Duration

	// RunOnStart runs once as soon as the service starts.
	RunOnStart bool
}

// RefreshService re-runs enrichment on a schedule and on demand, so titles
// invalidated after startup are queried again while the server runs.
type RefreshService struct {
	refresher Refresher
	config    RefreshServiceConfig
	trigger   chan struct{}
	logger    zerolog.Logger
}

// NewRefreshService creates a new refresh service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRefreshService(refresher Refresher, cfg RefreshServiceConfig, logger zerolog.Logger) *RefreshService {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}
	return &RefreshService{
		refresher: refresher,
		config:    cfg,
		trigger:   make(chan struct{}, 1),
		logger:    logger.With().Str("service", "enrich-refresh").Logger(),
	}
}

// Trigger requests a run. It returns false when one is already pending.
func (s *RefreshService) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Status returns the state of the most recent run.
func (s *RefreshService) Status() enrich.RefreshStatus {
	return s.refresher.Status()
}

// Serve implements suture.Service. A failed run is logged and does not stop
// the service.
func (s *RefreshService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Bool("run_on_start", s.config.RunOnStart).
		Msg("refresh service starting")

	if s.config.RunOnStart {
		s.run(ctx)
	}

	var tick <-chan time.Time
	if s.config.Interval > 0 {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("refresh service shutting down")
			return ctx.Err()
		case <-tick:
			s.logger.Debug().Msg("scheduled refresh triggered")
			s.run(ctx)
		case <-s.trigger:
			s.logger.Debug().Msg("manual refresh triggered")
			s.run(ctx)
		}
	}
}

func (s *RefreshService) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	stats, err := s.refresher.Refresh(runCtx)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		s.logger.Warn().Err(err).Msg("enrichment refresh failed")
		return
	}
	s.logger.Info().
		Int("dispatched", stats.Dispatched).
		Int("resolved", stats.Resolved).
		Int("no_result", stats.NoResult).
		Dur("duration", stats.Duration).
		Msg("enrichment refresh complete")
}

// String implements fmt.Stringer for suture's logs.
func (s *RefreshService) String() string {
	return "enrich-refresh"
}
