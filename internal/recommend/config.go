// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package recommend

import (
	"fmt"

	"github.com/tomtom215/filminsight/internal/recommend/bandit"
)

// Config holds recommendation engine settings.
type Config struct {
	// DefaultK is used when a request does not name K.
	DefaultK int

	// MaxK caps K.
	MaxK int

	// RequireGenreMatch drops candidates sharing no genre with the user's
	// rated items. When false they are kept with a zero genre score.
	RequireGenreMatch bool

	// DirectorWeight scales the user's affinity for an item's directors.
	// Zero disables the enrichment term.
	DirectorWeight float64

	// CastWeight scales the user's summed affinity for an item's cast.
	CastWeight float64

	// ArmMemory selects per-request or accumulating bandit state.
	ArmMemory ArmMemory

	// Seed seeds per-request selectors and every per-user selector.
	Seed int64

	// Bandit configures the epsilon-greedy selector.
	Bandit bandit.Config
}

// DefaultConfig returns K 5 (max 100), genre matching required, no
// enrichment terms and per-request arm memory.
func DefaultConfig() Config {
	return Config{
		DefaultK:          5,
		MaxK:              100,
		RequireGenreMatch: true,
		ArmMemory:         ArmMemoryPerRequest,
		Seed:              42,
		Bandit:            bandit.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DefaultK <= 0 {
		return fmt.Errorf("default_k must be positive, got %d", c.DefaultK)
	}
	if c.MaxK < c.DefaultK {
		return fmt.Errorf("max_k must be >= default_k (%d), got %d", c.DefaultK, c.MaxK)
	}
	if c.DirectorWeight < 0 {
		return fmt.Errorf("director_weight must be non-negative, got %f", c.DirectorWeight)
	}
	if c.CastWeight < 0 {
		return fmt.Errorf("cast_weight must be non-negative, got %f", c.CastWeight)
	}
	switch c.ArmMemory {
	case ArmMemoryPerRequest, ArmMemoryAccumulate:
	default:
		return fmt.Errorf("unknown arm memory %v", c.ArmMemory)
	}
	if err := c.Bandit.Validate(); err != nil {
		return fmt.Errorf("bandit: %w", err)
	}
	return nil
}

func (c *Config) scorer() Scorer {
	return Scorer{
		RequireGenreMatch: c.RequireGenreMatch,
		DirectorWeight:    c.DirectorWeight,
		CastWeight:        c.CastWeight,
	}
}
