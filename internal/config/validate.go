// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks every section. Messages name the environment variable
// that sets the offending value.
func (c *Config) Validate() error {
	if err := c.validateData(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateSPARQL(); err != nil {
		return err
	}
	if err := c.validateEnrich(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateData() error {
	if strings.TrimSpace(c.Data.MoviesPath) == "" {
		return fmt.Errorf("%s is required", envNameFor("data.movies_path"))
	}
	if strings.TrimSpace(c.Data.RatingsPath) == "" {
		return fmt.Errorf("%s is required", envNameFor("data.ratings_path"))
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "json", "badger":
	default:
		return fmt.Errorf("%s must be json or badger, got %q", envNameFor("cache.backend"), c.Cache.Backend)
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		return fmt.Errorf("%s is required", envNameFor("cache.path"))
	}
	return nil
}

func (c *Config) validateSPARQL() error {
	u, err := url.Parse(c.SPARQL.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", envNameFor("sparql.endpoint"), c.SPARQL.Endpoint)
	}
	if c.SPARQL.Timeout <= 0 {
		return fmt.Errorf("%s must be positive, got %v", envNameFor("sparql.timeout"), c.SPARQL.Timeout)
	}
	return nil
}

func (c *Config) validateEnrich() error {
	e := c.Enrich
	if e.BatchSize <= 0 {
		return fmt.Errorf("%s must be positive, got %d", envNameFor("enrich.batch_size"), e.BatchSize)
	}
	if e.Concurrency <= 0 {
		return fmt.Errorf("%s must be positive, got %d", envNameFor("enrich.concurrency"), e.Concurrency)
	}
	if e.MaxAttempts <= 0 {
		return fmt.Errorf("%s must be positive, got %d", envNameFor("enrich.max_attempts"), e.MaxAttempts)
	}
	if e.BackoffMin < 0 || e.BackoffMax < e.BackoffMin {
		return fmt.Errorf("%s (%v) must not exceed %s (%v)",
			envNameFor("enrich.backoff_min"), e.BackoffMin, envNameFor("enrich.backoff_max"), e.BackoffMax)
	}
	if e.RequestsPerSecond < 0 {
		return fmt.Errorf("%s must be non-negative, got %f", envNameFor("enrich.requests_per_second"), e.RequestsPerSecond)
	}
	if e.RefreshInterval < 0 {
		return fmt.Errorf("%s must be non-negative, got %v", envNameFor("enrich.refresh_interval"), e.RefreshInterval)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if r.DefaultK <= 0 {
		return fmt.Errorf("%s must be positive, got %d", envNameFor("recommend.default_k"), r.DefaultK)
	}
	if r.MaxK < r.DefaultK {
		return fmt.Errorf("%s must be >= %s", envNameFor("recommend.max_k"), envNameFor("recommend.default_k"))
	}
	if r.DirectorWeight < 0 || r.CastWeight < 0 {
		return fmt.Errorf("%s and %s must be non-negative",
			envNameFor("recommend.director_weight"), envNameFor("recommend.cast_weight"))
	}
	switch strings.ToLower(r.ArmMemory) {
	case "", "per_request", "accumulate":
	default:
		return fmt.Errorf("%s must be per_request or accumulate, got %q", envNameFor("recommend.arm_memory"), r.ArmMemory)
	}

	b := r.Bandit
	if b.MinEpsilon < 0 || b.MinEpsilon > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %f", envNameFor("recommend.bandit.min_epsilon"), b.MinEpsilon)
	}
	if b.Epsilon < b.MinEpsilon || b.Epsilon > 1 {
		return fmt.Errorf("%s must be in [%s, 1], got %f",
			envNameFor("recommend.bandit.epsilon"), envNameFor("recommend.bandit.min_epsilon"), b.Epsilon)
	}
	switch strings.ToLower(b.Decay) {
	case "", "none":
	case "linear":
		if b.LinearStep <= 0 {
			return fmt.Errorf("%s must be positive, got %f", envNameFor("recommend.bandit.linear_step"), b.LinearStep)
		}
	case "exponential":
		if b.ExponentialFactor <= 0 || b.ExponentialFactor >= 1 {
			return fmt.Errorf("%s must be in (0, 1), got %f",
				envNameFor("recommend.bandit.exponential_factor"), b.ExponentialFactor)
		}
	default:
		return fmt.Errorf("%s must be none, linear or exponential, got %q", envNameFor("recommend.bandit.decay"), b.Decay)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535", envNameFor("server.port"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%s must be positive, got %v", envNameFor("server.shutdown_timeout"), c.Server.ShutdownTimeout)
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("%s must be >= 0, got %d", envNameFor("server.rate_limit_requests"), c.Server.RateLimitRequests)
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("%s must be positive when rate limiting is enabled", envNameFor("server.rate_limit_window"))
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" && len(c.Server.CORSOrigins) > 1 {
			return fmt.Errorf("%s: \"*\" cannot be combined with other origins", envNameFor("server.cors_origins"))
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled", "":
	default:
		return fmt.Errorf("%s must be one of trace, debug, info, warn, error; got %q", envNameFor("logging.level"), c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
	default:
		return fmt.Errorf("%s must be json or console, got %q", envNameFor("logging.format"), c.Logging.Format)
	}
	return nil
}
