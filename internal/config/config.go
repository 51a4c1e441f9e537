// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package config loads FilmInsight configuration.
//
// Values are layered with koanf: struct defaults, then an optional YAML
// file, then environment variables. Environment variables are mapped
// explicitly; unknown variables are ignored.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Data      DataConfig      `koanf:"data"`
	Cache     CacheConfig     `koanf:"cache"`
	SPARQL    SPARQLConfig    `koanf:"sparql"`
	Enrich    EnrichConfig    `koanf:"enrich"`
	Recommend RecommendConfig `koanf:"recommend"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DataConfig locates the MovieLens input files.
type DataConfig struct {
	MoviesPath  string `koanf:"movies_path"`
	RatingsPath string `koanf:"ratings_path"`
}

// CacheConfig selects the enrichment cache backend.
type CacheConfig struct {
	// Backend is "json" (a single file) or "badger" (a directory).
	Backend string `koanf:"backend"`

	// Path is the cache file or directory.
	Path string `koanf:"path"`
}

// SPARQLConfig configures the knowledge-graph endpoint client.
type SPARQLConfig struct {
	Endpoint       string        `koanf:"endpoint"`
	Timeout        time.Duration `koanf:"timeout"`
	UserAgent      string        `koanf:"user_agent"`
	CircuitBreaker bool          `koanf:"circuit_breaker"`
}

// EnrichConfig configures batch dispatch.
type EnrichConfig struct {
	BatchSize         int           `koanf:"batch_size"`
	Concurrency       int           `koanf:"concurrency"`
	MaxAttempts       int           `koanf:"max_attempts"`
	BackoffMin        time.Duration `koanf:"backoff_min"`
	BackoffMax        time.Duration `koanf:"backoff_max"`
	BackoffSeed       int64         `koanf:"backoff_seed"`
	RequestsPerSecond float64       `koanf:"requests_per_second"` // 0 disables pacing

	// RefreshInterval re-runs enrichment in serve mode. 0 disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// RecommendConfig configures ranking.
type RecommendConfig struct {
	DefaultK          int          `koanf:"default_k"`
	MaxK              int          `koanf:"max_k"`
	RequireGenreMatch bool         `koanf:"require_genre_match"`
	DirectorWeight    float64      `koanf:"director_weight"`
	CastWeight        float64      `koanf:"cast_weight"`
	ArmMemory         string       `koanf:"arm_memory"` // per_request, accumulate
	Seed              int64        `koanf:"seed"`
	Bandit            BanditConfig `koanf:"bandit"`
}

// BanditConfig configures the epsilon-greedy selector.
type BanditConfig struct {
	Epsilon           float64 `koanf:"epsilon"`
	MinEpsilon        float64 `koanf:"min_epsilon"`
	Decay             string  `koanf:"decay"` // none, linear, exponential
	LinearStep        float64 `koanf:"linear_step"`
	ExponentialFactor float64 `koanf:"exponential_factor"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed browser origins. Empty refuses cross-origin requests.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests per RateLimitWindow per client IP. 0 disables limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller adds file and line to every entry.
	Caller bool `koanf:"caller"`
}
