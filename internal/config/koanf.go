// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"filminsight.yaml",
	"filminsight.yml",
	"/etc/filminsight/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			MoviesPath:  "data/movies.csv",
			RatingsPath: "data/ratings.csv",
		},
		Cache: CacheConfig{
			Backend: "json",
			Path:    "data/enrichment_cache.json",
		},
		SPARQL: SPARQLConfig{
			Endpoint:       "https://dbpedia.org/sparql",
			Timeout:        30 * time.Second,
			UserAgent:      "filminsight/1.0",
			CircuitBreaker: true,
		},
		Enrich: EnrichConfig{
			BatchSize:         10,
			Concurrency:       5,
			MaxAttempts:       5,
			BackoffMin:        2 * time.Second,
			BackoffMax:        5 * time.Second,
			BackoffSeed:       42,
			RequestsPerSecond: 0,
			RefreshInterval:   0,
		},
		Recommend: RecommendConfig{
			DefaultK:          5,
			MaxK:              100,
			RequireGenreMatch: true,
			DirectorWeight:    0,
			CastWeight:        0,
			ArmMemory:         "per_request",
			Seed:              42,
			Bandit: BanditConfig{
				Epsilon:           0.1,
				MinEpsilon:        0.01,
				Decay:             "none",
				LinearStep:        0.001,
				ExponentialFactor: 0.99,
			},
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, the config file at path (or
// the first file found when path is empty) and the environment, then
// validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Data
	"movies_path":  "data.movies_path",
	"ratings_path": "data.ratings_path",

	// Cache
	"cache_backend": "cache.backend",
	"cache_path":    "cache.path",

	// SPARQL
	"sparql_endpoint":        "sparql.endpoint",
	"sparql_timeout":         "sparql.timeout",
	"sparql_user_agent":      "sparql.user_agent",
	"sparql_circuit_breaker": "sparql.circuit_breaker",

	// Enrichment
	"enrich_batch_size":          "enrich.batch_size",
	"enrich_concurrency":         "enrich.concurrency",
	"enrich_max_attempts":        "enrich.max_attempts",
	"enrich_backoff_min":         "enrich.backoff_min",
	"enrich_backoff_max":         "enrich.backoff_max",
	"enrich_backoff_seed":        "enrich.backoff_seed",
	"enrich_requests_per_second": "enrich.requests_per_second",
	"enrich_refresh_interval":    "enrich.refresh_interval",

	// Recommendation
	"recommend_default_k":           "recommend.default_k",
	"recommend_max_k":               "recommend.max_k",
	"recommend_require_genre_match": "recommend.require_genre_match",
	"recommend_director_weight":     "recommend.director_weight",
	"recommend_cast_weight":         "recommend.cast_weight",
	"recommend_arm_memory":          "recommend.arm_memory",
	"recommend_seed":                "recommend.seed",
	"bandit_epsilon":                "recommend.bandit.epsilon",
	"bandit_min_epsilon":            "recommend.bandit.min_epsilon",
	"bandit_decay":                  "recommend.bandit.decay",
	"bandit_linear_step":            "recommend.bandit.linear_step",
	"bandit_exponential_factor":     "recommend.bandit.exponential_factor",

	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"shutdown_timeout":    "server.shutdown_timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// sliceConfigPaths are the keys that accept comma-separated values from
// the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated environment values into slices.
// Values that are already slices (from YAML) are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		trimmed := make([]string, 0)
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// envNameFor returns the environment variable for a koanf path, for error
// messages.
func envNameFor(path string) string {
	for name, p := range envMappings {
		if p == path {
			return strings.ToUpper(name)
		}
	}
	return path
}
