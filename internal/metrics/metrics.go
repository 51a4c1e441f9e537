// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - HTTP API requests
// - Knowledge-graph batch dispatch (attempts, rate limiting, latency)
// - Enrichment cache efficiency and persistence
// - Recommendation requests and bandit exploration rate
// - SPARQL circuit breaker state

// Batch outcomes for EnrichBatches.
const (
	BatchSuccess     = "success"
	BatchRateLimited = "rate_limited"
	BatchFailed      = "failed"
	BatchCanceled    = "canceled"
)

// Outcomes for RecommendRequests.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Resolution paths for EnrichTitlesResolved.
const (
	PathExact    = "exact"
	PathFallback = "fallback"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Requests rejected by the API rate limiter",
		},
		[]string{"endpoint"},
	)

	// Enrichment Metrics
	EnrichBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_batches_total",
			Help: "Total number of knowledge-graph query batches by outcome",
		},
		[]string{"result"}, // success, rate_limited, failed, canceled
	)

	EnrichBatchAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enrich_batch_attempts_total",
			Help: "Total number of knowledge-graph requests including retries",
		},
	)

	EnrichBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrich_batch_duration_seconds",
			Help:    "Wall time of one batch including backoff sleeps",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	EnrichCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_cache_lookups_total",
			Help: "Enrichment cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	EnrichTitlesResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_titles_resolved_total",
			Help: "Titles resolved by the knowledge graph",
		},
		[]string{"path"}, // exact, fallback
	)

	EnrichTitlesNoResult = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enrich_titles_no_result_total",
			Help: "Titles recorded with the no-result marker",
		},
	)

	EnrichCachePersistDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enrich_cache_persist_duration_seconds",
			Help:    "Duration of cache persistence",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	EnrichCachePersistErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_cache_persist_errors_total",
			Help: "Failed cache persistence attempts",
		},
		[]string{"backend"},
	)

	EnrichCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrich_cache_titles",
			Help: "Number of titles in the enrichment cache, including no-result markers",
		},
	)

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // success, empty, error
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Duration of recommendation requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	RecommendCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_candidates",
			Help:    "Number of scored candidates per recommendation request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	BanditEpsilon = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bandit_epsilon",
			Help: "Exploration rate of the most recently used selector",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a request rejected by the rate limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordEnrichBatch records the outcome of one batch and the number of requests it took.
func RecordEnrichBatch(result string, attempts int, duration time.Duration) {
	EnrichBatches.WithLabelValues(result).Inc()
	EnrichBatchAttempts.Add(float64(attempts))
	EnrichBatchDuration.Observe(duration.Seconds())
}

// RecordCacheLookups records cache hits and misses for one enrichment run.
func RecordCacheLookups(hits, misses int) {
	EnrichCacheLookups.WithLabelValues("hit").Add(float64(hits))
	EnrichCacheLookups.WithLabelValues("miss").Add(float64(misses))
}

// RecordTitlesResolved records titles resolved through the given path.
func RecordTitlesResolved(path string, n int) {
	EnrichTitlesResolved.WithLabelValues(path).Add(float64(n))
}

// RecordTitlesNoResult records titles marked as no-result.
func RecordTitlesNoResult(n int) {
	EnrichTitlesNoResult.Add(float64(n))
}

// RecordCachePersist records a cache persistence attempt.
func RecordCachePersist(backend string, duration time.Duration, err error) {
	EnrichCachePersistDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		EnrichCachePersistErrors.WithLabelValues(backend).Inc()
	}
}

// SetCacheSize updates the cache size gauge.
func SetCacheSize(n int) {
	EnrichCacheSize.Set(float64(n))
}

// RecordRecommendation records one recommendation request.
func RecordRecommendation(outcome string, candidates int, duration time.Duration) {
	RecommendRequests.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(duration.Seconds())
	if candidates > 0 {
		RecommendCandidates.Observe(float64(candidates))
	}
}

// SetBanditEpsilon updates the exploration rate gauge.
func SetBanditEpsilon(epsilon float64) {
	BanditEpsilon.Set(epsilon)
}
