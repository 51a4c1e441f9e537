// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tomtom215/filminsight/internal/enrichcache"
	"github.com/tomtom215/filminsight/internal/metrics"
	"github.com/tomtom215/filminsight/internal/models"
	"github.com/tomtom215/filminsight/internal/sparql"
)

// errLimiterWait marks a batch abandoned while waiting for the rate limiter,
// which only happens when the context ends or its deadline is too close.
var errLimiterWait = errors.New("rate limiter wait aborted")

// Querier resolves a batch of titles against the knowledge graph.
// *sparql.Client satisfies it.
type Querier interface {
	Lookup(ctx context.Context, titles []string) (map[string]models.Enrichment, error)
}

// DispatcherConfig controls batching, concurrency and retry.
type DispatcherConfig struct {
	// BatchSize is the number of titles sent per request.
	BatchSize int

	// Concurrency is the number of batches in flight at once.
	Concurrency int

	// MaxAttempts is the total number of requests made for a batch that keeps
	// being rate limited, including the first one.
	MaxAttempts int

	// BackoffMin and BackoffMax bound the uniform random delay before a retry.
	BackoffMin time.Duration
	BackoffMax time.Duration

	// RequestsPerSecond paces outgoing requests across all workers.
	// Zero disables pacing.
	RequestsPerSecond float64

	// Seed seeds the retry jitter.
	Seed int64
}

// DefaultDispatcherConfig returns 10-title batches, 5 workers, 5 attempts and
// a 2-5 second retry delay.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:   10,
		Concurrency: 5,
		MaxAttempts: 5,
		BackoffMin:  2 * time.Second,
		BackoffMax:  5 * time.Second,
		Seed:        42,
	}
}

// Validate checks the configuration.
func (c *DispatcherConfig) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.BackoffMin < 0 || c.BackoffMax < c.BackoffMin {
		return fmt.Errorf("backoff range [%v, %v] is invalid", c.BackoffMin, c.BackoffMax)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative, got %f", c.RequestsPerSecond)
	}
	return nil
}

// DispatchResult is the outcome of one Dispatch call.
type DispatchResult struct {
	// Found maps each resolved title to its record.
	Found map[string]models.Record

	// Canceled lists titles whose batch was cut short by context
	// cancellation. They were not concluded and must not be cached.
	Canceled []string

	// Batches is the number of batches dispatched.
	Batches int
}

// Dispatcher sends titles to a Querier in concurrent batches.
type Dispatcher struct {
	cfg     DispatcherConfig
	querier Querier
	limiter *rate.Limiter
	jitter  *jitterSource
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewDispatcher(cfg DispatcherConfig, querier Querier, logger zerolog.Logger) (*Dispatcher, error) {
	if querier == nil {
		return nil, errors.New("querier is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatcher config: %w", err)
	}

	d := &Dispatcher{
		cfg:     cfg,
		querier: querier,
		jitter:  newJitterSource(cfg.Seed),
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Concurrency
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return d, nil
}

// Dispatch resolves titles in batches of the configured size.
func (d *Dispatcher) Dispatch(ctx context.Context, titles []string) DispatchResult {
	return d.dispatch(ctx, titles, d.cfg.BatchSize)
}

// DispatchEach resolves titles with one request per title.
func (d *Dispatcher) DispatchEach(ctx context.Context, titles []string) DispatchResult {
	return d.dispatch(ctx, titles, 1)
}

// batchOutcome is written by exactly one worker.
type batchOutcome struct {
	found    map[string]models.Enrichment
	canceled bool
}

func (d *Dispatcher) dispatch(ctx context.Context, titles []string, size int) DispatchResult {
	batches := partition(dedupe(titles), size)
	result := DispatchResult{Found: make(map[string]models.Record), Batches: len(batches)}
	if len(batches) == 0 {
		return result
	}

	outcomes := make([]batchOutcome, len(batches))

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			outcomes[i] = d.runBatch(ctx, i, batch)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	for i, o := range outcomes {
		if o.canceled {
			result.Canceled = append(result.Canceled, batches[i]...)
		}
		for title, e := range o.found {
			result.Found[title] = models.Found(e)
		}
	}

	d.logger.Debug().
		Int("titles", len(titles)).
		Int("batches", len(batches)).
		Int("found", len(result.Found)).
		Int("canceled", len(result.Canceled)).
		Msg("dispatch complete")
	return result
}

// runBatch queries one batch, retrying while the endpoint rate limits.
func (d *Dispatcher) runBatch(ctx context.Context, index int, batch []string) batchOutcome {
	start := time.Now()
	logger := d.logger.With().Int("batch", index).Int("size", len(batch)).Logger()

	if ctx.Err() != nil {
		metrics.RecordEnrichBatch(metrics.BatchCanceled, 0, 0)
		return batchOutcome{canceled: true}
	}

	attempts := 0
	var found map[string]models.Enrichment

	operation := func() error {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("%w: %v", errLimiterWait, err))
			}
		}
		attempts++
		res, err := d.querier.Lookup(ctx, batch)
		switch {
		case err == nil:
			found = res
			return nil
		case errors.Is(err, sparql.ErrRateLimited):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&uniformBackOff{min: d.cfg.BackoffMin, max: d.cfg.BackoffMax, src: d.jitter}, uint64(d.cfg.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, delay time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", delay).Msg("rate limited, backing off")
	}

	err := backoff.RetryNotify(operation, policy, notify)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordEnrichBatch(metrics.BatchSuccess, attempts, elapsed)
		logger.Debug().Int("attempts", attempts).Int("found", len(found)).Msg("batch resolved")
		return batchOutcome{found: found}

	case ctx.Err() != nil || errors.Is(err, errLimiterWait):
		metrics.RecordEnrichBatch(metrics.BatchCanceled, attempts, elapsed)
		logger.Debug().Err(err).Int("attempts", attempts).Msg("batch canceled")
		return batchOutcome{canceled: true}

	case errors.Is(err, sparql.ErrRateLimited):
		metrics.RecordEnrichBatch(metrics.BatchRateLimited, attempts, elapsed)
		logger.Warn().Int("attempts", attempts).Msg("batch still rate limited after final attempt, giving up")
		return batchOutcome{}

	default:
		metrics.RecordEnrichBatch(metrics.BatchFailed, attempts, elapsed)
		logger.Warn().Err(err).Int("attempts", attempts).Msg("batch failed")
		return batchOutcome{}
	}
}

// dedupe normalizes titles and drops repeats, keeping first-seen order.
func dedupe(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		t = enrichcache.NormalizeTitle(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// partition splits titles into consecutive batches of at most size.
func partition(titles []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	batches := make([][]string, 0, (len(titles)+size-1)/size)
	for start := 0; start < len(titles); start += size {
		end := min(start+size, len(titles))
		batches = append(batches, titles[start:end])
	}
	return batches
}
