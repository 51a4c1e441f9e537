// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package enrich

import (
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// jitterSource is a seeded random source shared by all batch workers.
type jitterSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newJitterSource(seed int64) *jitterSource {
	return &jitterSource{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // jitter does not need a CSPRNG
}

// uniform returns a duration drawn uniformly from [lo, hi].
func (j *jitterSource) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	j.mu.Lock()
	n := j.rng.Int63n(int64(hi-lo) + 1)
	j.mu.Unlock()
	return lo + time.Duration(n)
}

// uniformBackOff waits a fresh uniformly random delay before every retry.
// It never returns backoff.Stop; the attempt cap is applied by
// backoff.WithMaxRetries.
type uniformBackOff struct {
	min, max time.Duration
	src      *jitterSource
}

var _ backoff.BackOff = (*uniformBackOff)(nil)

func (b *uniformBackOff) NextBackOff() time.Duration {
	return b.src.uniform(b.min, b.max)
}

func (b *uniformBackOff) Reset() {}
