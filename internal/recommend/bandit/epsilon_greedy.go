// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package bandit implements an epsilon-greedy multi-armed bandit over catalog
// item IDs.
//
// Arms are created lazily on their first update. Every arm's value is the
// running mean of the rewards it received. Epsilon only ever decreases and
// never drops below the configured floor.
//
// An EpsilonGreedy is not safe for concurrent use; callers sharing one must
// serialize access.
package bandit

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// ErrNoCandidates is returned by SelectAction for an empty candidate list.
var ErrNoCandidates = errors.New("bandit: candidate list is empty")

// Config holds selector parameters.
type Config struct {
	// Epsilon is the initial exploration probability.
	Epsilon float64 `json:"epsilon"`

	// MinEpsilon is the floor epsilon decays toward.
	MinEpsilon float64 `json:"min_epsilon"`

	// Decay is the decay schedule applied after each update.
	Decay Decay `json:"decay"`

	// LinearStep is subtracted per update under DecayLinear.
	LinearStep float64 `json:"linear_step"`

	// ExponentialFactor multiplies epsilon per update under DecayExponential.
	ExponentialFactor float64 `json:"exponential_factor"`
}

// DefaultConfig returns epsilon 0.1 with no decay, floor 0.01, linear step
// 0.001 and exponential factor 0.99.
func DefaultConfig() Config {
	return Config{
		Epsilon:           0.1,
		MinEpsilon:        0.01,
		Decay:             DecayNone,
		LinearStep:        0.001,
		ExponentialFactor: 0.99,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinEpsilon < 0 || c.MinEpsilon > 1 {
		return fmt.Errorf("min_epsilon must be in [0, 1], got %f", c.MinEpsilon)
	}
	if c.Epsilon < c.MinEpsilon || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [min_epsilon, 1], got %f", c.Epsilon)
	}
	switch c.Decay {
	case DecayNone:
	case DecayLinear:
		if c.LinearStep <= 0 {
			return fmt.Errorf("linear_step must be positive, got %f", c.LinearStep)
		}
	case DecayExponential:
		if c.ExponentialFactor <= 0 || c.ExponentialFactor >= 1 {
			return fmt.Errorf("exponential_factor must be in (0, 1), got %f", c.ExponentialFactor)
		}
	default:
		return fmt.Errorf("unknown decay %v", c.Decay)
	}
	return nil
}

// ArmState is the learned state of one item.
type ArmState struct {
	ID    int     `json:"id"`
	Pulls int     `json:"pulls"`
	Value float64 `json:"value"`
}

// State is a serializable snapshot of a selector.
type State struct {
	Epsilon float64    `json:"epsilon"`
	Arms    []ArmState `json:"arms"` // in first-observed order
}

// EpsilonGreedy is an epsilon-greedy selector.
type EpsilonGreedy struct {
	cfg     Config
	epsilon float64
	rng     *rand.Rand

	arms  map[int]*ArmState
	order []int // arm IDs in first-observed order
}

// New creates a selector. A nil rng is replaced by one seeded with 42.
func New(cfg Config, rng *rand.Rand) (*EpsilonGreedy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bandit config: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(42)) //nolint:gosec // exploration does not need a CSPRNG
	}
	return &EpsilonGreedy{
		cfg:     cfg,
		epsilon: cfg.Epsilon,
		rng:     rng,
		arms:    make(map[int]*ArmState),
	}, nil
}

// Epsilon returns the current exploration probability.
func (b *EpsilonGreedy) Epsilon() float64 {
	return b.epsilon
}

// Config returns the selector configuration.
func (b *EpsilonGreedy) Config() Config {
	return b.cfg
}

// SelectAction picks one of candidates. With probability epsilon it picks
// uniformly at random; otherwise it picks the candidate with the highest
// value, treating unseen arms as 0 and breaking ties by candidate order.
func (b *EpsilonGreedy) SelectAction(candidates []int) (int, error) {
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}
	if b.rng.Float64() < b.epsilon {
		return candidates[b.rng.Intn(len(candidates))], nil
	}

	best := candidates[0]
	bestValue := b.value(best)
	for _, c := range candidates[1:] {
		if v := b.value(c); v > bestValue {
			best, bestValue = c, v
		}
	}
	return best, nil
}

func (b *EpsilonGreedy) value(arm int) float64 {
	if s, ok := b.arms[arm]; ok {
		return s.Value
	}
	return 0
}

// Update folds reward into the running mean of arm, then decays epsilon once.
func (b *EpsilonGreedy) Update(arm int, reward float64) {
	s, ok := b.arms[arm]
	if !ok {
		s = &ArmState{ID: arm}
		b.arms[arm] = s
		b.order = append(b.order, arm)
	}
	s.Pulls++
	s.Value += (reward - s.Value) / float64(s.Pulls)

	b.decay()
}

func (b *EpsilonGreedy) decay() {
	if b.epsilon <= b.cfg.MinEpsilon {
		return
	}
	switch b.cfg.Decay {
	case DecayLinear:
		b.epsilon -= b.cfg.LinearStep
	case DecayExponential:
		b.epsilon *= b.cfg.ExponentialFactor
	default:
		return
	}
	if b.epsilon < b.cfg.MinEpsilon {
		b.epsilon = b.cfg.MinEpsilon
	}
}

// Arm returns the state of arm and whether it has been observed.
func (b *EpsilonGreedy) Arm(arm int) (ArmState, bool) {
	s, ok := b.arms[arm]
	if !ok {
		return ArmState{}, false
	}
	return *s, true
}

// Values returns a copy of every arm's value.
func (b *EpsilonGreedy) Values() map[int]float64 {
	out := make(map[int]float64, len(b.arms))
	for id, s := range b.arms {
		out[id] = s.Value
	}
	return out
}

// Len returns the number of observed arms.
func (b *EpsilonGreedy) Len() int {
	return len(b.arms)
}

// TopK returns the k highest-valued arms, value descending, ties in
// first-observed order. k <= 0 returns nil.
func (b *EpsilonGreedy) TopK(k int) []ArmState {
	if k <= 0 || len(b.order) == 0 {
		return nil
	}
	ranked := make([]ArmState, len(b.order))
	for i, id := range b.order {
		ranked[i] = *b.arms[id]
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value > ranked[j].Value
	})
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// Snapshot returns the selector state.
func (b *EpsilonGreedy) Snapshot() State {
	st := State{Epsilon: b.epsilon, Arms: make([]ArmState, len(b.order))}
	for i, id := range b.order {
		st.Arms[i] = *b.arms[id]
	}
	return st
}

// Restore replaces the selector state with st. Epsilon is clamped to
// [MinEpsilon, configured Epsilon] so a restore never raises exploration.
func (b *EpsilonGreedy) Restore(st State) error {
	arms := make(map[int]*ArmState, len(st.Arms))
	order := make([]int, 0, len(st.Arms))
	for _, a := range st.Arms {
		if a.Pulls < 0 {
			return fmt.Errorf("arm %d has negative pull count %d", a.ID, a.Pulls)
		}
		if _, dup := arms[a.ID]; dup {
			return fmt.Errorf("arm %d appears twice", a.ID)
		}
		a := a
		arms[a.ID] = &a
		order = append(order, a.ID)
	}

	eps := st.Epsilon
	if eps > b.cfg.Epsilon {
		eps = b.cfg.Epsilon
	}
	if eps < b.cfg.MinEpsilon {
		eps = b.cfg.MinEpsilon
	}

	b.arms, b.order, b.epsilon = arms, order, eps
	return nil
}
