// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package recommend ranks unrated catalog items for a user.
//
// A Recommend call computes the user's genre weights, scores every unrated
// candidate, feeds each candidate's content score to an epsilon-greedy
// selector as one reward, and returns the selector's top K arms.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/filminsight/internal/logging"
	"github.com/tomtom215/filminsight/internal/metrics"
	"github.com/tomtom215/filminsight/internal/models"
	"github.com/tomtom215/filminsight/internal/recommend/bandit"
)

var (
	// ErrArmMemoryDisabled is returned by Feedback and Next when the engine
	// does not keep arms across calls.
	ErrArmMemoryDisabled = errors.New("arm memory is per_request; feedback requires accumulate")

	// ErrUnknownItem is returned for item IDs missing from the catalog.
	ErrUnknownItem = errors.New("unknown catalog item")
)

// Engine serves recommendations from an in-memory catalog and rating log.
type Engine struct {
	cfg    Config
	scorer Scorer
	logger zerolog.Logger

	dataMu        sync.RWMutex
	items         []models.CatalogItem
	index         Index
	ratingsByUser map[int][]models.RatingEvent

	armsMu    sync.Mutex
	selectors map[int]*bandit.EpsilonGreedy
}

// NewEngine creates an engine over items and ratings. Both slices are
// copied.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg Config, items []models.CatalogItem, ratings []models.RatingEvent, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommend config: %w", err)
	}
	e := &Engine{
		cfg:       cfg,
		scorer:    cfg.scorer(),
		logger:    logger.With().Str("component", "recommend").Logger(),
		selectors: make(map[int]*bandit.EpsilonGreedy),
	}
	e.SetItems(items)

	byUser := make(map[int][]models.RatingEvent)
	for _, r := range ratings {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}
	e.ratingsByUser = byUser
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// SetItems replaces the catalog, for example after an enrichment refresh.
func (e *Engine) SetItems(items []models.CatalogItem) {
	cp := make([]models.CatalogItem, len(items))
	copy(cp, items)

	e.dataMu.Lock()
	e.items = cp
	e.index = NewIndex(cp)
	e.dataMu.Unlock()
}

// Items returns a copy of the catalog.
func (e *Engine) Items() []models.CatalogItem {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	out := make([]models.CatalogItem, len(e.items))
	copy(out, e.items)
	return out
}

// Item looks up one catalog item.
func (e *Engine) Item(id int) (models.CatalogItem, bool) {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	item, ok := e.index[id]
	if !ok {
		return models.CatalogItem{}, false
	}
	return *item, true
}

// Ratings returns the rating events of one user.
func (e *Engine) Ratings(userID int) []models.RatingEvent {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return append([]models.RatingEvent(nil), e.ratingsByUser[userID]...)
}

func (e *Engine) resolveK(k int) int {
	if k <= 0 {
		k = e.cfg.DefaultK
	}
	if k > e.cfg.MaxK {
		k = e.cfg.MaxK
	}
	return k
}

// Recommend returns the top K items for req.UserID. A user with no usable
// history gets an empty response, not an error.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	logger := logging.FromContext(ctx, e.logger)

	if err := ctx.Err(); err != nil {
		metrics.RecordRecommendation(metrics.OutcomeError, 0, time.Since(start))
		return nil, err
	}

	k := e.resolveK(req.K)
	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = logging.GenerateRequestID()
	}

	e.dataMu.RLock()
	ratings := e.ratingsByUser[req.UserID]
	weights := Weights(req.UserID, ratings, e.index)
	candidates := e.scorer.Candidates(req.UserID, ratings, e.items, weights)
	e.dataMu.RUnlock()

	resp := &Response{
		Items: []ScoredItem{},
		Metadata: ResponseMetadata{
			RequestID:  requestID,
			UserID:     req.UserID,
			K:          k,
			Candidates: len(candidates),
			ArmMemory:  e.cfg.ArmMemory.String(),
		},
	}

	if len(candidates) == 0 {
		resp.Metadata.Epsilon = e.cfg.Bandit.Epsilon
		resp.Metadata.Latency = time.Since(start)
		metrics.RecordRecommendation(metrics.OutcomeEmpty, 0, resp.Metadata.Latency)
		logger.Debug().Int("user_id", req.UserID).Int("genres", len(weights)).Msg("no candidates for user")
		return resp, nil
	}

	ranked, epsilon, err := e.rank(req.UserID, candidates, k)
	if err != nil {
		metrics.RecordRecommendation(metrics.OutcomeError, len(candidates), time.Since(start))
		return nil, err
	}
	resp.Items = ranked
	resp.Metadata.Epsilon = epsilon
	resp.Metadata.Latency = time.Since(start)

	metrics.RecordRecommendation(metrics.OutcomeSuccess, len(candidates), resp.Metadata.Latency)
	metrics.SetBanditEpsilon(epsilon)

	logger.Debug().
		Int("user_id", req.UserID).
		Int("k", k).
		Int("candidates", len(candidates)).
		Float64("epsilon", epsilon).
		Dur("latency", resp.Metadata.Latency).
		Msg("recommendation served")

	return resp, nil
}

// rank runs one bandit pass over candidates and returns the top k among them.
func (e *Engine) rank(userID int, candidates []ScoredCandidate, k int) ([]ScoredItem, float64, error) {
	var sel *bandit.EpsilonGreedy
	if e.cfg.ArmMemory == ArmMemoryAccumulate {
		e.armsMu.Lock()
		defer e.armsMu.Unlock()
		s, err := e.selectorLocked(userID)
		if err != nil {
			return nil, 0, err
		}
		sel = s
	} else {
		s, err := e.newSelector()
		if err != nil {
			return nil, 0, err
		}
		sel = s
	}

	byID := make(map[int]ScoredCandidate, len(candidates))
	for _, c := range candidates {
		sel.Update(c.ID, c.Score)
		byID[c.ID] = c
	}

	// An accumulating selector also holds arms that are no longer candidates.
	items := make([]ScoredItem, 0, k)
	for _, arm := range sel.TopK(sel.Len()) {
		c, ok := byID[arm.ID]
		if !ok {
			continue
		}
		items = append(items, ScoredItem{
			ItemID:       arm.ID,
			Title:        c.Title,
			Score:        arm.Value,
			ContentScore: c.Score,
			Pulls:        arm.Pulls,
		})
		if len(items) == k {
			break
		}
	}
	return items, sel.Epsilon(), nil
}

func (e *Engine) newSelector() (*bandit.EpsilonGreedy, error) {
	rng := rand.New(rand.NewSource(e.cfg.Seed)) //nolint:gosec // ranking does not need a CSPRNG
	return bandit.New(e.cfg.Bandit, rng)
}

// selectorLocked returns the user's selector, creating it on first use.
// Callers hold armsMu.
func (e *Engine) selectorLocked(userID int) (*bandit.EpsilonGreedy, error) {
	if s, ok := e.selectors[userID]; ok {
		return s, nil
	}
	s, err := e.newSelector()
	if err != nil {
		return nil, err
	}
	e.selectors[userID] = s
	return s, nil
}

// Feedback records an observed reward for an item shown to userID.
func (e *Engine) Feedback(userID, itemID int, reward float64) error {
	if e.cfg.ArmMemory != ArmMemoryAccumulate {
		return ErrArmMemoryDisabled
	}
	if _, ok := e.Item(itemID); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownItem, itemID)
	}

	e.armsMu.Lock()
	defer e.armsMu.Unlock()
	sel, err := e.selectorLocked(userID)
	if err != nil {
		return err
	}
	sel.Update(itemID, reward)
	metrics.SetBanditEpsilon(sel.Epsilon())

	e.logger.Debug().
		Int("user_id", userID).
		Int("item_id", itemID).
		Float64("reward", reward).
		Float64("epsilon", sel.Epsilon()).
		Msg("feedback recorded")
	return nil
}

// Next asks the user's selector to pick one of candidates.
func (e *Engine) Next(userID int, candidates []int) (int, error) {
	if e.cfg.ArmMemory != ArmMemoryAccumulate {
		return 0, ErrArmMemoryDisabled
	}
	e.armsMu.Lock()
	defer e.armsMu.Unlock()
	sel, err := e.selectorLocked(userID)
	if err != nil {
		return 0, err
	}
	return sel.SelectAction(candidates)
}

// Snapshot returns the arm state of one user. The second result is false
// when the user has no selector.
func (e *Engine) Snapshot(userID int) (bandit.State, bool) {
	e.armsMu.Lock()
	defer e.armsMu.Unlock()
	sel, ok := e.selectors[userID]
	if !ok {
		return bandit.State{}, false
	}
	return sel.Snapshot(), true
}
