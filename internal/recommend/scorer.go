// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package recommend

import (
	"slices"

	"github.com/tomtom215/filminsight/internal/models"
)

// Index maps catalog item IDs to items.
type Index map[int]*models.CatalogItem

// NewIndex indexes items by ID. The index points into items.
func NewIndex(items []models.CatalogItem) Index {
	idx := make(Index, len(items))
	for i := range items {
		idx[items[i].ID] = &items[i]
	}
	return idx
}

// ScoredCandidate is an unrated item with its content score.
type ScoredCandidate struct {
	ID    int
	Title string
	Score float64
}

// Weights sums the user's ratings per genre of each rated item. Ratings of
// other users and of unknown items are skipped.
func Weights(userID int, ratings []models.RatingEvent, index Index) map[string]float64 {
	weights := make(map[string]float64)
	for _, r := range ratings {
		if r.UserID != userID {
			continue
		}
		item, ok := index[r.MovieID]
		if !ok {
			continue
		}
		eachGenre(item, func(g string) {
			weights[g] += r.Rating
		})
	}
	return weights
}

// Score sums the weights of the item's genres.
func Score(item *models.CatalogItem, weights map[string]float64) float64 {
	var s float64
	eachGenre(item, func(g string) {
		s += weights[g]
	})
	return s
}

// eachGenre calls fn once per distinct genre of item.
func eachGenre(item *models.CatalogItem, fn func(string)) {
	for i, g := range item.Genres {
		if !slices.Contains(item.Genres[:i], g) {
			fn(g)
		}
	}
}

func matchesAny(item *models.CatalogItem, weights map[string]float64) bool {
	for _, g := range item.Genres {
		if _, ok := weights[g]; ok {
			return true
		}
	}
	return false
}

// Scorer turns a user's rating history into content scores for unrated items.
type Scorer struct {
	RequireGenreMatch bool
	DirectorWeight    float64
	CastWeight        float64
}

// affinity accumulates rating mass per director and cast member of rated items.
type affinity struct {
	directors map[string]float64
	cast      map[string]float64
}

func (s Scorer) usesEnrichment() bool {
	return s.DirectorWeight > 0 || s.CastWeight > 0
}

func (s Scorer) affinities(userID int, ratings []models.RatingEvent, index Index) affinity {
	a := affinity{directors: make(map[string]float64), cast: make(map[string]float64)}
	for _, r := range ratings {
		if r.UserID != userID {
			continue
		}
		item, ok := index[r.MovieID]
		if !ok {
			continue
		}
		for _, d := range item.Directors() {
			a.directors[d] += r.Rating
		}
		for _, c := range item.Cast() {
			a.cast[c] += r.Rating
		}
	}
	return a
}

func (s Scorer) enrichmentScore(item *models.CatalogItem, a affinity) float64 {
	var total float64
	if s.DirectorWeight > 0 {
		for _, d := range item.Directors() {
			total += s.DirectorWeight * a.directors[d]
		}
	}
	if s.CastWeight > 0 {
		for _, c := range item.Cast() {
			total += s.CastWeight * a.cast[c]
		}
	}
	return total
}

// Candidates scores every item the user has not rated, in catalog order.
// Empty weights give no candidates.
func (s Scorer) Candidates(userID int, ratings []models.RatingEvent, items []models.CatalogItem, weights map[string]float64) []ScoredCandidate {
	if len(weights) == 0 {
		return nil
	}

	rated := make(map[int]struct{})
	for _, r := range ratings {
		if r.UserID == userID {
			rated[r.MovieID] = struct{}{}
		}
	}

	var aff affinity
	enriched := s.usesEnrichment()
	if enriched {
		aff = s.affinities(userID, ratings, NewIndex(items))
	}

	var out []ScoredCandidate
	for i := range items {
		item := &items[i]
		if _, ok := rated[item.ID]; ok {
			continue
		}
		if s.RequireGenreMatch && !matchesAny(item, weights) {
			continue
		}
		score := Score(item, weights)
		if enriched {
			score += s.enrichmentScore(item, aff)
		}
		out = append(out, ScoredCandidate{ID: item.ID, Title: item.Title, Score: score})
	}
	return out
}
