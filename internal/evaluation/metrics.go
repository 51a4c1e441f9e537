// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package evaluation measures ranking quality against a held-out set of
// relevant items.
package evaluation

import (
	"fmt"
	"sort"

	"github.com/tomtom215/filminsight/internal/models"
)

// Relevant is a set of relevant item IDs.
type Relevant map[int]struct{}

// NewRelevant builds a set from ids.
func NewRelevant(ids ...int) Relevant {
	r := make(Relevant, len(ids))
	for _, id := range ids {
		r[id] = struct{}{}
	}
	return r
}

// hits counts the distinct relevant IDs among the first k recommendations.
func hits(recommended []int, relevant Relevant, k int) int {
	if k > len(recommended) {
		k = len(recommended)
	}
	seen := make(map[int]struct{}, k)
	n := 0
	for _, id := range recommended[:k] {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := relevant[id]; ok {
			n++
		}
	}
	return n
}

// PrecisionAtK is |top-k ∩ relevant| / k. It is 0 when k <= 0. A list
// shorter than k still divides by k.
func PrecisionAtK(recommended []int, relevant Relevant, k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(hits(recommended, relevant, k)) / float64(k)
}

// RecallAtK is |top-k ∩ relevant| / |relevant|. It is 0 for an empty
// relevant set.
func RecallAtK(recommended []int, relevant Relevant, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	return float64(hits(recommended, relevant, k)) / float64(len(relevant))
}

// MeanAveragePrecision is the mean of PrecisionAtK for every cutoff 1..k.
// It is 0 for an empty relevant set or k <= 0.
func MeanAveragePrecision(recommended []int, relevant Relevant, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	var sum float64
	for i := 1; i <= k; i++ {
		sum += PrecisionAtK(recommended, relevant, i)
	}
	return sum / float64(k)
}

// Report holds the three metrics for one ranked list.
type Report struct {
	K         int     `json:"k"`
	Relevant  int     `json:"relevant"`
	Hits      int     `json:"hits"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	MAP       float64 `json:"map"`
}

// Evaluate computes a Report for recommended against relevant.
func Evaluate(recommended []int, relevant Relevant, k int) Report {
	r := Report{
		K:         k,
		Relevant:  len(relevant),
		Precision: PrecisionAtK(recommended, relevant, k),
		Recall:    RecallAtK(recommended, relevant, k),
		MAP:       MeanAveragePrecision(recommended, relevant, k),
	}
	if k > 0 {
		r.Hits = hits(recommended, relevant, k)
	}
	return r
}

// Holdout hides the highest-rated fraction of one user's ratings. It returns
// the remaining ratings (all users) and the hidden item IDs as the relevant
// set. At least one rating is hidden when the user has two or more; ties
// keep file order.
func Holdout(ratings []models.RatingEvent, userID int, fraction float64) ([]models.RatingEvent, Relevant, error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("holdout fraction must be in (0, 1), got %f", fraction)
	}

	var userIdx []int
	for i, r := range ratings {
		if r.UserID == userID {
			userIdx = append(userIdx, i)
		}
	}
	if len(userIdx) < 2 {
		return nil, nil, fmt.Errorf("user %d has %d ratings, need at least 2 for a holdout", userID, len(userIdx))
	}

	sort.SliceStable(userIdx, func(a, b int) bool {
		return ratings[userIdx[a]].Rating > ratings[userIdx[b]].Rating
	})

	n := int(float64(len(userIdx)) * fraction)
	if n < 1 {
		n = 1
	}
	if n >= len(userIdx) {
		n = len(userIdx) - 1
	}

	hidden := make(map[int]struct{}, n)
	relevant := make(Relevant, n)
	for _, i := range userIdx[:n] {
		hidden[i] = struct{}{}
		relevant[ratings[i].MovieID] = struct{}{}
	}

	train := make([]models.RatingEvent, 0, len(ratings)-n)
	for i, r := range ratings {
		if _, ok := hidden[i]; !ok {
			train = append(train, r)
		}
	}
	return train, relevant, nil
}
