// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package models defines the domain types shared by the enrichment and
// ranking pipelines.
package models

import "strings"

// listSeparator joins multi-valued enrichment attributes (directors, cast, genres).
const listSeparator = ", "

// CatalogItem is a movie in the catalog.
//
// ID, Title and Genres are set at load time. The enrichment fields are nil
// until the item has been enriched, and stay nil when the knowledge graph
// had nothing for the title.
type CatalogItem struct {
	ID     int      `json:"id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres"`

	Abstract       *string  `json:"abstract,omitempty"`
	Director       *string  `json:"director,omitempty"`
	Starring       *string  `json:"starring,omitempty"`
	ExternalGenres []string `json:"external_genres,omitempty"`
}

// HasGenre reports whether the item is tagged with genre.
func (c *CatalogItem) HasGenre(genre string) bool {
	for _, g := range c.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// Apply copies an enrichment record onto the item. A no-result record
// clears nothing and sets nothing.
func (c *CatalogItem) Apply(rec Record) {
	e := rec.Enrichment
	if e == nil {
		return
	}
	c.Abstract = e.Abstract
	c.Director = e.Director
	c.Starring = e.Starring
	c.ExternalGenres = SplitList(e.Genre)
}

// Directors returns the individual director names of an enriched item.
func (c *CatalogItem) Directors() []string {
	return SplitList(c.Director)
}

// Cast returns the individual cast member names of an enriched item.
func (c *CatalogItem) Cast() []string {
	return SplitList(c.Starring)
}

// SplitList splits a joined multi-value attribute. Nil or blank input yields nil.
func SplitList(s *string) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(*s, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinList is the inverse of SplitList. An empty list yields nil.
func JoinList(values []string) *string {
	if len(values) == 0 {
		return nil
	}
	s := strings.Join(values, listSeparator)
	return &s
}

// RatingEvent is one explicit rating of a movie by a user.
type RatingEvent struct {
	UserID  int     `json:"user_id"`
	MovieID int     `json:"movie_id"`
	Rating  float64 `json:"rating"`
}
