// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package sparql

import (
	"net/url"
	"strings"

	"github.com/tomtom215/filminsight/internal/models"
)

// resultsDocument is the SPARQL 1.1 JSON results format.
type resultsDocument struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]term `json:"bindings"`
	} `json:"results"`
}

// term is one bound RDF term.
type term struct {
	Type  string `json:"type"` // uri, literal, typed-literal, bnode
	Value string `json:"value"`
	Lang  string `json:"xml:lang,omitempty"`
}

// readable returns a display form of the term. Resource URIs become their
// last path segment with underscores turned into spaces.
func (t term) readable() string {
	if t.Type != "uri" {
		return strings.TrimSpace(t.Value)
	}
	v := strings.TrimRight(t.Value, "/")
	if i := strings.LastIndexAny(v, "/#"); i >= 0 {
		v = v[i+1:]
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		v = unescaped
	}
	return strings.TrimSpace(strings.ReplaceAll(v, "_", " "))
}

// valueSet keeps distinct values in first-seen order.
type valueSet struct {
	seen   map[string]struct{}
	values []string
}

func (s *valueSet) add(v string) {
	if v == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}

// filmAccumulator folds the rows returned for one label.
type filmAccumulator struct {
	abstract *string
	director valueSet
	starring valueSet
	genre    valueSet
}

func (a *filmAccumulator) enrichment() models.Enrichment {
	return models.Enrichment{
		Abstract: a.abstract,
		Director: models.JoinList(a.director.values),
		Starring: models.JoinList(a.starring.values),
		Genre:    models.JoinList(a.genre.values),
	}
}

// fold groups rows by label. The join of several OPTIONAL patterns yields one
// row per combination, so multi-valued attributes are de-duplicated. The
// first abstract wins.
func fold(doc *resultsDocument) map[string]models.Enrichment {
	acc := make(map[string]*filmAccumulator)
	order := make([]string, 0)

	for _, row := range doc.Results.Bindings {
		label, ok := row["label"]
		if !ok || label.Value == "" {
			continue
		}
		a, ok := acc[label.Value]
		if !ok {
			a = &filmAccumulator{}
			acc[label.Value] = a
			order = append(order, label.Value)
		}
		if t, ok := row["abstract"]; ok && a.abstract == nil {
			if v := strings.TrimSpace(t.Value); v != "" {
				a.abstract = &v
			}
		}
		if t, ok := row["director"]; ok {
			a.director.add(t.readable())
		}
		if t, ok := row["starring"]; ok {
			a.starring.add(t.readable())
		}
		if t, ok := row["genre"]; ok {
			a.genre.add(t.readable())
		}
	}

	out := make(map[string]models.Enrichment, len(order))
	for _, label := range order {
		out[label] = acc[label].enrichment()
	}
	return out
}
