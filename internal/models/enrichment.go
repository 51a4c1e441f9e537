// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package models

// Enrichment is the metadata fetched from the knowledge graph for one title.
// Every field is optional; nil means the graph had no value for it.
type Enrichment struct {
	Abstract *string `json:"abstract"`
	Director *string `json:"director"`
	Starring *string `json:"starring"`
	Genre    *string `json:"genre"`
}

// IsEmpty reports whether no field is set.
func (e *Enrichment) IsEmpty() bool {
	return e == nil || (e.Abstract == nil && e.Director == nil && e.Starring == nil && e.Genre == nil)
}

// Record is a cache entry for a title.
//
// A Record with a nil Enrichment is the explicit "no result" marker: the title
// was queried and nothing was found. A title absent from the cache has simply
// not been queried yet.
type Record struct {
	Enrichment *Enrichment
}

// Found wraps an enrichment payload in a record.
func Found(e Enrichment) Record {
	return Record{Enrichment: &e}
}

// NoResult returns the "no result" marker.
func NoResult() Record {
	return Record{}
}

// IsNoResult reports whether the record is the "no result" marker.
func (r Record) IsNoResult() bool {
	return r.Enrichment == nil
}
