// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package sparql

import (
	"strings"
)

// queryPrologue and queryBody frame the per-title film lookup. The titles are
// bound through a VALUES block so one request resolves a whole batch.
const queryPrologue = `PREFIX dbo: <http://dbpedia.org/ontology/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?label ?abstract ?director ?starring ?genre WHERE {
  VALUES ?label {`

const queryBody = ` }
  ?film a dbo:Film ;
        rdfs:label ?label .
  OPTIONAL { ?film dbo:abstract ?abstract . FILTER (lang(?abstract) = 'en') }
  OPTIONAL { ?film dbo:director ?director }
  OPTIONAL { ?film dbo:starring ?starring }
  OPTIONAL { ?film dbo:genre ?genre }
}`

// BuildLabelQuery returns the lookup query for titles. Titles are matched as
// English-tagged labels.
func BuildLabelQuery(titles []string) string {
	var b strings.Builder
	b.WriteString(queryPrologue)
	for _, t := range titles {
		b.WriteByte(' ')
		b.WriteString(literal(t))
		b.WriteString("@en")
	}
	b.WriteString(queryBody)
	return b.String()
}

// literal quotes s as a SPARQL string literal.
func literal(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
