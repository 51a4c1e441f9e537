// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package enrich

import (
	"regexp"
	"strings"
)

// yearSuffix matches a trailing "(YYYY)" release year, as in "Up (2009)".
var yearSuffix = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)

// FallbackTitle strips a trailing release year. It returns false when the
// title has no year suffix or nothing would remain.
func FallbackTitle(title string) (string, bool) {
	if !yearSuffix.MatchString(title) {
		return "", false
	}
	stripped := strings.TrimSpace(yearSuffix.ReplaceAllString(title, ""))
	if stripped == "" {
		return "", false
	}
	return stripped, true
}
