// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tomtom215/filminsight/internal/enrich"
	"github.com/tomtom215/filminsight/internal/logging"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Fill the enrichment cache from the knowledge graph",
		Long: "Loads the catalog, queries the knowledge graph for every title not yet in the\n" +
			"cache (retrying rate-limited batches and falling back to the title without its\n" +
			"year), and persists the cache.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := logging.ContextWithNewCorrelationID(cmd.Context())
			logger := ctx.logger()

			p, err := newPipeline(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			_, stats, err := p.enricher.Enrich(runCtx, p.items)
			if err != nil {
				return fmt.Errorf("enrichment finished but the cache was not saved: %w", err)
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, stats)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats))
			return nil
		},
	}
}

func renderStats(stats enrich.Stats) string {
	rows := [][]string{
		{"Items", strconv.Itoa(stats.Items)},
		{"Distinct titles", strconv.Itoa(stats.DistinctTitles)},
		{"Cache hits", strconv.Itoa(stats.CacheHits)},
		{"Queried", strconv.Itoa(stats.Dispatched)},
		{"Resolved", strconv.Itoa(stats.Resolved)},
		{"Resolved without year", strconv.Itoa(stats.FallbackResolved)},
		{"No result", strconv.Itoa(stats.NoResult)},
		{"Canceled", strconv.Itoa(stats.Canceled)},
		{"Duration", stats.Duration.Round(1e6).String()},
	}
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}
