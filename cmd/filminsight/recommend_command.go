// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tomtom215/filminsight/internal/logging"
	"github.com/tomtom215/filminsight/internal/models"
	"github.com/tomtom215/filminsight/internal/recommend"
)

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	var (
		userID   int
		k        int
		enriched bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank movies for one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := logging.ContextWithNewCorrelationID(cmd.Context())
			logger := ctx.logger()

			recCfg, err := recommendConfig(cfg.Recommend)
			if err != nil {
				return err
			}

			var (
				items   []models.CatalogItem
				ratings []models.RatingEvent
			)
			if enriched {
				p, perr := newPipeline(runCtx, cfg, logger)
				if perr != nil {
					return perr
				}
				defer p.Close()
				ratings = p.ratings
				if items, _, perr = p.enricher.Enrich(runCtx, p.items); perr != nil {
					logger.Warn().Err(perr).Msg("enrichment cache was not saved")
				}
			} else if items, ratings, err = loadCatalog(cfg.Data); err != nil {
				return err
			}

			engine, err := recommend.NewEngine(recCfg, items, ratings, logger)
			if err != nil {
				return err
			}
			resp, err := engine.Recommend(runCtx, recommend.Request{UserID: userID, K: k})
			if err != nil {
				return err
			}

			if ctx.jsonFlag {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if len(resp.Items) == 0 {
				fmt.Fprintf(out, "No recommendations for user %d (no rated genres in common with the catalog)\n", userID)
				return nil
			}
			fmt.Fprintln(out, renderRecommendations(resp))
			return nil
		},
	}

	cmd.Flags().IntVarP(&userID, "user", "u", 0, "User ID")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "Number of recommendations (default from config)")
	cmd.Flags().BoolVar(&enriched, "enriched", false, "Enrich the catalog first so director and cast affinity apply")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func renderRecommendations(resp *recommend.Response) string {
	rows := make([][]string, 0, len(resp.Items))
	for i, it := range resp.Items {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(it.ItemID),
			it.Title,
			strconv.FormatFloat(it.Score, 'f', 3, 64),
			strconv.FormatFloat(it.ContentScore, 'f', 3, 64),
		})
	}
	return renderTable(
		[]string{"#", "ID", "Title", "Score", "Content"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight},
	)
}
