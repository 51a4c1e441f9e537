// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tomtom215/filminsight/internal/evaluation"
	"github.com/tomtom215/filminsight/internal/recommend"
)

func newEvaluateCommand(ctx *commandContext) *cobra.Command {
	var (
		userID  int
		k       int
		holdout float64
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score recommendations against a held-out slice of a user's ratings",
		Long: "Hides the user's highest-rated movies, recommends from the rest and reports\n" +
			"precision@k, recall@k and MAP@k against the hidden set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			recCfg, err := recommendConfig(cfg.Recommend)
			if err != nil {
				return err
			}
			if k <= 0 {
				k = recCfg.DefaultK
			}

			items, ratings, err := loadCatalog(cfg.Data)
			if err != nil {
				return err
			}
			train, relevant, err := evaluation.Holdout(ratings, userID, holdout)
			if err != nil {
				return err
			}

			engine, err := recommend.NewEngine(recCfg, items, train, ctx.logger())
			if err != nil {
				return err
			}
			resp, err := engine.Recommend(cmd.Context(), recommend.Request{UserID: userID, K: k})
			if err != nil {
				return err
			}

			ids := make([]int, len(resp.Items))
			for i, it := range resp.Items {
				ids[i] = it.ItemID
			}
			report := evaluation.Evaluate(ids, relevant, resp.Metadata.K)

			if ctx.jsonFlag {
				return writeJSON(cmd, report)
			}
			rows := [][]string{
				{"k", strconv.Itoa(report.K)},
				{"Held out", strconv.Itoa(report.Relevant)},
				{"Hits", strconv.Itoa(report.Hits)},
				{"Precision@k", strconv.FormatFloat(report.Precision, 'f', 4, 64)},
				{"Recall@k", strconv.FormatFloat(report.Recall, 'f', 4, 64)},
				{"MAP@k", strconv.FormatFloat(report.MAP, 'f', 4, 64)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&userID, "user", "u", 0, "User ID")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "Cutoff (default from config)")
	cmd.Flags().Float64Var(&holdout, "holdout", 0.2, "Fraction of the user's ratings to hide, in (0, 1)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
