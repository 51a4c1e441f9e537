// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/filminsight/internal/logging"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the enrichment cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheInvalidateCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

// CacheStats summarizes the enrichment cache.
type CacheStats struct {
	Backend  string `json:"backend"`
	Path     string `json:"path"`
	Titles   int    `json:"titles"`
	Enriched int    `json:"enriched"`
	NoResult int    `json:"no_result"`
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show enrichment cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg.Cache, ctx.logger())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			stats := CacheStats{Backend: cfg.Cache.Backend, Path: cfg.Cache.Path, Titles: len(records)}
			for _, rec := range records {
				if rec.IsNoResult() {
					stats.NoResult++
				} else {
					stats.Enriched++
				}
			}

			if ctx.jsonFlag {
				return writeJSON(cmd, stats)
			}
			rows := [][]string{
				{"Backend", stats.Backend},
				{"Path", stats.Path},
				{"Titles", strconv.Itoa(stats.Titles)},
				{"Enriched", strconv.Itoa(stats.Enriched)},
				{"No result", strconv.Itoa(stats.NoResult)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Cache", ""}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newCacheInvalidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <title>...",
		Short: "Forget titles so the next enrich run queries them again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg.Cache, ctx.logger())
			if err != nil {
				return err
			}
			defer store.Close()

			removed := 0
			for _, title := range args {
				if _, ok := store.Lookup(title); !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "not cached: %s\n", title)
					continue
				}
				store.Invalidate(title)
				removed++
			}
			if removed > 0 {
				if err := store.Persist(cmd.Context()); err != nil {
					return err
				}
				logging.Ctx(cmd.Context()).Info().
					Int("removed", removed).
					Str("path", cfg.Cache.Path).
					Msg("enrichment cache entries invalidated")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %d of %d title(s)\n", removed, len(args))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget every cached title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the cache without --yes")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg.Cache, ctx.logger())
			if err != nil {
				return err
			}
			defer store.Close()

			n := store.Len()
			store.Clear()
			if err := store.Persist(cmd.Context()); err != nil {
				return err
			}
			logging.Ctx(cmd.Context()).Info().
				Int("removed", n).
				Str("path", cfg.Cache.Path).
				Msg("enrichment cache cleared")
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", n, plural(n, "title"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm clearing the cache")
	return cmd
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return strings.TrimSuffix(word, "s") + "s"
}
