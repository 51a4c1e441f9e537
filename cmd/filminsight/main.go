// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

// Package main is the filminsight command.
//
// FilmInsight enriches a MovieLens-style catalog with DBpedia metadata and
// ranks movies for a user with a genre-weighted epsilon-greedy bandit.
//
//	filminsight enrich                         # fill the enrichment cache
//	filminsight recommend --user 1 --k 10      # print a ranked table
//	filminsight evaluate --user 1 --holdout 0.2
//	filminsight cache stats|invalidate <title>|clear
//	filminsight serve                          # HTTP API under a supervisor tree
//
// # Configuration
//
// Configuration is loaded via koanf with layered sources (highest priority wins):
//   - Environment variables (MOVIES_PATH, CACHE_BACKEND, BANDIT_EPSILON, ...)
//   - Config file (--config, CONFIG_PATH or ./filminsight.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the command context. An interrupted enrich run
// still persists what it resolved; serve shuts the HTTP server down
// gracefully.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
