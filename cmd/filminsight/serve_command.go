// FilmInsight - Knowledge-Graph Enrichment and Bandit Ranking for Movie Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filminsight

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/filminsight/internal/api"
	"github.com/tomtom215/filminsight/internal/config"
	"github.com/tomtom215/filminsight/internal/enrich"
	"github.com/tomtom215/filminsight/internal/logging"
	"github.com/tomtom215/filminsight/internal/recommend"
	"github.com/tomtom215/filminsight/internal/supervisor"
	"github.com/tomtom215/filminsight/internal/supervisor/services"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var skipStartupEnrich bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations over HTTP",
		Long: "Starts the HTTP API and the background enrichment refresh under a supervisor\n" +
			"tree. The catalog is enriched in the background at startup unless\n" +
			"--skip-startup-enrich is set; until then rankings use genres only.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()

			recCfg, err := recommendConfig(cfg.Recommend)
			if err != nil {
				return err
			}
			p, err := newPipeline(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			engine, err := recommend.NewEngine(recCfg, p.items, p.ratings, logger)
			if err != nil {
				return err
			}

			refresher := enrich.NewRefresher(p.enricher, p.items, engine)
			refreshSvc := services.NewRefreshService(refresher, services.RefreshServiceConfig{
				Interval:   cfg.Enrich.RefreshInterval,
				RunOnStart: !skipStartupEnrich,
			}, logger)

			handler := api.NewHandler(engine, p.store, refreshSvc, p.client, logger)
			server := &http.Server{
				Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
				Handler:           api.NewRouter(handler, api.NewChiMiddleware(middlewareConfig(cfg.Server))),
				ReadHeaderTimeout: 10 * time.Second,
			}

			tree := supervisor.NewTree(logging.NewSlogLogger(logging.WithComponent("supervisor")), supervisor.TreeConfig{
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			})
			tree.AddEnrichmentService(refreshSvc)
			tree.AddAPIService(services.NewHTTPServerService(server, services.HTTPServiceConfig{
				Addr:            server.Addr,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, logger))

			logger.Info().
				Str("addr", server.Addr).
				Int("items", len(p.items)).
				Str("arm_memory", recCfg.ArmMemory.String()).
				Msg("filminsight serving")

			if err := tree.Serve(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info().Msg("filminsight stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipStartupEnrich, "skip-startup-enrich", false, "Do not enrich the catalog when the server starts")
	return cmd
}

func middlewareConfig(cfg config.ServerConfig) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.CORSOrigins
	mw.RateLimitRequests = cfg.RateLimitRequests
	mw.RateLimitWindow = cfg.RateLimitWindow
	mw.RateLimitDisabled = cfg.RateLimitRequests == 0
	return mw
}
