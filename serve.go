package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chapterworks/spwalk/internal/config"
	"github.com/chapterworks/spwalk/internal/history"
	"github.com/chapterworks/spwalk/internal/server"
	"github.com/chapterworks/spwalk/internal/service"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Serve POST /accessToken, GET /ws and GET /healthz.

The config file is watched; selection, document type, rate limiting and CORS
settings apply to the next request after it changes. The listen address,
history database and concurrency cap need a restart.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (default from config, \":3000\")")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := buildLogger(resolvedCfg, cmd.ErrOrStderr())

	// Fail at startup rather than on the first request.
	if err := config.RequireCredentials(resolvedCfg); err != nil {
		return err
	}

	ctx, release := shutdownContext(cmd.Context(), logger)
	defer release()

	recorder, closeHistory, err := openHistory(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer closeHistory()

	holder := config.NewHolder(resolvedCfg, config.ConfigPath(resolvedEnv, resolvedCLI))
	orch := service.New(holder, logger, service.Options{Recorder: recorder})
	srv := server.New(holder, orch, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return watchConfig(gctx, holder, logger) })

	return g.Wait()
}

// watchConfig reloads the config file into holder until ctx is canceled.
// Watch failures disable live reload but never stop the server.
func watchConfig(ctx context.Context, holder *config.Holder, logger *slog.Logger) error {
	if _, err := os.Stat(holder.Path()); errors.Is(err, fs.ErrNotExist) || holder.Path() == "" {
		logger.Debug("no config file, live reload disabled", slog.String("path", holder.Path()))
		return nil
	}

	if err := config.Watch(ctx, holder, reloadConfig, logger); err != nil {
		logger.Warn("config reload disabled", slog.String("error", err.Error()))
	}

	return nil
}

// openHistory opens the run history store when history.path is set. The
// returned close func is always safe to call.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Recorder, func(), error) {
	if cfg.History.Path == "" {
		return nil, func() {}, nil
	}

	store, err := history.Open(ctx, cfg.History.Path, logger)
	if err != nil {
		return nil, func() {}, err
	}

	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing history store", slog.String("error", err.Error()))
		}
	}, nil
}
