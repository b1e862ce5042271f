package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/httpserver"
	"github.com/vidtube/backend/internal/logging"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

// Run bootstraps the vidtube backend with the given command line.
func Run(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vidtube",
		Short:         "Video sharing API",
		Long:          "vidtube serves the video sharing REST API and manages its database schema.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())

	return root
}

func newServeCmd() *cobra.Command {
	var store string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if store != storePostgres && store != storeMemory {
				return fmt.Errorf("invalid store %q: must be %q or %q", store, storePostgres, storeMemory)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, store)
		},
	}

	cmd.Flags().StringVar(&store, "store", storePostgres, "persistence backend (postgres or memory)")

	return cmd
}

func serve(ctx context.Context, cfg config.Config, backend string) error {
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.IsProduction())
	slog.SetDefault(logger)

	stores, closeStores, err := openStores(ctx, cfg, backend)
	if err != nil {
		return err
	}
	defer closeStores()

	deps, cleanup, err := buildDependencies(ctx, cfg, stores, logger)
	if err != nil {
		return err
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
		defer cancel()
		if err := cleanup(cleanupCtx); err != nil {
			logger.Warn("media janitor did not drain", "error", err)
		}
	}()

	srv := httpserver.New(httpserver.Options{Port: cfg.AppPort}, handlers.NewRouter(deps))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting http server", "port", cfg.AppPort, "store", backend, "env", cfg.Env)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down http server")
	case err := <-srvErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
