package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yaroing/feedback-platform/internal/bootstrap"
	"github.com/yaroing/feedback-platform/internal/maintenance"
	infracontext "github.com/yaroing/feedback-platform/infrastructure/context"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the feedback poller and model maintenance",
		Long: `Start the ops HTTP API. When enabled in the configuration, the feedback poller
classifies unclassified feedback in the background and the maintenance scheduler keeps
the active model trained.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return opts.withComponents(ctx, true, serve)
		},
	}
}

func serve(ctx context.Context, comps *bootstrap.Components) error {
	cfg := comps.Config
	log := comps.Logger

	if cfg.Processor.Enabled {
		if err := comps.Poller.Start(ctx); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
		defer comps.Poller.Stop()
	}

	if cfg.Maintenance.Enabled {
		scheduler := maintenance.NewScheduler(comps.Checker, cfg.Maintenance.Schedule, log)
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	server := comps.NewHTTPServer()
	errCh := server.StartAsync()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := infracontext.WithShutdownTimeout()
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", infralogger.Error(err))
	}

	return runErr
}
