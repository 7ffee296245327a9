package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"github.com/dnisha/aws-instance-schedular/pkg/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with periodic sweeps",
	Long: `Starts the scheduler as a long-running service. A background job
sweeps all configured regions at the configured interval, and the HTTP
API serves schedule management and on-demand sweeps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		if err := verifyCredentials(ctx, app); err != nil {
			return err
		}

		cron, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create job scheduler: %w", err)
		}

		// Singleton mode keeps a slow sweep from overlapping the next one.
		_, err = cron.NewJob(
			gocron.DurationJob(app.cfg.SweepInterval),
			gocron.NewTask(func() {
				sweepCtx, cancel := context.WithTimeout(context.Background(), app.cfg.SweepInterval)
				defer cancel()
				if _, err := app.sweeper.Run(sweepCtx); err != nil {
					app.logger.Error("sweep failed", "error", err)
				}
			}),
			gocron.WithName("instance sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule sweep job: %w", err)
		}

		cron.Start()
		app.logger.Info("sweep job scheduled",
			"interval", app.cfg.SweepInterval,
			"regions", app.cfg.Regions)

		server := &http.Server{
			Addr:         app.cfg.BindAddress,
			Handler:      api.NewServer(app.store, app.compute, app.sweeper, app.logger).Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
		}

		serverErr := make(chan error, 1)
		go func() {
			app.logger.Info("HTTP API listening", "address", app.cfg.BindAddress)
			serverErr <- server.ListenAndServe()
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-sigChan:
			app.logger.Warn("shutting down", "signal", sig.String())
		case err := <-serverErr:
			if !errors.Is(err, http.ErrServerClosed) {
				app.logger.Error("HTTP server failed", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("HTTP shutdown failed", "error", err)
		}
		return cron.Shutdown()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
