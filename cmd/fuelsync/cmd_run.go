package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrolwatch/fuelsync/internal/database"
	"github.com/petrolwatch/fuelsync/internal/engine"
	"github.com/petrolwatch/fuelsync/internal/feed"
	"github.com/petrolwatch/fuelsync/internal/http"
	"github.com/petrolwatch/fuelsync/internal/refdata"
	"github.com/petrolwatch/fuelsync/internal/scheduler"
)

func runCmd() *cobra.Command {
	var runHour int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the continuous sync service",
		Long:  "Starts the fuel station sync service with an internal scheduler that ingests the feed daily at the specified hour.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if cfg.PostgresDSN == "" {
				return fmt.Errorf("--postgres-dsn is required")
			}

			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTPAddr).
				Int("runHour", runHour).
				Msg("starting fuel station sync")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			store, err := database.New(ctx, cfg.PostgresDSN, logger)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer store.Close()

			client := feed.NewClient(cfg.FeedBaseURL, logger)
			refProvider := refdata.NewProvider(store, cfg.RefdataTTL, logger)
			eng := engine.New(client, store, refProvider, cfg.ParseWorkers, logger)

			sched := scheduler.New(eng, runHour, logger)
			httpServer := http.NewServer(cfg.HTTPAddr, eng, sched, store, logger)
			eng.SetMetrics(httpServer.Metrics())

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			go func() {
				if err := sched.Start(ctx); err != nil && err != context.Canceled {
					logger.Error().Err(err).Msg("scheduler error")
					cancel()
				}
			}()

			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&runHour, "run-hour", cfg.RunHour, "Hour of day (0-23) to ingest the feed")

	return cmd
}
