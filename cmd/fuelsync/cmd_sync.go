package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrolwatch/fuelsync/internal/database"
	"github.com/petrolwatch/fuelsync/internal/engine"
	"github.com/petrolwatch/fuelsync/internal/feed"
	"github.com/petrolwatch/fuelsync/internal/refdata"
)

func syncCmd() *cobra.Command {
	var dateStr string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a one-time feed cycle",
		Long:  "Runs a one-time ingestion for today or a specific feed date. With --dry-run the reconciliation plan is computed but not persisted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if cfg.PostgresDSN == "" {
				return fmt.Errorf("--postgres-dsn is required")
			}

			asOf := time.Now()
			if dateStr != "" {
				var err error
				asOf, err = time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("parsing --date: %w", err)
				}
			}

			ctx := context.Background()

			store, err := database.New(ctx, cfg.PostgresDSN, logger)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer store.Close()

			client := feed.NewClient(cfg.FeedBaseURL, logger)
			refProvider := refdata.NewProvider(store, cfg.RefdataTTL, logger)
			eng := engine.New(client, store, refProvider, cfg.ParseWorkers, logger)

			report, err := eng.Run(ctx, asOf, dryRun)
			if err != nil {
				return fmt.Errorf("running cycle: %w", err)
			}

			for _, failure := range report.Failures {
				logger.Warn().
					Str("station", failure.StationCode).
					Str("field", failure.Field).
					Str("kind", string(failure.Kind)).
					Msg(failure.Reason)
			}

			logger.Info().Msg("sync completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "Feed date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the plan without writing")

	return cmd
}
