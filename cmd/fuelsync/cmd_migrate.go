package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrolwatch/fuelsync/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  "Creates the reference, station, availability, and price tables if they do not exist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if cfg.PostgresDSN == "" {
				return fmt.Errorf("--postgres-dsn is required")
			}

			ctx := context.Background()

			store, err := database.New(ctx, cfg.PostgresDSN, logger)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrating: %w", err)
			}

			logger.Info().Msg("migration completed")
			return nil
		},
	}
}
