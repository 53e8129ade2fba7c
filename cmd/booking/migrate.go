package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-booking-backend/internal/observability"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := setup(cmd.Context(), observability.ProcessAPI)
		if err != nil {
			return err
		}
		defer rt.close(context.Background())

		if err := repo.AutoMigrate(rt.db); err != nil {
			return err
		}
		log.Info().Str("db_driver", rt.cfg.DBDriver).Msg("schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
