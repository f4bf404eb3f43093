package main

import (
	"fmt"

	"okr_planning_bot/internal/infra/config"
	idb "okr_planning_bot/internal/infra/database"
	"okr_planning_bot/internal/infra/logger"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg)
			if cfg.StoreDriver != config.StoreDriverPostgres {
				return fmt.Errorf("migrate needs STORE_DRIVER=%s", config.StoreDriverPostgres)
			}

			db, err := idb.NewPostgresConnection(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := idb.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger.Component("migrate").Info("Migrations applied")
			return nil
		},
	}
}
