package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wichananm65/users-api/internal/config"
	"github.com/wichananm65/users-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the users table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if cfg.Database.Driver == config.DriverMemory {
			log.Info("in-memory store needs no migration")
			return nil
		}

		db, err := database.Open(cfg.Database, log)
		if err != nil {
			return err
		}
		defer func() { _ = database.Close(db) }()

		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("migration complete", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
