package cmd

import (
	"fmt"

	"github.com/abefas/GoTodo/config"
	"github.com/abefas/GoTodo/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the todos table in the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.Driver == config.DriverMemory {
			return fmt.Errorf("the %s driver has no schema to migrate", config.DriverMemory)
		}

		db, err := database.InitDB(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		return database.Migrate(cmd.Context(), db, cfg.Database.Driver, logger)
	},
}
