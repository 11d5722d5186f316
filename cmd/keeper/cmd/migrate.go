package cmd

import (
	"fmt"

	"keeper/internal/config"
	"keeper/internal/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		printHeader("Keeper migrations")
		fmt.Printf("Driver: %s\n", cfg.Database.Driver)

		store, err := storage.New(cfg.Database.Driver, cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer store.Close()

		applied, err := store.Migrate()
		if err != nil {
			fmt.Println(color.RedString("✗ migrations failed: %v", err))
			return err
		}
		fmt.Println(color.GreenString("✓ %d migration(s) applied", applied))
		return nil
	},
}
