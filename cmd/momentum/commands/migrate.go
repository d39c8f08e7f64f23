package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/momentum/internal/store"
	"github.com/wonny/momentum/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded PostgreSQL schema",
	Long: `Creates the momentum schema (securities, scores, prices).
Every statement is idempotent; re-running is safe.

Example:
  DATABASE_URL=postgres://... go run ./cmd/momentum migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := store.Migrate(ctx, db)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	for _, name := range applied {
		PrintSuccess(fmt.Sprintf("Applied %s", name))
	}
	return nil
}
