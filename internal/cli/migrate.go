package cli

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"sciencebindu-backend/internal/config"
	"sciencebindu-backend/internal/database"
)

// NewMigrateCmd applies the bundled schema migrations and exits.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), config.Load())
		},
	}
}

func runMigrations(ctx context.Context, cfg *config.Config) error {
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, database.Migrations()); err != nil {
		return err
	}
	log.Println("✓ Database migrations applied")
	return nil
}
