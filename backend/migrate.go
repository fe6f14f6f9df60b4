package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"hrmspro/backend/internal/config"
	"hrmspro/backend/internal/database"
	"hrmspro/backend/internal/repositories"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withPool(func(cfg *config.Config, pool *database.DatabasePool) error {
				if pool.Driver() == database.DriverSQLite {
					return pool.AutoMigrate()
				}
				return repositories.RunMigrations(pool.DB, migrationConfig(cfg))
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: withPool(func(cfg *config.Config, pool *database.DatabasePool) error {
				return repositories.RollbackMigration(pool.DB, migrationConfig(cfg))
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			RunE: withPool(func(cfg *config.Config, pool *database.DatabasePool) error {
				version, dirty, err := repositories.GetMigrationVersion(pool.DB, migrationConfig(cfg))
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("no migrations applied")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Printf("version %d (dirty: %v)\n", version, dirty)
				return nil
			}),
		},
	)
	return cmd
}

// withPool opens the configured database without migrating and closes it
// when fn returns.
func withPool(fn func(cfg *config.Config, pool *database.DatabasePool) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Database.Driver == "memory" {
			return errors.New("the memory driver has no schema to migrate")
		}

		_, pool, err := openStore(cfg, false)
		if err != nil {
			return err
		}
		defer func() {
			if err := pool.Close(); err != nil {
				log.Printf("⚠️  Error closing database: %v", err)
			}
		}()
		return fn(cfg, pool)
	}
}
