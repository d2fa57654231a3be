package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/bag-trend-collector/internal/config"
	"github.com/JakeFAU/bag-trend-collector/internal/storage/postgres"
)

// runMigrations is swapped in tests.
var runMigrations = postgres.RunMigrations

// newMigrateCmd applies the embedded Postgres schema.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "migrate",
		Short:       "Apply the Postgres schema",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Storage.Backend != config.BackendPostgres {
				return errors.New("migrate requires storage.backend=postgres")
			}
			if err := runMigrations(cfg.Storage.DSN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
