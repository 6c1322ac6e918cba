package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the destination schema to the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		ctx := cmd.Context()
		backend, err := store.Open(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "migrate: open store")
		}
		defer backend.Close() //nolint:errcheck

		if err := backend.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate: apply schema")
		}

		zap.L().Info("schema applied",
			zap.String("driver", cfg.Store.Driver),
			zap.Strings("tables", store.Tables()),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
