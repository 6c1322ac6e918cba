package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/config"
)

var (
	cfg *config.Config

	logLevel   string
	classifier string
)

var rootCmd = &cobra.Command{
	Use:   "migration-tool",
	Short: "Migrate legacy tourism establishment exports into the destination schema",
	Long: `migration-tool ingests establishment records from legacy tourism
exports (JSON, XML, key/value text, YAML, XLSX, ZIP), normalises them,
routes each field to the agent owning that part of the destination schema,
deduplicates establishments and writes objects, locations, contacts,
amenities, media, providers and schedules.

Configuration is read from ./config.yaml and MIGRATION_* environment
variables. Without a database the pipeline still classifies and reports,
but every write is skipped.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyFlagOverrides(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&classifier, "classifier", "", "override classifier.provider (rule, anthropic, auto)")
}

// applyFlagOverrides lets explicitly set flags win over file and env config.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		c.Log.Level = logLevel
	}
	if f := cmd.Flag("classifier"); f != nil && f.Changed {
		c.Classifier.Provider = classifier
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
