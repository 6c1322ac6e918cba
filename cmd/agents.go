package main

import (
	"github.com/spf13/cobra"

	"github.com/bertel/migration-tool/internal/agent"
	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/store"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Print the agent roster as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := agent.NewRegistry(agent.Deps{
			Backend: store.NewDisabled("roster only"),
			Service: classify.NewRuleBased(),
		})
		return printJSON(cmd.OutOrStdout(), registry.Descriptors())
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}
