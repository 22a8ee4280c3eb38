package main

import (
	"fmt"

	"factgraph/internal/facts"
	"factgraph/internal/version"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		schema := facts.DefaultSchema
		if cfg, err := loadConfig(); err == nil {
			schema = facts.Schema{Name: cfg.Schema.Name, Version: cfg.Schema.Version}
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.Full(schema.String()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
