// Package cmd defines the CLI commands for the catalog-sync executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog-sync",
		Short: "Reconciles the bicycle catalog against downstream stores.",
		Long: `catalog-sync reconciles the bicycle catalog in the relational source of
record against the downstream document store and the classification service.
Each run records which bicycles synchronized successfully so the next run can
resume without redoing completed work.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to the configuration file")
	cmd.AddCommand(newSyncCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
