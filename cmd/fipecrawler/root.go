package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for fipecrawler.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fipecrawler",
		Short: "Resumable crawler for FIPE vehicle reference prices",
		Long: `fipecrawler collects vehicle reference prices from the FIPE tables.

Every reference table is walked brand by brand, model by model and year by
year, and each vehicle price is written to the configured outputs (CSV,
XLSX, SQLite, PostgreSQL). Progress is checkpointed so that an interrupted
run resumes where it stopped.

Run 'fipecrawler init' to create a configuration file first.`,
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file (default: ./fipecrawler.yaml or the XDG config directory)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
