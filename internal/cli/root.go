// Package cli implements the muskyd command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "muskyd",
	Short: "Musky reward economy daemon",
	Long: `muskyd runs the Musky reward economy: a multi-currency ledger with
regenerating tap energy and spin stamina, GPU mining accrual, the prize
wheel, and fixed-term staking, exposed over a JSON REST API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ~/.muskyd/config.toml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
