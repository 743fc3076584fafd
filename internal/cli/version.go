package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/musky-network/muskyd/internal/api"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the muskyd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("muskyd", api.Version)
	},
}
