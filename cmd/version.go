package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev"

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ddnswolf",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ddnswolf %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
