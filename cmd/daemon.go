package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wolfizen/ddnswolf/daemon"
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "run the updater in the foreground",
	Long: `run the updater in the foreground.
every configured record is reconciled on an interval, on config file
changes and on interface address changes, until SIGINT or SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		daemon.Serve()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
