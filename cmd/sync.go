package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wolfizen/ddnswolf/daemon"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:          "sync",
	Short:        "reconcile every record once and exit",
	Long:         `reconcile every record once and exit. exits non-zero if any record failed, for use from cron or scripts.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return daemon.SyncOnce()
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
