package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wolfizen/ddnswolf/daemon"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "remove the systemd service and the installed binary",
	Run: func(cmd *cobra.Command, args []string) {
		daemon.RmService()
		daemon.Uninstall()
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
