package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wolfizen/ddnswolf/daemon"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "install ddnswolf to /usr/sbin and register the systemd service",
	Run: func(cmd *cobra.Command, args []string) {
		daemon.Install()
		daemon.AddService()
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
