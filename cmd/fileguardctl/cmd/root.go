// Package cmd provides the CLI commands for the fileguardctl admin
// tool.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	controlSocket string
	monitorSocket string
	secret        string
)

var rootCmd = &cobra.Command{
	Use:   "fileguardctl",
	Short: "fileguardctl - admin CLI for the fileguardcore engine",
	Long: `fileguardctl manages a running fileguardcore engine over its control
and monitor Unix domain sockets: add/remove/query rules, set lifecycle
flags, check which rule a path would match, and stream live or
historical audit records.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&controlSocket, "control-socket", "/var/run/fileguardcore/control.sock", "control-channel Unix domain socket path")
	rootCmd.PersistentFlags().StringVar(&monitorSocket, "monitor-socket", "/var/run/fileguardcore/monitor.sock", "monitor-channel Unix domain socket path")
	rootCmd.PersistentFlags().StringVar(&secret, "secret", "", "admin secret for the control-channel handshake (when the engine has admin_auth enabled)")
}
