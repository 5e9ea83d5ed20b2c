// Package cmd provides the CLI commands for the fileguardcore engine
// process.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fxtack/fileguardcore/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fileguardcore",
	Short: "fileguardcore - host-resident file-access policy engine",
	Long: `fileguardcore intercepts file-system operations and permits, denies,
makes read-only, or audits them according to admin-supplied rules.

Configuration is loaded from fileguardcore.yaml in the current directory,
$HOME/.fileguardcore/, or /etc/fileguardcore/. Environment variables override
config values with the FILEGUARDCORE_ prefix, e.g. FILEGUARDCORE_CONTROL_SOCKET.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./fileguardcore.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
