package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fxtack/fileguardcore/pkg/wire"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the connected engine's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialControl(controlSocket, secret)
		if err != nil {
			return err
		}
		defer c.Close()

		payload, err := c.call(wire.GetCoreVersion, nil)
		if err != nil {
			return err
		}
		v, err := wire.DecodeCoreVersion(payload)
		if err != nil {
			return err
		}
		fmt.Printf("fileguardcore %d.%d.%d (build %d)\n", v.Major, v.Minor, v.Patch, v.Build)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
