package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fxtack/fileguardcore/pkg/wire"
)

var unloadCmd = &cobra.Command{
	Use:   "unload",
	Short: "Mark the engine as acceptable to unload",
	Long: `Sets the engine's acceptUnload flag. The engine stores the flag; its
shutdown on a stop signal does not consult it, so a stop signal tears
down filtering whatever the flag's value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		accept, _ := cmd.Flags().GetBool("accept")
		c, err := dialControl(controlSocket, secret)
		if err != nil {
			return err
		}
		defer c.Close()

		if _, err := c.call(wire.SetUnloadAcceptable, wire.EncodeBool(accept)); err != nil {
			return err
		}
		fmt.Printf("acceptUnload set to %v\n", accept)
		return nil
	},
}

var detachCmd = &cobra.Command{
	Use:   "detach",
	Short: "Mark a single volume as acceptable to detach",
	Long: `Sets the engine's acceptDetach flag. The engine stores the flag;
nothing in the engine reads it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		accept, _ := cmd.Flags().GetBool("accept")
		c, err := dialControl(controlSocket, secret)
		if err != nil {
			return err
		}
		defer c.Close()

		if _, err := c.call(wire.SetDetachAcceptable, wire.EncodeBool(accept)); err != nil {
			return err
		}
		fmt.Printf("acceptDetach set to %v\n", accept)
		return nil
	},
}

func init() {
	unloadCmd.Flags().Bool("accept", true, "value to set acceptUnload to (pass --accept=false to revoke)")
	detachCmd.Flags().Bool("accept", true, "value to set acceptDetach to (pass --accept=false to revoke)")
	rootCmd.AddCommand(unloadCmd, detachCmd)
}
