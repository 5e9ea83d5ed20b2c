package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fxtack/fileguardcore/internal/adapter/inbound/control"
)

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret SECRET",
	Short: "Generate an Argon2id hash for the admin-auth shared secret",
	Long: `Generates the Argon2id PHC-format hash to place in
admin_auth.secret_hash when admin_auth.enabled is true.

Example:
  fileguardctl hash-secret "my-shared-secret"

Security note: the secret will appear in shell history. Consider
clearing history after use, or piping it in via an environment
variable instead of a literal argument.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := control.HashSecret(args[0])
		if err != nil {
			return fmt.Errorf("hash secret: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashSecretCmd)
}
