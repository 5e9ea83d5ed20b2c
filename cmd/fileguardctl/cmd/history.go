package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fxtack/fileguardcore/internal/adapter/outbound/sqlite"
)

var historyCmd = &cobra.Command{
	Use:   "history DB_PATH",
	Short: "Print the most recent delivered records from a history database",
	Long: `Reads directly from the sqlite history database fileguardcore
mirrors delivered monitor records into when history.enabled is set
(see fileguardcore.yaml's history.db_path); it does not go through the
control or monitor channels.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("count")

		store, err := sqlite.Open(args[0])
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer func() { _ = store.Close() }()

		records, err := store.Recent(context.Background(), n)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		for _, rec := range records {
			printRecord(rec)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("count", 100, "maximum number of most-recent records to print")
	rootCmd.AddCommand(historyCmd)
}
