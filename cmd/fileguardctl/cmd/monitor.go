package cmd

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	recordcel "github.com/fxtack/fileguardcore/internal/adapter/outbound/cel"
	"github.com/fxtack/fileguardcore/internal/domain/monitor"
	"github.com/fxtack/fileguardcore/pkg/wire"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Attach to the monitor channel and print records as they arrive",
	Long: `Connects to the monitor socket as the single admin consumer and
prints each delivered record. An optional CEL --filter expression
(record fields op, set_info_kind, path, rename_path, matched_pattern,
pid, tid, volume_serial, status, captured_at, plus glob(pattern, name))
narrows what is printed without affecting what the engine delivers.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().String("filter", "", "CEL expression over record fields, e.g. op == \"write\" && glob(\"*.secret\", path)")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	filterExpr, _ := cmd.Flags().GetString("filter")

	if filterExpr != "" {
		eval, err := recordcel.NewEvaluator()
		if err != nil {
			return fmt.Errorf("build filter evaluator: %w", err)
		}
		if err := eval.ValidateExpression(filterExpr); err != nil {
			return fmt.Errorf("invalid --filter: %w", err)
		}
		prg, err := eval.Compile(filterExpr)
		if err != nil {
			return err
		}
		return streamRecords(monitorSocket, func(rec monitor.Record) error {
			ok, err := eval.Evaluate(prg, rec)
			if err != nil {
				return err
			}
			if ok {
				printRecord(rec)
			}
			return nil
		})
	}

	return streamRecords(monitorSocket, func(rec monitor.Record) error {
		printRecord(rec)
		return nil
	})
}

func printRecord(rec monitor.Record) {
	fmt.Printf("%s  %-16s pid=%-8d %s",
		rec.CapturedAt.Format(time.RFC3339Nano), rec.Op, rec.RequestorPID, rec.OriginalPath)
	if rec.RenameTargetPath != "" {
		fmt.Printf(" -> %s", rec.RenameTargetPath)
	}
	if rec.MatchedPattern != "" {
		fmt.Printf("  [%s]", rec.MatchedPattern)
	}
	fmt.Println()
}

// streamRecords dials the monitor socket and decodes consecutive
// wire.DecodeRecord records from the unframed byte stream until the
// connection closes or the handler returns an error.
func streamRecords(socketPath string, handle func(monitor.Record) error) error {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return fmt.Errorf("dial monitor socket %s: %w", socketPath, err)
	}
	defer conn.Close()

	buf := make([]byte, 0, 64*1024)
	read := make([]byte, 64*1024)

	for {
		n, err := conn.Read(read)
		if n > 0 {
			buf = append(buf, read[:n]...)
			for {
				rec, consumed, decErr := wire.DecodeRecord(buf)
				if decErr != nil {
					break
				}
				buf = buf[consumed:]
				if handleErr := handle(rec); handleErr != nil {
					return handleErr
				}
			}
		}
		if err != nil {
			return nil
		}
	}
}
