package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fxtack/fileguardcore/internal/domain/rule"
	"github.com/fxtack/fileguardcore/pkg/wire"
)

func parseMajor(s string) (rule.MajorAction, error) {
	switch strings.ToLower(s) {
	case "deny", "access-denied":
		return rule.MajorAccessDenied, nil
	case "readonly", "read-only":
		return rule.MajorReadOnly, nil
	default:
		return rule.MajorNone, fmt.Errorf("unknown --action %q (want deny or readonly)", s)
	}
}

func printRules(rules []rule.Rule) {
	if len(rules) == 0 {
		fmt.Println("(no rules)")
		return
	}
	for _, r := range rules {
		fmt.Printf("%-14s %-10s %s\n", r.Major, r.Minor, r.Pattern)
	}
}

var addCmd = &cobra.Command{
	Use:   "add PATTERN",
	Short: "Add a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actionFlag, _ := cmd.Flags().GetString("action")
		monitorFlag, _ := cmd.Flags().GetBool("monitor")

		major, err := parseMajor(actionFlag)
		if err != nil {
			return err
		}
		minor := rule.MinorNone
		if monitorFlag {
			minor = rule.MinorMonitored
		}

		r := rule.Rule{Major: major, Minor: minor, Pattern: args[0]}

		c, err := dialControl(controlSocket, secret)
		if err != nil {
			return err
		}
		defer c.Close()

		payload, err := c.call(wire.AddRules, wire.EncodeRules([]rule.Rule{r}))
		if err != nil {
			return err
		}
		added, err := wire.DecodeRemovedCount(payload)
		if err != nil {
			return err
		}
		fmt.Printf("added %d rule(s)\n", added)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove PATTERN",
	Short: "Remove a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actionFlag, _ := cmd.Flags().GetString("action")
		monitorFlag, _ := cmd.Flags().GetBool("monitor")

		major, err := parseMajor(actionFlag)
		if err != nil {
			return err
		}
		minor := rule.MinorNone
		if monitorFlag {
			minor = rule.MinorMonitored
		}

		r := rule.Rule{Major: major, Minor: minor, Pattern: args[0]}

		c, err := dialControl(controlSocket, secret)
		if err != nil {
			return err
		}
		defer c.Close()

		payload, err := c.call(wire.RemoveRules, wire.EncodeRules([]rule.Rule{r}))
		if err != nil {
			return err
		}
		removed, err := wire.DecodeRemovedCount(payload)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d rule(s)\n", removed)
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List all rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialControl(controlSocket, secret)
		if err != nil {
			return err
		}
		defer c.Close()

		payload, err := c.call(wire.QueryRules, nil)
		if err != nil {
			return err
		}
		rules, err := wire.DecodeRules(payload)
		if err != nil {
			return err
		}
		printRules(rules)
		return nil
	},
}

var checkMatchedCmd = &cobra.Command{
	Use:   "check-matched PATH",
	Short: "Show which rules would match a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialControl(controlSocket, secret)
		if err != nil {
			return err
		}
		defer c.Close()

		payload, err := c.call(wire.CheckMatchedRule, wire.EncodePath(args[0]))
		if err != nil {
			return err
		}
		rules, err := wire.DecodeRules(payload)
		if err != nil {
			return err
		}
		printRules(rules)
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove all rules",
	Long:  `Empties the engine's rule store and prints how many rules were removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialControl(controlSocket, secret)
		if err != nil {
			return err
		}
		defer c.Close()

		payload, err := c.call(wire.CleanupRules, nil)
		if err != nil {
			return err
		}
		removed, err := wire.DecodeRemovedCount(payload)
		if err != nil {
			return err
		}
		fmt.Printf("cleaned up %d rule(s)\n", removed)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{addCmd, removeCmd} {
		c.Flags().String("action", "deny", "major action: deny or readonly")
		c.Flags().Bool("monitor", false, "also set the monitored minor action")
	}
	rootCmd.AddCommand(addCmd, removeCmd, queryCmd, checkMatchedCmd, cleanupCmd)
}
