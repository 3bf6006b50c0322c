package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgecheck-network/edgecheck/pkg/cli"
	"github.com/edgecheck-network/edgecheck/pkg/ledger"
	"github.com/edgecheck-network/edgecheck/pkg/remediate"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "View remediation outcomes",
	Long: `View the outcomes recorded by remediation runs.

"ledger list" reads the journal, which carries the run, operator, reason and
pushed hosts of every device. "ledger csv" prints the CSV ledger as written.

Examples:
  edgecheck ledger list --device 10.0.0.1
  edgecheck ledger list --status PartialFailure --last 24h
  edgecheck ledger list --run 3f2b9c4e-... --json
  edgecheck ledger csv`,
}

var (
	ledgerDevice string
	ledgerStatus string
	ledgerRun    string
	ledgerLast   string
	ledgerLimit  int
)

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal events",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ledger.Filter{
			Device: ledgerDevice,
			RunID:  ledgerRun,
			Last:   ledgerLimit,
		}
		if ledgerStatus != "" {
			outcome, err := parseOutcome(ledgerStatus)
			if err != nil {
				return err
			}
			filter.Outcome = outcome
		}
		if ledgerLast != "" {
			d, err := time.ParseDuration(ledgerLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", ledgerLast)
			}
			filter.Since = time.Now().Add(-d)
		}

		events, err := ledger.QueryFile(userSettings.GetJournalPath(), filter)
		if err != nil {
			return fmt.Errorf("querying journal: %w", err)
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(events)
		}
		if len(events) == 0 {
			fmt.Println("No journal events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "DEVICE", "STATUS", "ADDED", "REASON").WithMaxWidth(5, 60)
		for _, e := range events {
			entry := e.Entry()
			t.Row(
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.User,
				e.Device,
				cli.Status(string(e.Outcome)),
				fmt.Sprint(entry.AddedCount()),
				e.Reason,
			)
		}
		t.Flush()
		return nil
	},
}

var ledgerCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Print the CSV ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := userSettings.GetLedgerPath()
		rows, err := ledger.ReadCSV(path)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Printf("Ledger %s is empty\n", path)
			return nil
		}

		t := cli.NewTable(ledger.Header...)
		for _, r := range rows {
			t.Row(r.Device, cli.Status(r.Status))
		}
		t.Flush()
		return nil
	},
}

func init() {
	ledgerListCmd.Flags().StringVarP(&ledgerDevice, "device", "d", "", "Only this device")
	ledgerListCmd.Flags().StringVar(&ledgerStatus, "status", "", "Only this outcome (e.g. PartialFailure)")
	ledgerListCmd.Flags().StringVar(&ledgerRun, "run", "", "Only this run ID")
	ledgerListCmd.Flags().StringVar(&ledgerLast, "last", "", "Only events newer than this duration (e.g. 24h)")
	ledgerListCmd.Flags().IntVar(&ledgerLimit, "limit", 0, "Show at most this many of the most recent events")
	ledgerListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerCSVCmd)
}

// parseOutcome matches an outcome name case-insensitively.
func parseOutcome(s string) (remediate.Outcome, error) {
	for _, o := range remediate.Outcomes {
		if strings.EqualFold(s, string(o)) {
			return o, nil
		}
	}
	names := make([]string, len(remediate.Outcomes))
	for i, o := range remediate.Outcomes {
		names[i] = string(o)
	}
	return "", fmt.Errorf("unknown status %q (valid: %s)", s, strings.Join(names, ", "))
}
