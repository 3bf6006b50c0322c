package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgecheck-network/edgecheck/pkg/cli"
	"github.com/edgecheck-network/edgecheck/pkg/history"
	"github.com/edgecheck-network/edgecheck/pkg/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View saved compliance runs",
	Long: `View compliance runs saved with "edgecheck check --history".

Examples:
  edgecheck history list
  edgecheck history device 10.0.0.1
  edgecheck history show <run-id> 10.0.0.1`,
}

var historyLimit int

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			runs, err := store.ListRuns(context.Background(), historyLimit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Println("No runs saved")
				return nil
			}

			t := cli.NewTable("RUN", "TIME", "DEVICES", "OK", "WARN", "UNKNOWN")
			for _, r := range runs {
				t.Row(r.ID, r.Time.Local().Format(report.TimeLayout),
					fmt.Sprint(r.Devices), fmt.Sprint(r.OK), fmt.Sprint(r.Warn), fmt.Sprint(r.Unknown))
			}
			t.Flush()
			return nil
		})
	},
}

var historyDeviceCmd = &cobra.Command{
	Use:   "device <address>",
	Short: "Show a device's overall status across runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			runs, err := store.DeviceHistory(context.Background(), args[0], historyLimit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Printf("No runs include %s\n", args[0])
				return nil
			}

			t := cli.NewTable("RUN", "TIME", "HOSTNAME", "VARIANT", "OVERALL")
			for _, r := range runs {
				t.Row(r.RunID, r.Time.Local().Format(report.TimeLayout), r.Hostname, r.Variant,
					cli.Status(string(r.Overall)))
			}
			t.Flush()
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id> <address>",
	Short: "Show one device's check results from a run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			results, err := store.Results(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(results)
			}
			if len(results) == 0 {
				fmt.Printf("Run %s has no results for %s\n", args[0], args[1])
				return nil
			}

			t := cli.NewTable("CHECK", "STATUS", "MESSAGE").WithMaxWidth(2, 80)
			for _, r := range results {
				t.Row(string(r.Check), cli.Status(string(r.Status)), r.Message)
			}
			t.Flush()
			return nil
		})
	},
}

func init() {
	historyCmd.PersistentFlags().IntVar(&historyLimit, "limit", 20, "Show at most this many runs")
	historyCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDeviceCmd)
	historyCmd.AddCommand(historyShowCmd)
}

func withHistory(fn func(*history.Store) error) error {
	store, err := history.Open(userSettings.GetHistoryDB())
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()
	return fn(store)
}
