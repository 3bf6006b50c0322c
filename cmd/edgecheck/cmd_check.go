package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/edgecheck-network/edgecheck/pkg/cli"
	"github.com/edgecheck-network/edgecheck/pkg/collect"
	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/facts"
	"github.com/edgecheck-network/edgecheck/pkg/facts/ios"
	"github.com/edgecheck-network/edgecheck/pkg/history"
	"github.com/edgecheck-network/edgecheck/pkg/metrics"
	"github.com/edgecheck-network/edgecheck/pkg/profile"
	"github.com/edgecheck-network/edgecheck/pkg/report"
	"github.com/edgecheck-network/edgecheck/pkg/session"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

var (
	checkVariant     string
	checkFile        string
	checkFacts       []string
	checkSaveFacts   string
	checkOutput      string
	checkMetricsFile string
	checkHistory     bool
	checkWorkers     int
)

var checkCmd = &cobra.Command{
	Use:   "check [address...]",
	Short: "Audit routers and print the compliance report",
	Long: `Audit routers against the policy and print one report section per device.

Every check ends OK, WARN or UNKNOWN. A device that cannot be reached, or
whose output cannot be read, is reported with UNKNOWN checks rather than
stopping the run.

Examples:
  edgecheck check 10.0.0.1 10.0.0.2
  edgecheck check -f routers.txt --variant field -o report.txt
  edgecheck check 10.0.0.1 --save-facts snapshots/
  edgecheck check --facts snapshots/10.0.0.1.yaml --variant field
  edgecheck check -f routers.txt --history --metrics-file /var/lib/node_exporter/edgecheck.prom`,
	RunE: func(cmd *cobra.Command, args []string) error {
		variant, err := profile.ParseVariant(checkVariant)
		if err != nil {
			return err
		}
		workers := checkWorkers
		if workers == 0 {
			workers = cfg.Workers
		}

		rec := metrics.NewRecorder()
		auditor := &report.Auditor{
			Catalogue:    compliance.NewCatalogue(cfg.Policy),
			Capabilities: cfg.Capabilities(),
			Sites:        cfg.Sites,
			Observer:     rec,
		}

		var sections []report.Section
		if len(checkFacts) > 0 {
			if len(args) > 0 || checkFile != "" {
				return fmt.Errorf("--facts evaluates snapshots and cannot be combined with device addresses")
			}
			for _, path := range checkFacts {
				f, err := facts.LoadSnapshot(path)
				if err != nil {
					return err
				}
				sections = append(sections, auditor.Evaluate(f, variant))
			}
		} else {
			addrs, err := readAddresses(args, checkFile)
			if err != nil {
				return err
			}
			if len(addrs) == 0 {
				return fmt.Errorf("no devices: give addresses as arguments or with -f <file>")
			}
			creds, err := credentials()
			if err != nil {
				return err
			}

			var resolver collect.Resolver
			if r, err := collect.NewDNSResolver(cfg.DNSServers, cfg.DNSTimeout); err != nil {
				util.Warnf("DNS registration will be UNKNOWN: %v", err)
			} else {
				resolver = r
			}
			auditor.Dialer = session.NewSSHDialer(cfg.SessionOptions())
			auditor.Credentials = creds
			auditor.Collector = collect.NewCollector(ios.NewParser(), resolver)
			if checkSaveFacts != "" {
				if err := os.MkdirAll(checkSaveFacts, 0755); err != nil {
					return fmt.Errorf("creating snapshot directory: %w", err)
				}
				auditor.Collected = saveSnapshot
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			sections = auditor.AuditAll(ctx, addrs, variant, workers)
		}

		if err := writeReport(sections); err != nil {
			return err
		}
		printCheckSummary(sections)

		if checkHistory {
			if err := saveHistory(sections); err != nil {
				return err
			}
		}
		if checkMetricsFile != "" {
			rec.Finish()
			if err := rec.WriteTextfile(checkMetricsFile); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkVariant, "variant", string(profile.VariantGeneric), "Router variant: generic, field or cell")
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "File of device addresses, one per line")
	checkCmd.Flags().StringSliceVar(&checkFacts, "facts", nil, "Evaluate YAML fact snapshots instead of contacting devices")
	checkCmd.Flags().StringVar(&checkSaveFacts, "save-facts", "", "Directory to save each device's collected facts in")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Write the report to a file instead of stdout")
	checkCmd.Flags().StringVar(&checkMetricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format")
	checkCmd.Flags().BoolVar(&checkHistory, "history", false, "Save the results to the history database")
	checkCmd.Flags().IntVarP(&checkWorkers, "workers", "w", 0, "Concurrent device sessions (default from config)")
	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "Write the report as JSON")
}

// saveSnapshot writes the facts of one device next to the others.
func saveSnapshot(f *facts.Facts) {
	path := filepath.Join(checkSaveFacts, f.Address+".yaml")
	if err := f.SaveSnapshot(path); err != nil {
		util.WithDevice(f.Address).Warnf("saving fact snapshot: %v", err)
		return
	}
	util.WithDevice(f.Address).Debugf("saved %s with %v", path, f.CollectedKinds())
}

func writeReport(sections []report.Section) error {
	var out io.Writer = os.Stdout
	if checkOutput != "" {
		f, err := os.Create(checkOutput)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sections)
	}
	if err := report.Render(out, sections); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// printCheckSummary prints the device and check tallies to stderr, so they
// stay out of a redirected report.
func printCheckSummary(sections []report.Section) {
	devices, checks := tallyStatuses(sections)
	fmt.Fprintf(os.Stderr, "%s %s %d, %s %d, %s %d\n", cli.Bold(fmt.Sprintf("%d devices:", len(sections))),
		cli.Status("OK"), devices[compliance.StatusOK],
		cli.Status("WARN"), devices[compliance.StatusWarn],
		cli.Status("UNKNOWN"), devices[compliance.StatusUnknown])
	fmt.Fprintf(os.Stderr, "%s %s %d, %s %d, %s %d\n", cli.Bold("checks: "),
		cli.Status("OK"), checks[compliance.StatusOK],
		cli.Status("WARN"), checks[compliance.StatusWarn],
		cli.Status("UNKNOWN"), checks[compliance.StatusUnknown])
}

// tallyStatuses counts devices by overall status and checks by result status.
func tallyStatuses(sections []report.Section) (devices, checks map[compliance.Status]int) {
	devices = make(map[compliance.Status]int)
	checks = make(map[compliance.Status]int)
	for _, s := range sections {
		devices[s.Overall]++
		for status, n := range s.Counts() {
			checks[status] += n
		}
	}
	return devices, checks
}

func saveHistory(sections []report.Section) error {
	store, err := history.Open(userSettings.GetHistoryDB())
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	runID := uuid.NewString()
	if err := store.SaveReport(context.Background(), runID, time.Now(), sections); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	util.WithRun(runID).Infof("saved %d devices to history", len(sections))
	return nil
}
