package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/edgecheck-network/edgecheck/pkg/cli"
	"github.com/edgecheck-network/edgecheck/pkg/collect"
	"github.com/edgecheck-network/edgecheck/pkg/facts/ios"
	"github.com/edgecheck-network/edgecheck/pkg/ledger"
	"github.com/edgecheck-network/edgecheck/pkg/metrics"
	"github.com/edgecheck-network/edgecheck/pkg/remediate"
	"github.com/edgecheck-network/edgecheck/pkg/session"
	"github.com/edgecheck-network/edgecheck/pkg/util"
	"github.com/edgecheck-network/edgecheck/pkg/walk"
)

var (
	remediateFile        string
	remediateWorkers     int
	remediateRedis       string
	remediateRunID       string
	remediateNoVerify    bool
	remediateMetricsFile string
)

var remediateCmd = &cobra.Command{
	Use:   "remediate <seed>...",
	Short: "Push missing SNMP ACL hosts across the seeds' CDP neighborhood",
	Long: `Walk outward from the seed routers over CDP and add the SNMP ACL hosts
each router is missing. Routers already carrying every required host are
left untouched.

Every visited router gets one ledger row (Configured, AlreadyCompliant,
AuthFailed, Unreachable or PartialFailure) in the CSV ledger and the journal.

Several processes can split one neighborhood by sharing a Redis visited set:
start each with the same --redis address and --run-id.

Examples:
  edgecheck remediate 10.0.0.1
  edgecheck remediate -f seeds.txt --workers 8
  edgecheck remediate 10.0.0.1 --redis 127.0.0.1:6379 --run-id site12-rollout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		seeds, err := readAddresses(args, remediateFile)
		if err != nil {
			return err
		}
		if len(seeds) == 0 {
			return fmt.Errorf("no seed devices: give addresses as arguments or with -f <file>")
		}
		if len(cfg.Policy.SNMPACLs) == 0 {
			return fmt.Errorf("the policy requires no SNMP ACL hosts; nothing to remediate")
		}
		creds, err := credentials()
		if err != nil {
			return err
		}

		runID := remediateRunID
		if runID == "" {
			runID = uuid.NewString()
		}
		workers := remediateWorkers
		if workers == 0 {
			workers = cfg.Workers
		}

		csvLedger, err := ledger.NewCSVLedger(userSettings.GetLedgerPath())
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		journal, err := ledger.OpenJournal(userSettings.GetJournalPath(), runID, creds.Username, ledger.RotationConfig{
			MaxSize:    cfg.Journal.MaxSize,
			MaxBackups: cfg.Journal.MaxBackups,
		})
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer journal.Close()

		engine := remediate.NewEngine(cfg.Policy.SNMPACLs, collect.NewCollector(ios.NewParser(), nil))
		engine.Verify = cfg.VerifyEnabled() && !remediateNoVerify

		rec := metrics.NewRecorder()
		proc := &remediate.Processor{
			Dialer:      session.NewSSHDialer(cfg.SessionOptions()),
			Credentials: creds,
			Engine:      engine,
			Recorder:    ledger.Multi{csvLedger, journal},
			Observer:    &progress{metrics: rec},
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		walker := walk.New(proc.Visit, workers, runID)
		if addr := redisAddr(); addr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer client.Close()
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("connecting to redis %s: %w", addr, err)
			}
			set := walk.NewRedisSet(client, runID, cfg.Redis.TTL)
			walker.Visited = set
			util.WithRun(runID).Infof("sharing visited set %s", set.Key())
		}

		fmt.Printf("Run %s: walking from %d seed(s), ledger %s\n\n", runID, len(seeds), csvLedger.Path())
		stats, walkErr := walker.Run(ctx, seeds)

		events, err := journal.Query(ledger.Filter{RunID: runID})
		if err != nil {
			util.Warnf("reading run summary: %v", err)
		}
		printRemediateSummary(stats, events)

		if remediateMetricsFile != "" {
			rec.Finish()
			if err := rec.WriteTextfile(remediateMetricsFile); err != nil {
				return err
			}
		}
		if walkErr != nil {
			return fmt.Errorf("walk stopped: %w", walkErr)
		}
		return nil
	},
}

func init() {
	remediateCmd.Flags().StringVarP(&remediateFile, "file", "f", "", "File of seed addresses, one per line")
	remediateCmd.Flags().IntVarP(&remediateWorkers, "workers", "w", 0, "Concurrent device sessions (default from config)")
	remediateCmd.Flags().StringVar(&remediateRedis, "redis", "", "Redis address of a shared visited set (default from config)")
	remediateCmd.Flags().StringVar(&remediateRunID, "run-id", "", "Run ID; processes sharing a Redis visited set must use the same one")
	remediateCmd.Flags().BoolVar(&remediateNoVerify, "no-verify", false, "Do not re-read ACLs after a push")
	remediateCmd.Flags().StringVar(&remediateMetricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format")
}

func redisAddr() string {
	if remediateRedis != "" {
		return remediateRedis
	}
	return cfg.Redis.Addr
}

// progress prints one line per finished device and feeds the metrics.
type progress struct {
	metrics *metrics.Recorder
	mu      sync.Mutex
}

func (p *progress) ObserveOutcome(entry remediate.AuditEntry) {
	p.metrics.ObserveOutcome(entry)

	p.mu.Lock()
	defer p.mu.Unlock()
	line := fmt.Sprintf("%s %s", cli.DotPad(entry.Device, 24), cli.Status(entry.Status()))
	if n := entry.AddedCount(); n > 0 {
		line += fmt.Sprintf(" (+%d hosts)", n)
	}
	fmt.Println(line)
}

func printRemediateSummary(stats walk.Stats, events []*ledger.Event) {
	counts := make(map[remediate.Outcome]int)
	for _, e := range events {
		counts[e.Outcome]++
	}

	fmt.Printf("\n%s\n\n", cli.Bold(fmt.Sprintf("%d devices in %d levels", stats.Visited, stats.Levels)))
	t := cli.NewTable("OUTCOME", "DEVICES").WithPrefix("  ")
	for _, o := range remediate.Outcomes {
		if counts[o] > 0 {
			t.Row(cli.Status(string(o)), fmt.Sprint(counts[o]))
		}
	}
	t.Flush()
}
