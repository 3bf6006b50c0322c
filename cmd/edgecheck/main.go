// Edgecheck - Edge Router Compliance Audit and ACL Remediation
//
// A CLI tool for auditing Cisco IOS edge routers with:
//   - A per-device compliance report (OK / WARN / UNKNOWN per check)
//   - Offline evaluation of saved fact snapshots
//   - SNMP ACL remediation across a device's CDP neighborhood
//   - A CSV ledger and JSON-lines journal of every remediation outcome
//
// Examples:
//
//	edgecheck check 10.0.0.1 10.0.0.2 --variant field
//	edgecheck check --facts rtr-site12.yaml
//	edgecheck remediate 10.0.0.1 --workers 8
//	edgecheck ledger list --status PartialFailure --last 24h
//	edgecheck history list
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/edgecheck-network/edgecheck/pkg/cli"
	"github.com/edgecheck-network/edgecheck/pkg/config"
	"github.com/edgecheck-network/edgecheck/pkg/session"
	"github.com/edgecheck-network/edgecheck/pkg/settings"
	"github.com/edgecheck-network/edgecheck/pkg/util"
	"github.com/edgecheck-network/edgecheck/pkg/version"
)

// passwordEnv supplies the device password for unattended runs.
const passwordEnv = "EDGECHECK_PASSWORD"

var (
	// Global option flags
	configPath string
	username   string
	verbose    bool
	logJSON    bool
	jsonOutput bool

	// Global state
	userSettings *settings.Settings
	cfg          *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "edgecheck",
	Short:             "Edge router compliance audit and ACL remediation",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Edgecheck audits edge routers against the network policy and repairs
missing SNMP access-list entries across a router's neighborhood.

  edgecheck check <address>... [--variant generic|field|cell]
  edgecheck remediate <seed>... [--workers N]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if logJSON {
			util.SetJSONFormat()
		}
		cli.SetColor(term.IsTerminal(int(os.Stdout.Fd())))

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if isSettingsOrHelp(cmd) {
			return nil
		}

		if configPath == "" {
			configPath = userSettings.ConfigPath
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Policy file (default from settings, else built-in policy)")
	rootCmd.PersistentFlags().StringVarP(&username, "user", "u", "", "Device username (default from settings, else login name)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON lines")

	rootCmd.AddGroup(
		&cobra.Group{ID: "audit", Title: "Audit & Remediation:"},
		&cobra.Group{ID: "records", Title: "Records:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{checkCmd, remediateCmd} {
		cmd.GroupID = "audit"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{ledgerCmd, historyCmd} {
		cmd.GroupID = "records"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("edgecheck dev build (version is set with -ldflags at build time)")
		} else {
			fmt.Printf("edgecheck %s\n", version.Info())
		}
	},
}

// isSettingsOrHelp checks whether cmd (or any ancestor) is a settings, help, or version command.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings":
			return true
		}
	}
	return false
}

// credentials resolves the device login once per run. The password comes
// from the environment or an interactive prompt and is never stored.
func credentials() (session.Credentials, error) {
	creds := session.Credentials{Username: username}
	if creds.Username == "" {
		creds.Username = userSettings.Username
	}
	if creds.Username == "" {
		if u, err := user.Current(); err == nil {
			creds.Username = u.Username
		}
	}
	if creds.Username == "" {
		return creds, fmt.Errorf("username required: use --user or 'edgecheck settings set username <name>'")
	}

	if pw, ok := os.LookupEnv(passwordEnv); ok {
		creds.Password = pw
		return creds, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return creds, fmt.Errorf("no terminal for the password prompt: set %s", passwordEnv)
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", creds.Username)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return creds, fmt.Errorf("reading password: %w", err)
	}
	creds.Password = string(pw)
	return creds, nil
}

// readAddresses merges addresses from args (comma lists allowed) and from
// file, one per line with # comments, dropping duplicates.
func readAddresses(args []string, file string) ([]string, error) {
	var all []string
	for _, a := range args {
		all = append(all, util.SplitCommaSeparated(a)...)
	}
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("reading address file: %w", err)
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if i := strings.IndexByte(line, '#'); i >= 0 {
				line = line[:i]
			}
			if line = strings.TrimSpace(line); line != "" {
				all = append(all, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading address file: %w", err)
		}
	}

	seen := make(map[string]bool, len(all))
	addrs := make([]string, 0, len(all))
	for _, a := range all {
		if !seen[a] {
			seen[a] = true
			addrs = append(addrs, a)
		}
	}
	return addrs, nil
}
