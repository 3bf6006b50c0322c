package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"

	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/remediate"
	"github.com/edgecheck-network/edgecheck/pkg/report"
	"github.com/edgecheck-network/edgecheck/pkg/session"
	"github.com/edgecheck-network/edgecheck/pkg/settings"
)

func TestReadAddresses(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "routers.txt")
	data := "# site 12\n10.0.0.3\n\n  10.0.0.1  # duplicate of an argument\n10.0.0.4\n"
	if err := os.WriteFile(file, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := readAddresses([]string{"10.0.0.1,10.0.0.2", "10.0.0.2"}, file)
	if err != nil {
		t.Fatalf("readAddresses() error: %v", err)
	}
	want := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("readAddresses() = %v, want %v", got, want)
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := readAddresses(nil, filepath.Join(dir, "none.txt")); err == nil {
			t.Error("readAddresses() of a missing file should fail")
		}
	})

	t.Run("nothing given", func(t *testing.T) {
		got, err := readAddresses(nil, "")
		if err != nil || len(got) != 0 {
			t.Errorf("readAddresses(nil) = %v, %v", got, err)
		}
	})
}

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		input   string
		want    remediate.Outcome
		wantErr bool
	}{
		{"Configured", remediate.OutcomeConfigured, false},
		{"partialfailure", remediate.OutcomePartialFailure, false},
		{"UNREACHABLE", remediate.OutcomeUnreachable, false},
		{"failed", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseOutcome(tt.input)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("parseOutcome(%q) = %q, %v", tt.input, got, err)
			}
		})
	}
}

func TestIsSettingsOrHelp(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		want bool
	}{
		{settingsSetCmd, true},
		{versionCmd, true},
		{checkCmd, false},
		{ledgerListCmd, false},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			if got := isSettingsOrHelp(tt.cmd); got != tt.want {
				t.Errorf("isSettingsOrHelp(%s) = %v, want %v", tt.cmd.Name(), got, tt.want)
			}
		})
	}
}

func TestCredentials_FromEnvironment(t *testing.T) {
	t.Setenv(passwordEnv, "s3cret")
	userSettings = &settings.Settings{Username: "netops"}
	username = ""

	got, err := credentials()
	if err != nil {
		t.Fatalf("credentials() error: %v", err)
	}
	want := session.Credentials{Username: "netops", Password: "s3cret"}
	if got != want {
		t.Errorf("credentials() = %v, want %v", got, want)
	}

	username = "alice"
	defer func() { username = "" }()
	if got, _ := credentials(); got.Username != "alice" {
		t.Errorf("--user should win over settings, got %q", got.Username)
	}
}

func TestTallyStatuses(t *testing.T) {
	ok := compliance.Result{Check: compliance.CheckDNS, Status: compliance.StatusOK}
	warn := compliance.Result{Check: compliance.CheckVRRP, Status: compliance.StatusWarn}
	unknown := compliance.Result{Check: compliance.CheckBGP, Status: compliance.StatusUnknown}
	sections := []report.Section{
		{Address: "10.0.0.1", Overall: compliance.StatusWarn, Results: []compliance.Result{ok, warn, unknown}},
		{Address: "10.0.0.2", Overall: compliance.StatusOK, Results: []compliance.Result{ok, ok}},
		{Address: "10.0.0.3", Overall: compliance.StatusUnknown, Results: []compliance.Result{unknown}},
	}

	devices, checks := tallyStatuses(sections)
	wantDevices := map[compliance.Status]int{compliance.StatusOK: 1, compliance.StatusWarn: 1, compliance.StatusUnknown: 1}
	wantChecks := map[compliance.Status]int{compliance.StatusOK: 3, compliance.StatusWarn: 1, compliance.StatusUnknown: 2}
	if !reflect.DeepEqual(devices, wantDevices) {
		t.Errorf("devices = %v, want %v", devices, wantDevices)
	}
	if !reflect.DeepEqual(checks, wantChecks) {
		t.Errorf("checks = %v, want %v", checks, wantChecks)
	}
}
