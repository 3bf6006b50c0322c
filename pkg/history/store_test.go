package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/profile"
	"github.com/edgecheck-network/edgecheck/pkg/report"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func section(addr string, overall compliance.Status, results ...compliance.Result) report.Section {
	return report.Section{
		Address:  addr,
		Hostname: "rtr-" + addr,
		Variant:  profile.VariantField,
		Overall:  overall,
		Results:  results,
	}
}

func TestStore_SaveAndList(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	t0 := time.Unix(1_700_000_000, 0)

	require.NoError(t, s.SaveReport(ctx, "run-a", t0, []report.Section{
		section("10.0.0.1", compliance.StatusOK),
		section("10.0.0.2", compliance.StatusWarn),
	}))
	require.NoError(t, s.SaveReport(ctx, "run-b", t0.Add(time.Hour), []report.Section{
		section("10.0.0.1", compliance.StatusUnknown),
	}))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID, "newest first")
	assert.Equal(t, Run{ID: "run-a", Time: t0, Devices: 2, OK: 1, Warn: 1}, runs[1])
	assert.Equal(t, 1, runs[0].Unknown)

	runs, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_DuplicateRunRejected(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.SaveReport(ctx, "run-a", time.Now(), nil))
	assert.Error(t, s.SaveReport(ctx, "run-a", time.Now(), []report.Section{section("10.0.0.1", compliance.StatusOK)}))

	// The failed transaction left nothing behind.
	hist, err := s.DeviceHistory(ctx, "10.0.0.1", 0)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestStore_DeviceHistoryAndResults(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	t0 := time.Unix(1_700_000_000, 0)

	results := []compliance.Result{
		{Check: compliance.CheckDeviceInfo, Status: compliance.StatusOK, Message: "Router rtr has been up for 1 day."},
		{Check: compliance.CheckBGP, Status: compliance.StatusWarn, Message: "BGP neighbor 10.9.9.9 has been down for 2d."},
		{Check: compliance.CheckBFD, Status: compliance.StatusUnknown, Message: "BFD is not configured."},
	}
	require.NoError(t, s.SaveReport(ctx, "run-a", t0, []report.Section{section("10.0.0.1", compliance.StatusWarn, results...)}))
	require.NoError(t, s.SaveReport(ctx, "run-b", t0.Add(time.Hour), []report.Section{section("10.0.0.1", compliance.StatusOK)}))

	hist, err := s.DeviceHistory(ctx, "10.0.0.1", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "run-b", hist[0].RunID)
	assert.Equal(t, compliance.StatusWarn, hist[1].Overall)
	assert.Equal(t, "rtr-10.0.0.1", hist[1].Hostname)
	assert.Equal(t, "field", hist[1].Variant)

	got, err := s.Results(ctx, "run-a", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, results, got)
}
