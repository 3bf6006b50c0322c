package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/remediate"
)

func TestRecorder_ObserveOutcome(t *testing.T) {
	r := NewRecorder()

	r.ObserveOutcome(remediate.AuditEntry{
		Device:   "10.0.0.1",
		Outcome:  remediate.OutcomeConfigured,
		Added:    map[string][]string{"SNMP_RO": {"10.1.1.2", "10.1.1.3"}, "SNMP_RW": {"10.1.1.9"}},
		Duration: 3 * time.Second,
	})
	r.ObserveOutcome(remediate.AuditEntry{Device: "10.0.0.2", Outcome: remediate.OutcomeUnreachable})
	r.ObserveOutcome(remediate.AuditEntry{Device: "10.0.0.3", Outcome: remediate.OutcomeUnreachable})

	assert.Equal(t, 1.0, promtest.ToFloat64(r.Outcomes.WithLabelValues("Configured")))
	assert.Equal(t, 2.0, promtest.ToFloat64(r.Outcomes.WithLabelValues("Unreachable")))
	assert.Equal(t, 0.0, promtest.ToFloat64(r.Outcomes.WithLabelValues("AuthFailed")))
	assert.Equal(t, 3.0, promtest.ToFloat64(r.HostsAdded))
	assert.Equal(t, len(remediate.Outcomes), promtest.CollectAndCount(r.Outcomes))
}

func TestRecorder_ObserveResult(t *testing.T) {
	r := NewRecorder()
	r.ObserveResult("field", compliance.Result{Check: compliance.CheckBGP, Status: compliance.StatusWarn})
	r.ObserveResult("field", compliance.Result{Check: compliance.CheckBGP, Status: compliance.StatusWarn})
	r.ObserveResult("cell", compliance.Result{Check: compliance.CheckCellRadio, Status: compliance.StatusOK})

	assert.Equal(t, 2.0, promtest.ToFloat64(r.CheckResults.WithLabelValues("field", "bgp", "warn")))
	assert.Equal(t, 1.0, promtest.ToFloat64(r.CheckResults.WithLabelValues("cell", "cell_radio", "ok")))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveOutcome(remediate.AuditEntry{Outcome: remediate.OutcomeAlreadyCompliant, Duration: time.Second})
	r.Finish()

	path := filepath.Join(t.TempDir(), "edgecheck.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `edgecheck_remediation_outcomes_total{outcome="AlreadyCompliant"} 1`), text)
	assert.Contains(t, text, "edgecheck_remediation_device_seconds_count 1")
	assert.Contains(t, text, "edgecheck_last_run_timestamp_seconds")

	assert.Error(t, r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")))
}
