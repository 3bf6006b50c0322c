// Package metrics exposes run counters in the Prometheus text format, for
// node_exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/remediate"
)

// Recorder holds the counters of one run on its own registry.
type Recorder struct {
	Registry *prometheus.Registry

	Outcomes       *prometheus.CounterVec
	HostsAdded     prometheus.Counter
	DeviceDuration prometheus.Histogram
	CheckResults   *prometheus.CounterVec
	LastRun        prometheus.Gauge
}

// NewRecorder creates a recorder with every metric registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgecheck_remediation_outcomes_total",
			Help: "Devices visited by remediation runs, by outcome",
		}, []string{"outcome"}),
		HostsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edgecheck_remediation_hosts_added_total",
			Help: "ACL host entries pushed by remediation runs",
		}),
		DeviceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edgecheck_remediation_device_seconds",
			Help:    "Time spent on one device during remediation",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		CheckResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgecheck_check_results_total",
			Help: "Compliance check results, by variant, check and status",
		}, []string{"variant", "check", "status"}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edgecheck_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
	r.Registry.MustRegister(r.Outcomes, r.HostsAdded, r.DeviceDuration, r.CheckResults, r.LastRun)
	// Every outcome is exported, even at zero.
	for _, o := range remediate.Outcomes {
		r.Outcomes.WithLabelValues(string(o))
	}
	return r
}

// ObserveOutcome counts one remediated device.
func (r *Recorder) ObserveOutcome(entry remediate.AuditEntry) {
	r.Outcomes.WithLabelValues(string(entry.Outcome)).Inc()
	r.HostsAdded.Add(float64(entry.AddedCount()))
	if entry.Duration > 0 {
		r.DeviceDuration.Observe(entry.Duration.Seconds())
	}
}

// ObserveResult counts one evaluated check.
func (r *Recorder) ObserveResult(variant string, result compliance.Result) {
	r.CheckResults.WithLabelValues(variant, string(result.Check), string(result.Status)).Inc()
}

// Finish stamps the run completion time.
func (r *Recorder) Finish() {
	r.LastRun.SetToCurrentTime()
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
