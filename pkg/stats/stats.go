// Package stats records fetch attempts and outcomes as Prometheus metrics.
package stats

import (
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
)

// Recorder implements fetch.Observer on its own registry.
type Recorder struct {
	registry *prometheus.Registry
	failures *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	attempts *prometheus.HistogramVec
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sleuth",
			Name:      "fetch_attempt_failures_total",
			Help:      "Failed fetch attempts by operation and error kind.",
		}, []string{"op", "kind"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sleuth",
			Name:      "fetch_outcomes_total",
			Help:      "Completed fetches by operation and final status.",
		}, []string{"op", "status"}),
		attempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sleuth",
			Name:      "fetch_attempts",
			Help:      "Attempts spent per completed fetch.",
			Buckets:   prometheus.LinearBuckets(1, 1, 5),
		}, []string{"op"}),
	}
}

// Attempt records one failed attempt.
func (r *Recorder) Attempt(op string, kind fetch.Kind) {
	r.failures.WithLabelValues(opLabel(op), string(kind)).Inc()
}

// Done records the outcome of a fetch.
func (r *Recorder) Done(op string, status fetch.Status, attempts int) {
	op = opLabel(op)
	r.outcomes.WithLabelValues(op, string(status)).Inc()
	r.attempts.WithLabelValues(op).Observe(float64(attempts))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes all metrics to path in the text exposition format, for the
// node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// opLabel drops the per-target suffix of an operation name ("followers:jane" -> "followers")
// so label cardinality stays bounded.
func opLabel(op string) string {
	if i := strings.IndexByte(op, ':'); i >= 0 {
		op = op[:i]
	}
	if op == "" {
		return "unknown"
	}
	return op
}

// Summary returns outcome counts keyed by "op/status", for logging at the end of a run.
func (r *Recorder) Summary() map[string]int {
	out := make(map[string]int)
	mfs, err := r.registry.Gather()
	if err != nil {
		return out
	}
	for _, mf := range mfs {
		if mf.GetName() != "sleuth_fetch_outcomes_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var op, status string
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "op":
					op = lp.GetValue()
				case "status":
					status = lp.GetValue()
				}
			}
			out[op+"/"+status] += int(m.GetCounter().GetValue())
		}
	}
	return out
}

// String renders Summary compactly.
func (r *Recorder) String() string {
	s := r.Summary()
	parts := make([]string, 0, len(s))
	for k, v := range s {
		parts = append(parts, k+"="+strconv.Itoa(v))
	}
	slices.Sort(parts)
	return strings.Join(parts, " ")
}
