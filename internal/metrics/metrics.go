// Package metrics holds the Prometheus counters of one audit process.
package metrics

import (
	"fmt"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Oracle call outcomes
const (
	OutcomeOK          = "ok"
	OutcomeCached      = "cached"
	OutcomeError       = "error"
	OutcomeParseFailed = "parse_failed"
)

// Metrics holds the audit counters on a private registry.
//
// Metrics:
//   - meeting_audit_candidates_detected_total - candidates produced by extraction
//   - meeting_audit_candidates_pruned_total - candidates below the confidence floor
//   - meeting_audit_oracle_calls_total{outcome} - oracle calls by outcome
//   - meeting_audit_oracle_latency_seconds - oracle call latency
//   - meeting_audit_records_total{status} - audit records by status
type Metrics struct {
	registry *prometheus.Registry

	CandidatesDetected prometheus.Counter
	CandidatesPruned   prometheus.Counter
	CandidatesFailed   prometheus.Counter
	OracleCalls        *prometheus.CounterVec
	OracleLatency      prometheus.Histogram
	Records            *prometheus.CounterVec
	LastRunTimestamp   prometheus.Gauge
}

// New creates the metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CandidatesDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "meeting_audit_candidates_detected_total",
			Help: "Total number of meeting candidates produced by extraction",
		}),
		CandidatesPruned: factory.NewCounter(prometheus.CounterOpts{
			Name: "meeting_audit_candidates_pruned_total",
			Help: "Total number of candidates discarded below the confidence floor",
		}),
		CandidatesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "meeting_audit_candidates_failed_total",
			Help: "Total number of candidates dropped after a processing failure",
		}),
		OracleCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_audit_oracle_calls_total",
				Help: "Total number of semantic oracle calls",
			},
			[]string{"outcome"},
		),
		OracleLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "meeting_audit_oracle_latency_seconds",
			Help:    "Latency of semantic oracle calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		Records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_audit_records_total",
				Help: "Total number of audit records by status",
			},
			[]string{"status"},
		),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meeting_audit_last_run_timestamp_seconds",
			Help: "Unix time of the last completed audit run",
		}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOracle records one oracle call
func (m *Metrics) ObserveOracle(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OracleCalls.WithLabelValues(outcome).Inc()
	if outcome != OutcomeCached {
		m.OracleLatency.Observe(elapsed.Seconds())
	}
}

// ObserveRecords counts the records of a finished run
func (m *Metrics) ObserveRecords(records []core.AuditRecord, finished time.Time) {
	if m == nil {
		return
	}
	for _, r := range records {
		m.Records.WithLabelValues(string(r.Status)).Inc()
	}
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
