package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTextfile(t *testing.T, m *Metrics) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "meeting_audit.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestObserve(t *testing.T) {
	m := New()

	m.CandidatesDetected.Add(3)
	m.ObserveOracle(OutcomeOK, 200*time.Millisecond)
	m.ObserveOracle(OutcomeCached, 0)
	m.ObserveOracle(OutcomeOK, time.Second)
	m.ObserveRecords([]core.AuditRecord{
		{Status: core.StatusConfirmed},
		{Status: core.StatusMissing},
		{Status: core.StatusMissing},
	}, time.Unix(1_700_000_000, 0))

	out := readTextfile(t, m)
	assert.Contains(t, out, "meeting_audit_candidates_detected_total 3")
	assert.Contains(t, out, `meeting_audit_oracle_calls_total{outcome="ok"} 2`)
	assert.Contains(t, out, `meeting_audit_oracle_calls_total{outcome="cached"} 1`)
	assert.Contains(t, out, "meeting_audit_oracle_latency_seconds_count 2")
	assert.Contains(t, out, `meeting_audit_records_total{status="missing"} 2`)
	assert.Contains(t, out, `meeting_audit_records_total{status="confirmed"} 1`)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOracle(OutcomeError, time.Second)
		m.ObserveRecords(nil, time.Now())
	})
}
