package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/meeting-auditor/internal/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "none", cfg.GetLLM().Provider)

	det := cfg.GetDetection()
	assert.Equal(t, detection.DefaultWeights(), det.Weights)
	assert.InDelta(t, 0.2, det.MinConfidence, 1e-9)
	assert.Contains(t, det.Keywords["en"], "meet")
	assert.Contains(t, det.Keywords["he"], "פגישה")

	j, err := cfg.GetJudge()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, j.Timeout)
	assert.InDelta(t, 0.3, j.FallbackThreshold, 1e-9)
	assert.Equal(t, time.UTC, j.Location)

	w, err := cfg.GetWindow()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, w.Span)
	assert.Equal(t, 6, w.MaxMessages)

	r, err := cfg.GetReconcile()
	require.NoError(t, err)
	assert.InDelta(t, 0.6, r.MissingThresholdOracle, 1e-9)
	assert.InDelta(t, 0.4, r.MissingThresholdHeuristic, 1e-9)
	assert.Equal(t, 30*time.Minute, r.TimeTolerance)

	a := cfg.GetAudit()
	assert.Equal(t, 3, a.DetailLimit)
	assert.Equal(t, 7, a.LookaheadDays)
}

func TestInvalidValues(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	cfg.Set("window.span", "two hours")
	_, err := cfg.GetWindow()
	assert.Error(t, err)

	cfg.Set("audit.timezone", "Mars/Olympus")
	_, err = cfg.GetLocation()
	assert.Error(t, err)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: openai
detection:
  min_confidence: 0.35
  keywords:
    en: [standup, retro]
audit:
  ignored_senders: [bot-1, bot-2]
`), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	det := cfg.GetDetection()
	assert.InDelta(t, 0.35, det.MinConfidence, 1e-9)
	assert.Equal(t, []string{"standup", "retro"}, det.Keywords["en"])
	assert.Equal(t, []string{"bot-1", "bot-2"}, cfg.GetAudit().IgnoredSenders)
	// untouched sections keep their defaults
	assert.Equal(t, 6, cfg.GetViper().GetInt("window.max_messages"))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MEETING_AUDIT_LLM_PROVIDER", "gemini")
	t.Setenv("MEETING_AUDIT_ORACLE_MAX_CONCURRENCY", "9")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: openai\n"), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	oracle, err := cfg.GetOracle()
	require.NoError(t, err)
	assert.Equal(t, 9, oracle.MaxConcurrency)
}
