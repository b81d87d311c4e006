package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func report(runID string, started time.Time, records ...core.AuditRecord) *core.AuditReport {
	counts := map[core.Status]int{}
	for _, r := range records {
		counts[r.Status]++
	}
	return &core.AuditReport{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Days: []core.Day{
			{Year: 2024, Month: time.December, Day: 17},
			{Year: 2024, Month: time.December, Day: 18},
		},
		Records: records,
		Summary: core.AuditSummary{Candidates: len(records), Counts: counts},
	}
}

func TestPublishAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 12, 16, 9, 0, 0, 0, time.UTC)
	eventID := "coffee-1"

	first := report("run-1", base,
		core.AuditRecord{CandidateID: "b", SourceMessageID: "m2", ChatID: "c", Status: core.StatusMissing, Detail: "no calendar event found for 2024-12-18"},
		core.AuditRecord{CandidateID: "a", SourceMessageID: "m1", ChatID: "c", Status: core.StatusConfirmed, MatchedEventID: &eventID, Detail: "date and time match"},
	)
	second := report("run-2", base.Add(24*time.Hour))

	require.NoError(t, store.Publish(ctx, first))
	require.NoError(t, store.Publish(ctx, second))

	runs, err := store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, "run-1", runs[1].RunID)
	assert.Equal(t, []string{"2024-12-17", "2024-12-18"}, runs[1].Days)
	assert.Equal(t, 1, runs[1].Counts[core.StatusConfirmed])
	assert.Equal(t, 1, runs[1].Counts[core.StatusMissing])
	assert.Equal(t, base, runs[1].StartedAt)

	records, err := store.Records(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].CandidateID)
	require.NotNil(t, records[0].MatchedEventID)
	assert.Equal(t, "coffee-1", *records[0].MatchedEventID)
	assert.Nil(t, records[1].MatchedEventID)
	assert.Equal(t, core.StatusMissing, records[1].Status)

	limited, err := store.Runs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPublishDuplicateRunRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 12, 16, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Publish(ctx, report("run-1", base)))
	dup := report("run-1", base,
		core.AuditRecord{CandidateID: "x", Status: core.StatusMissing, Detail: "d"})
	assert.Error(t, store.Publish(ctx, dup))

	records, err := store.Records(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}
