package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/dates"
	"github.com/mikey/meeting-auditor/internal/detection"
	"github.com/mikey/meeting-auditor/internal/ignore"
	"github.com/mikey/meeting-auditor/internal/judge"
	"github.com/mikey/meeting-auditor/internal/metrics"
	"github.com/mikey/meeting-auditor/internal/reconcile"
	"github.com/mikey/meeting-auditor/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Monday 2024-12-16 10:00 UTC
var monday = time.Date(2024, time.December, 16, 10, 0, 0, 0, time.UTC)

type staticCalendar struct {
	mu     sync.Mutex
	events []core.CalendarEvent
	err    error
	asked  [][]core.Day
}

func (c *staticCalendar) Events(_ context.Context, days []core.Day) ([]core.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asked = append(c.asked, days)
	return c.events, c.err
}

type judgeFunc func(ctx context.Context, c *core.Candidate, w []core.Message) core.SemanticVerdict

func (f judgeFunc) Judge(ctx context.Context, c *core.Candidate, w []core.Message) core.SemanticVerdict {
	return f(ctx, c, w)
}

type staticSource []core.Message

func (s staticSource) Messages(context.Context) ([]core.Message, error) { return s, nil }

type captureSink struct{ report *core.AuditReport }

func (s *captureSink) Publish(_ context.Context, r *core.AuditReport) error {
	s.report = r
	return nil
}

func coffeeWithDana() core.CalendarEvent {
	start := time.Date(2024, time.December, 17, 15, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	return core.CalendarEvent{
		ID:      "evt-coffee",
		Summary: "Coffee with Dana",
		Start:   core.EventTime{DateTime: &start},
		End:     core.EventTime{DateTime: &end},
	}
}

func newService(j judge.Judge, cal core.CalendarSource, logger *zap.Logger) *AuditService {
	if j == nil {
		j = judge.NewJudge(judge.DefaultConfig(), nil, nil, nil, nil, logger)
	}
	dcfg := detection.DefaultConfig()
	svc := NewAuditService(Components{
		Extractor: detection.NewExtractor(dcfg),
		Scorer:    detection.NewScorer(dcfg),
		Builder:   window.NewBuilder(window.DefaultConfig(), nil),
		History:   window.NewHistory(50),
		Judge:     j,
		Resolver:  dates.NewResolver(time.UTC),
		Matcher:   reconcile.NewMatcher(reconcile.DefaultConfig(), time.UTC),
		Ignore:    ignore.NewChecker([]string{"bot"}, nil, logger),
		Calendar:  cal,
		Metrics:   metrics.New(),
	}, DefaultOptions(), logger)
	svc.now = func() time.Time { return monday }
	return svc
}

func message(id, text string, at time.Time) core.Message {
	return core.Message{ID: id, ChatID: "family", SenderID: "noa", SenderName: "Noa", Timestamp: at.Unix(), Text: text}
}

func TestRun_EndToEndConfirmed(t *testing.T) {
	cal := &staticCalendar{events: []core.CalendarEvent{coffeeWithDana()}}
	svc := newService(nil, cal, zap.NewNop())

	report, err := svc.Run(context.Background(), []core.Message{message("m1", "Let's meet tomorrow at 3", monday)})
	require.NoError(t, err)

	require.Len(t, report.Candidates, 1)
	c := report.Candidates[0]
	assert.Equal(t, []core.Day{{Year: 2024, Month: time.December, Day: 17}}, c.ResolvedDates)
	assert.Greater(t, c.HeuristicConfidence, judge.DefaultConfig().FallbackThreshold)
	require.NotNil(t, c.SemanticVerdict)
	assert.Equal(t, core.VerdictFallback, c.SemanticVerdict.Source)

	require.Len(t, report.Records, 1)
	r := report.Records[0]
	assert.Equal(t, core.StatusConfirmed, r.Status)
	assert.Equal(t, "date and time match", r.Detail)
	require.NotNil(t, r.MatchedEventID)
	assert.Equal(t, "evt-coffee", *r.MatchedEventID)

	assert.Equal(t, 1, report.Summary.Counts[core.StatusConfirmed])
	assert.Equal(t, [][]core.Day{{{Year: 2024, Month: time.December, Day: 17}}}, cal.asked)
	assert.NotEmpty(t, report.RunID)
}

func TestRun_ConflictAndMissing(t *testing.T) {
	cal := &staticCalendar{events: []core.CalendarEvent{coffeeWithDana()}}
	svc := newService(nil, cal, zap.NewNop())

	msgs := []core.Message{
		message("m1", "Dinner tomorrow at 20:00 with Dana Cohen", monday),
		message("m2", "Interview on 20/12/2024 at 11:00", monday.Add(time.Minute)),
		message("m3", "we should meet sometime", monday.Add(2*time.Minute)),
	}
	report, err := svc.Run(context.Background(), msgs)
	require.NoError(t, err)

	require.Len(t, report.Records, 2)
	assert.Equal(t, core.StatusConflict, report.Records[0].Status)
	assert.Contains(t, report.Records[0].Detail, `"Coffee with Dana" at 15:00`)
	assert.Equal(t, core.StatusMissing, report.Records[1].Status)
	assert.Equal(t, "no calendar event found for 2024-12-20", report.Records[1].Detail)

	assert.Len(t, report.Summary.Conflicts, 1)
	assert.Len(t, report.Summary.Missing, 1)
}

func TestRun_IgnoredAndInvalidProduceNothing(t *testing.T) {
	cal := &staticCalendar{}
	svc := newService(nil, cal, zap.NewNop())

	bot := message("m1", "Meeting tomorrow at 10:00", monday)
	bot.SenderID = "bot"
	msgs := []core.Message{
		bot,
		message("m2", "no keywords here", monday),
		// keyword only: fallback verdict is invalid without a date or time
		message("m3", "coffee", monday),
	}

	report, err := svc.Run(context.Background(), msgs)
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.Empty(t, cal.asked)
}

func TestRun_PanickingCandidateIsDropped(t *testing.T) {
	obsCore, logs := observer.New(zapcore.ErrorLevel)
	cal := &staticCalendar{events: []core.CalendarEvent{coffeeWithDana()}}

	j := judgeFunc(func(_ context.Context, c *core.Candidate, _ []core.Message) core.SemanticVerdict {
		if c.SourceMessageID == "boom" {
			panic("oracle adapter bug")
		}
		return judge.Fallback(c, 0.3)
	})
	svc := newService(j, cal, zap.New(obsCore))

	report, err := svc.Run(context.Background(), []core.Message{
		message("boom", "Meeting tomorrow at 9:00", monday),
		message("m2", "Let's meet tomorrow at 3", monday),
	})
	require.NoError(t, err)

	require.Len(t, report.Candidates, 1)
	assert.Equal(t, "m2", report.Candidates[0].SourceMessageID)
	require.Len(t, report.Records, 1)
	assert.Equal(t, core.StatusConfirmed, report.Records[0].Status)
	assert.Equal(t, 1, logs.FilterMessage("Candidate processing panicked, dropping candidate").Len())
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var inFlight, peak int32
	j := judgeFunc(func(_ context.Context, c *core.Candidate, _ []core.Message) core.SemanticVerdict {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return judge.Fallback(c, 0.3)
	})
	svc := newService(j, &staticCalendar{}, zap.NewNop())

	var msgs []core.Message
	for i := 0; i < 20; i++ {
		msgs = append(msgs, message(fmt.Sprintf("m%d", i), "Let's meet tomorrow at 3", monday.Add(time.Duration(i)*time.Second)))
	}
	report, err := svc.Run(context.Background(), msgs)
	require.NoError(t, err)

	assert.Len(t, report.Candidates, 20)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(DefaultOptions().MaxConcurrency))
	assert.Equal(t, 20, report.Summary.Counts[core.StatusMissing])
}

func TestRun_CalendarFailureIsFatal(t *testing.T) {
	svc := newService(nil, &staticCalendar{err: errors.New("401 unauthorized")}, zap.NewNop())

	_, err := svc.Run(context.Background(), []core.Message{message("m1", "Let's meet tomorrow at 3", monday)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401 unauthorized")

	noCalendar := newService(nil, nil, zap.NewNop())
	_, err = noCalendar.Run(context.Background(), []core.Message{message("m1", "Let's meet tomorrow at 3", monday)})
	assert.ErrorIs(t, err, ErrNoCalendar)
}

func TestAudit_PublishesReport(t *testing.T) {
	svc := newService(nil, &staticCalendar{events: []core.CalendarEvent{coffeeWithDana()}}, zap.NewNop())
	sink := &captureSink{}

	report, err := svc.Audit(context.Background(), staticSource{message("m1", "Let's meet tomorrow at 3", monday)}, sink)
	require.NoError(t, err)
	assert.Same(t, report, sink.report)

	_, err = svc.Audit(context.Background(), nil, sink)
	assert.Error(t, err)
}

func TestRequiredDays(t *testing.T) {
	d := func(day int) core.Day { return core.Day{Year: 2024, Month: time.December, Day: day} }

	fallback := RequiredDays(nil, monday, 7)
	require.Len(t, fallback, 7)
	assert.Equal(t, d(16), fallback[0])
	assert.Equal(t, d(22), fallback[6])

	oracleDate := "2024-12-19 09:00"
	candidates := []*core.Candidate{
		{ResolvedDates: []core.Day{d(18), d(17)}},
		{ResolvedDates: []core.Day{d(17)}},
		{
			ResolvedDates:   []core.Day{d(30)},
			SemanticVerdict: &core.SemanticVerdict{DateTime: &oracleDate, Source: core.VerdictFromOracle},
		},
		{},
	}
	assert.Equal(t, []core.Day{d(17), d(18), d(19)}, RequiredDays(candidates, monday, 7))
}

func TestInspect(t *testing.T) {
	svc := newService(nil, nil, zap.NewNop())

	tests := []struct {
		name      string
		text      string
		wantNil   bool
		wantKept  bool
		wantDates []core.Day
	}{
		{name: "no keyword", text: "how was your weekend", wantNil: true},
		{
			name:      "meeting",
			text:      "Let's meet tomorrow at 3",
			wantKept:  true,
			wantDates: []core.Day{{Year: 2024, Month: time.December, Day: 17}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, kept := svc.Inspect(context.Background(), message("m1", tt.text, monday), nil)
			if tt.wantNil {
				assert.Nil(t, c)
				assert.False(t, kept)
				return
			}
			require.NotNil(t, c)
			assert.Equal(t, tt.wantKept, kept)
			require.NotNil(t, c.SemanticVerdict)
			assert.Equal(t, tt.wantDates, c.ResolvedDates)
		})
	}
}

func TestInspectPruned(t *testing.T) {
	svc := newService(nil, nil, zap.NewNop())
	svc.Scorer = detection.NewScorer(detection.Config{MinConfidence: 0.99})

	c, kept := svc.Inspect(context.Background(), message("m1", "call", monday), nil)
	require.NotNil(t, c)
	assert.False(t, kept)
	assert.Nil(t, c.SemanticVerdict)
}

type failingClient struct{}

func (failingClient) Complete(context.Context, string, string) (string, error) {
	return "", errors.New("connection refused")
}

func (failingClient) ModelName() string { return "down" }

func TestRun_OracleOutageReportsNothing(t *testing.T) {
	cal := &staticCalendar{}
	j := judge.NewJudge(judge.DefaultConfig(), failingClient{}, nil, nil, nil, zap.NewNop())
	svc := newService(j, cal, zap.NewNop())

	report, err := svc.Run(context.Background(), []core.Message{
		message("m1", "Lunch with Dana Cohen tomorrow at 1pm", monday),
	})
	require.NoError(t, err)

	require.Len(t, report.Candidates, 1)
	assert.Greater(t, report.Candidates[0].HeuristicConfidence, 0.4)
	assert.Zero(t, report.Candidates[0].SemanticVerdict.Confidence)
	assert.Empty(t, report.Records)
	assert.Zero(t, report.Summary.Counts[core.StatusMissing])
}

func TestRun_HistorySeededBeforeJudging(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	var windows [][]core.Message

	svc := newService(nil, &staticCalendar{}, zap.NewNop())
	svc.Builder = window.NewBuilder(window.DefaultConfig(), svc.History)
	svc.Judge = judgeFunc(func(_ context.Context, c *core.Candidate, w []core.Message) core.SemanticVerdict {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, svc.History.Len("family"))
		windows = append(windows, w)
		return judge.Fallback(c, 0.3)
	})

	_, err := svc.Run(context.Background(), []core.Message{
		message("q", "who is free tomorrow?", monday.Add(-10*time.Minute)),
		message("m1", "Let's meet tomorrow at 3", monday),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, seen)

	// a later run sees the earlier batch through the ring buffer alone
	_, err = svc.Run(context.Background(), []core.Message{
		message("m2", "Coffee tomorrow at 4?", monday.Add(20*time.Minute)),
	})
	require.NoError(t, err)

	require.Len(t, windows, 2)
	var ids []string
	for _, msg := range windows[1] {
		ids = append(ids, msg.ID)
	}
	assert.Equal(t, []string{"q", "m1"}, ids)
}
