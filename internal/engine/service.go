// Package engine runs one audit: detection, semantic judgement, date
// resolution and reconciliation against the calendar.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/meeting-auditor/internal/audit"
	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/dates"
	"github.com/mikey/meeting-auditor/internal/detection"
	"github.com/mikey/meeting-auditor/internal/ignore"
	"github.com/mikey/meeting-auditor/internal/judge"
	"github.com/mikey/meeting-auditor/internal/metrics"
	"github.com/mikey/meeting-auditor/internal/ports"
	"github.com/mikey/meeting-auditor/internal/reconcile"
	"github.com/mikey/meeting-auditor/internal/window"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoCalendar is returned when a run has candidates but no calendar source
var ErrNoCalendar = errors.New("no calendar source configured")

// Options are the run-level settings of the audit service
type Options struct {
	Location       *time.Location
	LookaheadDays  int
	DetailLimit    int
	MaxConcurrency int
}

// DefaultOptions returns the default run settings
func DefaultOptions() Options {
	return Options{
		Location:       time.UTC,
		LookaheadDays:  7,
		DetailLimit:    audit.DefaultDetailLimit,
		MaxConcurrency: 4,
	}
}

// Components are the collaborators of the audit service. History, Ignore
// and Metrics may be nil.
type Components struct {
	Extractor *detection.Extractor
	Scorer    *detection.Scorer
	Builder   *window.Builder
	History   *window.History
	Judge     judge.Judge
	Resolver  *dates.Resolver
	Matcher   *reconcile.Matcher
	Ignore    *ignore.Checker
	Calendar  core.CalendarSource
	Metrics   *metrics.Metrics
}

// AuditService is the core service for meeting audits
type AuditService struct {
	Components
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService creates a new audit service
func NewAuditService(c Components, opts Options, logger *zap.Logger) *AuditService {
	def := DefaultOptions()
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.LookaheadDays <= 0 {
		opts.LookaheadDays = def.LookaheadDays
	}
	if opts.DetailLimit <= 0 {
		opts.DetailLimit = def.DetailLimit
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = def.MaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuditService{
		Components: c,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Audit pulls messages from source, runs the audit and publishes the report
func (s *AuditService) Audit(ctx context.Context, source ports.MessageSource, sink ports.ReportSink) (*core.AuditReport, error) {
	if source == nil {
		return nil, errors.New("no message source configured")
	}

	msgs, err := source.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	report, err := s.Run(ctx, msgs)
	if err != nil {
		return nil, err
	}

	if sink != nil {
		if err := sink.Publish(ctx, report); err != nil {
			return report, fmt.Errorf("failed to publish report: %w", err)
		}
	}
	return report, nil
}

// Run audits one batch of messages. Data problems never fail the run; only
// a missing or unreadable calendar and cancellation do.
func (s *AuditService) Run(ctx context.Context, msgs []core.Message) (*core.AuditReport, error) {
	started := s.now()
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))

	msgs = s.Ignore.Filter(msgs)
	candidates := s.detect(msgs, logger)
	logger.Info("Detected meeting candidates",
		zap.Int("messages", len(msgs)),
		zap.Int("candidates", len(candidates)))

	// Seed history before judging so windows see the whole batch. The batch
	// is still passed to the builder: the ring keeps only the newest messages per chat.
	if s.History != nil {
		s.History.Add(msgs...)
	}

	processed := s.enrich(ctx, candidates, msgs, logger)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("audit cancelled: %w", err)
	}

	var valid []*core.Candidate
	for _, c := range processed {
		if c.SemanticVerdict != nil && !c.SemanticVerdict.IsValidMeeting {
			logger.Debug("Candidate rejected by verdict",
				zap.String("candidate_id", c.ID),
				zap.String("source", string(c.SemanticVerdict.Source)),
				zap.String("reasoning", c.SemanticVerdict.Reasoning))
			continue
		}
		valid = append(valid, c)
	}

	days := RequiredDays(valid, started.In(s.opts.Location), s.opts.LookaheadDays)

	var records []core.AuditRecord
	if len(valid) > 0 && len(days) > 0 {
		if s.Calendar == nil {
			return nil, ErrNoCalendar
		}
		events, err := s.Calendar.Events(ctx, days)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch calendar events: %w", err)
		}
		logger.Debug("Fetched calendar events",
			zap.Int("days", len(days)),
			zap.Int("events", len(events)))

		for _, c := range valid {
			if r := s.match(c, events, logger); r != nil {
				records = append(records, *r)
			}
		}
	}

	snapshot := make([]core.Candidate, len(processed))
	for i, c := range processed {
		snapshot[i] = *c
	}

	finished := s.now()
	s.Metrics.ObserveRecords(records, finished)

	report := &core.AuditReport{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Days:       days,
		Candidates: snapshot,
		Records:    records,
		Summary:    audit.Aggregate(snapshot, records, s.opts.DetailLimit),
	}

	logger.Info("Audit finished",
		zap.Int("confirmed", report.Summary.Counts[core.StatusConfirmed]),
		zap.Int("conflict", report.Summary.Counts[core.StatusConflict]),
		zap.Int("missing", report.Summary.Counts[core.StatusMissing]),
		zap.Duration("elapsed", finished.Sub(started)))

	return report, nil
}

// Inspect runs extraction, scoring, judgement and date resolution on one
// message against the given surrounding messages. The calendar is not
// consulted. It returns nil when no keyword matched; pruned candidates are
// returned unjudged with kept set to false.
func (s *AuditService) Inspect(ctx context.Context, msg core.Message, surrounding []core.Message) (c *core.Candidate, kept bool) {
	c, ok := s.Extractor.Extract(msg)
	if !ok {
		return nil, false
	}
	if !s.Scorer.ScoreCandidate(c) {
		return c, false
	}
	return c, s.process(ctx, c, surrounding, s.logger)
}

// detect extracts and scores candidates, pruning those below the floor
func (s *AuditService) detect(msgs []core.Message, logger *zap.Logger) []*core.Candidate {
	var out []*core.Candidate
	for _, msg := range msgs {
		c, ok := s.Extractor.Extract(msg)
		if !ok {
			continue
		}
		if s.Metrics != nil {
			s.Metrics.CandidatesDetected.Inc()
		}

		if !s.Scorer.ScoreCandidate(c) {
			if s.Metrics != nil {
				s.Metrics.CandidatesPruned.Inc()
			}
			logger.Debug("Candidate pruned",
				zap.String("candidate_id", c.ID),
				zap.Float64("confidence", c.HeuristicConfidence))
			continue
		}
		out = append(out, c)
	}
	return out
}

// enrich runs the per-candidate pipeline on a bounded number of goroutines.
// Candidates that fail are dropped; the rest keep their input order.
func (s *AuditService) enrich(ctx context.Context, candidates []*core.Candidate, batch []core.Message, logger *zap.Logger) []*core.Candidate {
	results := make([]*core.Candidate, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrency)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			if s.process(ctx, c, batch, logger) {
				results[i] = c
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*core.Candidate, 0, len(results))
	for _, c := range results {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (s *AuditService) process(ctx context.Context, c *core.Candidate, batch []core.Message, logger *zap.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Candidate processing panicked, dropping candidate",
				zap.String("candidate_id", c.ID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			if s.Metrics != nil {
				s.Metrics.CandidatesFailed.Inc()
			}
			ok = false
		}
	}()

	ctxWindow := s.Builder.Build(c, batch)
	verdict := s.Judge.Judge(ctx, c, ctxWindow)
	c.SemanticVerdict = &verdict
	c.ResolvedDates = s.Resolver.Resolve(c.CandidateDateTokens, time.Unix(c.Timestamp, 0))
	return true
}

func (s *AuditService) match(c *core.Candidate, events []core.CalendarEvent, logger *zap.Logger) (r *core.AuditRecord) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Candidate matching panicked, dropping candidate",
				zap.String("candidate_id", c.ID),
				zap.Any("panic", p),
				zap.Stack("stack"))
			if s.Metrics != nil {
				s.Metrics.CandidatesFailed.Inc()
			}
			r = nil
		}
	}()
	return s.Matcher.Match(c, events)
}

// RequiredDays returns the sorted set of days the candidates need calendar
// events for. Without candidates it covers lookahead days starting today.
func RequiredDays(candidates []*core.Candidate, now time.Time, lookahead int) []core.Day {
	if len(candidates) == 0 {
		today := core.DayOf(now)
		days := make([]core.Day, 0, lookahead)
		for i := 0; i < lookahead; i++ {
			days = append(days, today.AddDays(i))
		}
		return days
	}

	seen := make(map[core.Day]bool)
	days := []core.Day{}
	for _, c := range candidates {
		for _, d := range reconcile.AuthoritativeDays(c, now.Location()) {
			if !seen[d] {
				seen[d] = true
				days = append(days, d)
			}
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
