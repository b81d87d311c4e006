// Package reconcile classifies meeting candidates against calendar events.
package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/dates"
)

// Detail strings attached to records
const (
	DetailDateAndTime = "date and time match"
	DetailTimeUnclear = "date match, time unclear"
)

// Config holds the matcher thresholds
type Config struct {
	// MissingThresholdOracle applies when an oracle verdict is present
	MissingThresholdOracle float64
	// MissingThresholdHeuristic applies to heuristic-only candidates
	MissingThresholdHeuristic float64
	// TimeTolerance widens time windows on both sides
	TimeTolerance time.Duration
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MissingThresholdOracle:    0.6,
		MissingThresholdHeuristic: 0.4,
		TimeTolerance:             30 * time.Minute,
	}
}

// Matcher matches candidates to events
type Matcher struct {
	cfg Config
	loc *time.Location
}

// NewMatcher creates a matcher comparing days and clocks in loc
func NewMatcher(cfg Config, loc *time.Location) *Matcher {
	if loc == nil {
		loc = time.UTC
	}
	if cfg.TimeTolerance < 0 {
		cfg.TimeTolerance = 0
	}
	return &Matcher{cfg: cfg, loc: loc}
}

// when is the authoritative date and time of a candidate
type when struct {
	days        []core.Day
	oracleClock *int
	timeTokens  []string
}

// Match returns the audit record for c, or nil when there is nothing to
// report: no authoritative date, or no matching event and too little
// confidence to call the meeting missing.
func (m *Matcher) Match(c *core.Candidate, events []core.CalendarEvent) *core.AuditRecord {
	w := m.authoritative(c)
	if len(w.days) == 0 {
		return nil
	}

	wanted := make(map[core.Day]bool, len(w.days))
	for _, d := range w.days {
		wanted[d] = true
	}

	var unclear *core.CalendarEvent
	var conflicts []core.CalendarEvent
	for _, ev := range m.byStart(events) {
		day, ok := ev.Start.Day(m.loc)
		if !ok || !wanted[day] {
			continue
		}

		matched, comparable := m.compareTime(w, ev)
		switch {
		case comparable && matched:
			return m.record(c, core.StatusConfirmed, &ev, DetailDateAndTime)
		case !comparable:
			if unclear == nil {
				e := ev
				unclear = &e
			}
		default:
			conflicts = append(conflicts, ev)
		}
	}

	if unclear != nil {
		return m.record(c, core.StatusConfirmed, unclear, DetailTimeUnclear)
	}
	if len(conflicts) > 0 {
		return m.record(c, core.StatusConflict, &conflicts[0], m.conflictDetail(w, conflicts))
	}

	if c.EffectiveConfidence() > m.missingThreshold(c) {
		return m.record(c, core.StatusMissing, nil, missingDetail(w.days))
	}
	return nil
}

// AuthoritativeDays returns the oracle date when an oracle verdict carries
// a parseable one, otherwise the resolved heuristic dates.
func AuthoritativeDays(c *core.Candidate, loc *time.Location) []core.Day {
	return authoritative(c, loc).days
}

func (m *Matcher) authoritative(c *core.Candidate) when {
	return authoritative(c, m.loc)
}

func authoritative(c *core.Candidate, loc *time.Location) when {
	w := when{days: c.ResolvedDates, timeTokens: c.CandidateTimeTokens}

	v := c.OracleVerdict()
	if v == nil || v.DateTime == nil {
		return w
	}
	t, hasClock, ok := dates.ParseDateTime(*v.DateTime, loc)
	if !ok {
		return w
	}
	w.days = []core.Day{core.DayOf(t)}
	if hasClock {
		minute := t.Hour()*60 + t.Minute()
		w.oracleClock = &minute
	}
	return w
}

// compareTime reports whether the candidate time matches the event start,
// and whether both sides had a time to compare at all.
func (m *Matcher) compareTime(w when, ev core.CalendarEvent) (matched bool, comparable bool) {
	eventMinute, ok := ev.Start.Clock(m.loc)
	if !ok {
		return false, false
	}
	if w.oracleClock != nil {
		exact := dates.Window{Start: *w.oracleClock, End: *w.oracleClock}
		return exact.Contains(eventMinute, m.cfg.TimeTolerance), true
	}
	return dates.MatchesAny(w.timeTokens, eventMinute, m.cfg.TimeTolerance)
}

func (m *Matcher) missingThreshold(c *core.Candidate) float64 {
	if c.OracleVerdict() != nil {
		return m.cfg.MissingThresholdOracle
	}
	return m.cfg.MissingThresholdHeuristic
}

// byStart returns the events with a usable start, ordered by start time
func (m *Matcher) byStart(events []core.CalendarEvent) []core.CalendarEvent {
	sorted := make([]core.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if _, ok := ev.Start.Day(m.loc); ok {
			sorted = append(sorted, ev)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return m.startOf(sorted[i]).Before(m.startOf(sorted[j]))
	})
	return sorted
}

func (m *Matcher) startOf(ev core.CalendarEvent) time.Time {
	if ev.Start.DateTime != nil && !ev.Start.DateTime.IsZero() {
		return *ev.Start.DateTime
	}
	day, _ := ev.Start.Day(m.loc)
	return day.Time(m.loc)
}

func (m *Matcher) conflictDetail(w when, conflicts []core.CalendarEvent) string {
	names := make([]string, len(conflicts))
	for i, ev := range conflicts {
		minute, _ := ev.Start.Clock(m.loc)
		names[i] = fmt.Sprintf("%q at %s", ev.Summary, clock(minute))
	}

	said := strings.Join(w.timeTokens, "/")
	if w.oracleClock != nil {
		said = clock(*w.oracleClock)
	}
	return fmt.Sprintf("message says %s, calendar has %s", said, strings.Join(names, ", "))
}

func missingDetail(days []core.Day) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = d.String()
	}
	return "no calendar event found for " + strings.Join(parts, ", ")
}

func (m *Matcher) record(c *core.Candidate, status core.Status, ev *core.CalendarEvent, detail string) *core.AuditRecord {
	r := &core.AuditRecord{
		CandidateID:     c.ID,
		SourceMessageID: c.SourceMessageID,
		ChatID:          c.ChatID,
		Status:          status,
		Detail:          detail,
	}
	if ev != nil {
		id := ev.ID
		r.MatchedEventID = &id
	}
	return r
}

func clock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
