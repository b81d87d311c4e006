// Package calendar provides read-only calendar sources.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/mikey/meeting-auditor/internal/core"
	"go.uber.org/zap"
)

// ICSSource reads events from an iCalendar file or URL
type ICSSource struct {
	path       string
	url        string
	httpClient *http.Client
	loc        *time.Location
	logger     *zap.Logger
}

var _ core.CalendarSource = (*ICSSource)(nil)

// NewICSFileSource creates a source backed by a local .ics file
func NewICSFileSource(path string, loc *time.Location, logger *zap.Logger) *ICSSource {
	return &ICSSource{path: path, loc: loc, logger: logger}
}

// NewICSURLSource creates a source backed by an iCalendar feed
func NewICSURLSource(url string, timeout time.Duration, loc *time.Location, logger *zap.Logger) *ICSSource {
	return &ICSSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		loc:        loc,
		logger:     logger,
	}
}

// Events returns every event, recurring instances included, starting on one of days
func (s *ICSSource) Events(ctx context.Context, days []core.Day) ([]core.CalendarEvent, error) {
	if len(days) == 0 {
		return []core.CalendarEvent{}, nil
	}

	body, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateICalFormat(body); err != nil {
		return nil, err
	}

	from, to := span(days, s.loc)
	wanted := daySet(days)

	var events []core.CalendarEvent
	seen := make(map[string]bool)
	stats := struct{ total, cancelled, unusable, recurring int }{}

	dec := ical.NewDecoder(strings.NewReader(body))
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			stats.total++

			if isCancelled(comp) {
				stats.cancelled++
				continue
			}

			event, ok := s.parseEvent(comp)
			if !ok {
				stats.unusable++
				continue
			}

			instances := []core.CalendarEvent{event}
			if comp.Props.Get(ical.PropRecurrenceRule) != nil {
				stats.recurring++
				instances = s.expand(comp, event, from, to)
			}

			for _, inst := range instances {
				day, ok := inst.Start.Day(s.loc)
				if !ok || !wanted[day] || seen[inst.ID] {
					continue
				}
				seen[inst.ID] = true
				events = append(events, inst)
			}
		}
	}

	s.logger.Debug("Calendar loaded",
		zap.Int("components", stats.total),
		zap.Int("cancelled", stats.cancelled),
		zap.Int("unusable", stats.unusable),
		zap.Int("recurring", stats.recurring),
		zap.Int("included", len(events)))

	if events == nil {
		events = []core.CalendarEvent{}
	}
	return events, nil
}

func (s *ICSSource) load(ctx context.Context) (string, error) {
	if s.url == "" {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return "", fmt.Errorf("failed to read calendar file: %w", err)
		}
		return string(data), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid calendar url: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("calendar request returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read calendar response: %w", err)
	}
	return string(data), nil
}

func (s *ICSSource) parseEvent(comp *ical.Component) (core.CalendarEvent, bool) {
	event := core.CalendarEvent{
		ID:          propValue(comp, ical.PropUID),
		Summary:     propValue(comp, ical.PropSummary),
		Description: propValue(comp, ical.PropDescription),
		Location:    propValue(comp, ical.PropLocation),
	}

	start, ok := s.eventTime(comp.Props.Get(ical.PropDateTimeStart))
	if !ok {
		return event, false
	}
	event.Start = start
	if end, ok := s.eventTime(comp.Props.Get(ical.PropDateTimeEnd)); ok {
		event.End = end
	}

	for _, att := range comp.Props.Values(ical.PropAttendee) {
		name := att.Params.Get(ical.ParamCommonName)
		if name == "" {
			name = strings.TrimPrefix(strings.ToLower(att.Value), "mailto:")
		}
		if name != "" {
			event.Attendees = append(event.Attendees, name)
		}
	}

	// Feeds without UIDs still need stable ids
	if event.ID == "" {
		event.ID = startKey(event.Start) + "-" + event.Summary
	}
	return event, true
}

func (s *ICSSource) eventTime(prop *ical.Prop) (core.EventTime, bool) {
	if prop == nil {
		return core.EventTime{}, false
	}
	t, err := prop.DateTime(s.loc)
	if err != nil {
		return core.EventTime{}, false
	}
	if prop.ValueType() == ical.ValueDate {
		return core.EventTime{Date: core.DayOf(t).String()}, true
	}
	return core.EventTime{DateTime: &t}, true
}

// expand returns the instances of a recurring event that start inside [from, to)
func (s *ICSSource) expand(comp *ical.Component, base core.CalendarEvent, from, to time.Time) []core.CalendarEvent {
	set, err := comp.RecurrenceSet(s.loc)
	if err != nil || set == nil {
		s.logger.Warn("Skipping unparseable recurrence",
			zap.String("event", base.Summary),
			zap.Error(err))
		return nil
	}

	var duration time.Duration
	if base.Start.DateTime != nil && base.End.DateTime != nil {
		duration = base.End.DateTime.Sub(*base.Start.DateTime)
	}

	var out []core.CalendarEvent
	for _, occ := range set.Between(from, to, true) {
		inst := base
		inst.ID = base.ID + "-" + occ.Format(time.RFC3339)
		if base.Start.DateTime != nil {
			start := occ.In(s.loc)
			end := start.Add(duration)
			inst.Start = core.EventTime{DateTime: &start}
			inst.End = core.EventTime{DateTime: &end}
		} else {
			inst.Start = core.EventTime{Date: core.DayOf(occ.In(s.loc)).String()}
			inst.End = core.EventTime{}
		}
		out = append(out, inst)
	}
	return out
}

func validateICalFormat(body string) error {
	trimmed := strings.TrimSpace(body)
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return errors.New("received HTML instead of iCalendar data - check if the feed requires authentication")
	}
	if !strings.HasPrefix(trimmed, "BEGIN:VCALENDAR") {
		preview := trimmed
		if len(preview) > 100 {
			preview = preview[:100]
		}
		return fmt.Errorf("invalid iCalendar format - expected BEGIN:VCALENDAR, got: %s", preview)
	}
	return nil
}

func isCancelled(comp *ical.Component) bool {
	return strings.EqualFold(propValue(comp, ical.PropStatus), "CANCELLED")
}

func propValue(comp *ical.Component, name string) string {
	if p := comp.Props.Get(name); p != nil {
		return p.Value
	}
	return ""
}

func startKey(t core.EventTime) string {
	if t.DateTime != nil {
		return t.DateTime.UTC().Format(time.RFC3339)
	}
	return t.Date
}
