package calendar

import (
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
)

func daySet(days []core.Day) map[core.Day]bool {
	set := make(map[core.Day]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}

// span returns midnight of the earliest day and midnight after the latest day
func span(days []core.Day, loc *time.Location) (time.Time, time.Time) {
	first, last := days[0], days[0]
	for _, d := range days[1:] {
		if d.Before(first) {
			first = d
		}
		if last.Before(d) {
			last = d
		}
	}
	return first.Time(loc), last.AddDays(1).Time(loc)
}

// FilterDays keeps events whose start falls on one of days in loc
func FilterDays(events []core.CalendarEvent, days []core.Day, loc *time.Location) []core.CalendarEvent {
	wanted := daySet(days)
	out := make([]core.CalendarEvent, 0, len(events))
	for _, e := range events {
		if d, ok := e.Start.Day(loc); ok && wanted[d] {
			out = append(out, e)
		}
	}
	return out
}
