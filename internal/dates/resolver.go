// Package dates turns the raw date and time tokens found in chat text into
// calendar days and minute-of-day windows.
package dates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
)

var numericDate = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{2,4})$`)

var relativeOffsets = map[string]int{
	"today":              0,
	"tomorrow":           1,
	"day after tomorrow": 2,
	"היום":               0,
	"מחר":                1,
	"מחרתיים":            2,
}

var weekdays = map[string]time.Weekday{
	"sunday":     time.Sunday,
	"monday":     time.Monday,
	"tuesday":    time.Tuesday,
	"wednesday":  time.Wednesday,
	"thursday":   time.Thursday,
	"friday":     time.Friday,
	"saturday":   time.Saturday,
	"יום ראשון":  time.Sunday,
	"יום שני":    time.Monday,
	"יום שלישי":  time.Tuesday,
	"יום רביעי":  time.Wednesday,
	"יום חמישי":  time.Thursday,
	"יום שישי":   time.Friday,
	"שבת":        time.Saturday,
}

// Resolver converts date tokens into concrete days relative to a reference time
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a resolver that evaluates reference times in loc
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

// Location returns the resolver's time zone
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve maps each token to a day. Unknown or invalid tokens are dropped.
// The result is sorted and free of duplicates.
func (r *Resolver) Resolve(tokens []string, ref time.Time) []core.Day {
	today := core.DayOf(ref.In(r.loc))

	seen := make(map[core.Day]bool)
	days := []core.Day{}
	for _, token := range tokens {
		day, ok := r.resolveToken(normalize(token), today)
		if !ok || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func (r *Resolver) resolveToken(token string, today core.Day) (core.Day, bool) {
	if offset, ok := relativeOffsets[token]; ok {
		return today.AddDays(offset), true
	}

	if wd, ok := weekdays[token]; ok {
		return NextWeekday(today, wd), true
	}

	if m := numericDate.FindStringSubmatch(token); m != nil {
		return parseNumeric(m[1], m[2], m[3])
	}

	return core.Day{}, false
}

// NextWeekday returns the next occurrence of wd strictly after today
func NextWeekday(today core.Day, wd time.Weekday) core.Day {
	current := today.Time(time.UTC).Weekday()
	delta := (int(wd) - int(current) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return today.AddDays(delta)
}

// parseNumeric reads day/month/year in that order. Two-digit years are
// taken as 20YY; any other year width is rejected.
func parseNumeric(dayStr, monthStr, yearStr string) (core.Day, bool) {
	day, _ := strconv.Atoi(dayStr)
	month, _ := strconv.Atoi(monthStr)
	year, _ := strconv.Atoi(yearStr)

	switch len(yearStr) {
	case 2:
		year += 2000
	case 4:
	default:
		return core.Day{}, false
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return core.Day{}, false
	}

	// time.Date normalises overflow, so 31/02 comes back as March
	t := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return core.Day{}, false
	}
	return core.DayOf(t), true
}

func normalize(token string) string {
	return strings.Join(strings.Fields(strings.ToLower(token)), " ")
}
