package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Window is an inclusive range of minutes since midnight
type Window struct {
	Start int
	End   int
}

// Contains reports whether minute falls inside the window widened by tolerance
func (w Window) Contains(minute int, tolerance time.Duration) bool {
	tol := int(tolerance / time.Minute)
	return minute >= w.Start-tol && minute <= w.End+tol
}

var (
	clockPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*([ap])?\.?m?\.?$`)

	dayParts = map[string]Window{
		"morning":     {Start: 6 * 60, End: 12 * 60},
		"noon":        {Start: 12 * 60, End: 12 * 60},
		"afternoon":   {Start: 12 * 60, End: 17 * 60},
		"evening":     {Start: 17 * 60, End: 22 * 60},
		"tonight":     {Start: 17 * 60, End: 22 * 60},
		"בוקר":        {Start: 6 * 60, End: 12 * 60},
		"צהריים":      {Start: 12 * 60, End: 14 * 60},
		"אחר הצהריים": {Start: 12 * 60, End: 17 * 60},
		`אחה"צ`:       {Start: 12 * 60, End: 17 * 60},
		"ערב":         {Start: 17 * 60, End: 22 * 60},
	}
)

// ParseClock interprets a time token as one or more minute-of-day windows.
// A bare hour from 1 to 11 without am/pm is ambiguous and yields both the
// morning and the afternoon reading. Unknown tokens yield nil.
func ParseClock(token string) []Window {
	token = normalize(token)
	if token == "" {
		return nil
	}

	if w, ok := dayParts[token]; ok {
		return []Window{w}
	}

	m := clockPattern.FindStringSubmatch(token)
	if m == nil {
		return nil
	}
	// "3m" is not a time
	if m[3] == "" && strings.HasSuffix(token, "m") {
		return nil
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour > 23 || minute > 59 {
		return nil
	}

	switch m[3] {
	case "a":
		if hour < 1 || hour > 12 {
			return nil
		}
		if hour == 12 {
			hour = 0
		}
		return exact(hour, minute)
	case "p":
		if hour < 1 || hour > 12 {
			return nil
		}
		if hour != 12 {
			hour += 12
		}
		return exact(hour, minute)
	}

	if m[2] == "" && hour >= 1 && hour <= 11 {
		return append(exact(hour, minute), exact(hour+12, minute)...)
	}
	return exact(hour, minute)
}

// ParseDateTime reads the "YYYY-MM-DD HH:MM" form the oracle returns. The
// time part is optional; hasClock reports whether it was present.
func ParseDateTime(s string, loc *time.Location) (t time.Time, hasClock bool, ok bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
			return parsed, true, true
		}
	}
	if len(s) >= 10 {
		if parsed, err := time.ParseInLocation("2006-01-02", s[:10], loc); err == nil {
			return parsed, false, true
		}
	}
	return time.Time{}, false, false
}

// MatchesAny reports whether minute lies in any window of any token, and
// whether at least one token was comparable at all.
func MatchesAny(tokens []string, minute int, tolerance time.Duration) (matched bool, comparable bool) {
	for _, token := range tokens {
		windows := ParseClock(token)
		if len(windows) == 0 {
			continue
		}
		comparable = true
		for _, w := range windows {
			if w.Contains(minute, tolerance) {
				return true, true
			}
		}
	}
	return false, comparable
}

func exact(hour, minute int) []Window {
	m := hour*60 + minute
	return []Window{{Start: m, End: m}}
}
