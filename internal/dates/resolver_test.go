package dates

import (
	"testing"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) core.Day {
	return core.Day{Year: y, Month: m, Day: d}
}

func TestResolve_Tomorrow(t *testing.T) {
	r := NewResolver(time.UTC)

	// every weekday of one week, including a month boundary
	start := time.Date(2024, 11, 27, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		ref := start.AddDate(0, 0, i)
		expected := core.DayOf(ref.AddDate(0, 0, 1))
		assert.Equal(t, []core.Day{expected}, r.Resolve([]string{"tomorrow"}, ref), ref.Weekday().String())
		assert.Equal(t, []core.Day{expected}, r.Resolve([]string{"מחר"}, ref))
	}
}

func TestResolve_WeekdayNeverToday(t *testing.T) {
	r := NewResolver(time.UTC)
	monday := time.Date(2024, 12, 16, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, []core.Day{day(2024, 12, 23)}, r.Resolve([]string{"monday"}, monday))
	assert.Equal(t, []core.Day{day(2024, 12, 23)}, r.Resolve([]string{"יום שני"}, monday))
	assert.Equal(t, []core.Day{day(2024, 12, 17)}, r.Resolve([]string{"Tuesday"}, monday))
	assert.Equal(t, []core.Day{day(2024, 12, 21)}, r.Resolve([]string{"שבת"}, monday))
	assert.Equal(t, []core.Day{day(2024, 12, 22)}, r.Resolve([]string{"sunday"}, monday))
}

func TestResolve_Numeric(t *testing.T) {
	r := NewResolver(time.UTC)
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		token    string
		expected []core.Day
	}{
		{"15/12/2024", []core.Day{day(2024, 12, 15)}},
		{"15.12.24", []core.Day{day(2024, 12, 15)}},
		{"1-2-2025", []core.Day{day(2025, 2, 1)}},
		{"03/04/2024", []core.Day{day(2024, 4, 3)}},
		{"31/02/2024", []core.Day{}},
		{"12/13/2024", []core.Day{}},
		{"15/12/202", []core.Day{}},
		{"29/02/2024", []core.Day{day(2024, 2, 29)}},
		{"29/02/2023", []core.Day{}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Resolve([]string{tt.token}, ref))
		})
	}
}

func TestResolve_SortedUniqueAndDropsUnknown(t *testing.T) {
	r := NewResolver(time.UTC)
	ref := time.Date(2024, 12, 16, 10, 0, 0, 0, time.UTC)

	got := r.Resolve([]string{"day after tomorrow", "someday", "tomorrow", "17/12/2024", "today", "היום"}, ref)
	assert.Equal(t, []core.Day{day(2024, 12, 16), day(2024, 12, 17), day(2024, 12, 18)}, got)

	assert.Empty(t, r.Resolve(nil, ref))
}

func TestResolve_UsesLocation(t *testing.T) {
	loc := time.FixedZone("IST", 2*60*60)
	r := NewResolver(loc)

	// 23:30 UTC on the 16th is already the 17th in loc
	ref := time.Date(2024, 12, 16, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, []core.Day{day(2024, 12, 17)}, r.Resolve([]string{"today"}, ref))
}
