package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
)

// JSONFileSource reads a JSON array of calendar events, typically an export
// from a calendar API
type JSONFileSource struct {
	path string
	loc  *time.Location
}

var _ core.CalendarSource = (*JSONFileSource)(nil)

// NewJSONFileSource creates a source backed by a JSON file
func NewJSONFileSource(path string, loc *time.Location) *JSONFileSource {
	return &JSONFileSource{path: path, loc: loc}
}

// Events returns the events starting on one of days
func (s *JSONFileSource) Events(_ context.Context, days []core.Day) ([]core.CalendarEvent, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar file: %w", err)
	}

	var events []core.CalendarEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to decode calendar file %s: %w", s.path, err)
	}

	return FilterDays(events, days, s.loc), nil
}
