package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message represents one chat message as delivered by the message source
type Message struct {
	ID         string `json:"id"`
	Timestamp  int64  `json:"timestamp"`
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
}

// Time returns the message timestamp in the given location
func (m Message) Time(loc *time.Location) time.Time {
	return time.Unix(m.Timestamp, 0).In(loc)
}

// Day is a calendar day without a time component
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in its own location
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a "YYYY-MM-DD" string
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Time returns midnight of the day in loc
func (d Day) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the day n days later
func (d Day) AddDays(n int) Day {
	return DayOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// Before reports whether d is strictly earlier than other
func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// IsZero reports whether the day is unset
func (d Day) IsZero() bool {
	return d == Day{}
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON encodes the day as "YYYY-MM-DD"
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string
func (d *Day) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// VerdictSource records which path produced a semantic verdict
type VerdictSource string

const (
	// VerdictFromOracle is a verdict parsed from a real oracle response
	VerdictFromOracle VerdictSource = "oracle"
	// VerdictFallback is the heuristic verdict used when the oracle is disabled or unreachable
	VerdictFallback VerdictSource = "fallback"
	// VerdictParseFailed is the zero-confidence verdict for unparseable oracle output
	VerdictParseFailed VerdictSource = "parse_failed"
)

// SemanticVerdict is the oracle's judgement of a meeting candidate
type SemanticVerdict struct {
	IsValidMeeting bool          `json:"isValidMeeting"`
	Confidence     int           `json:"confidence"`
	DateTime       *string       `json:"dateTime,omitempty"`
	Location       *string       `json:"location,omitempty"`
	Participants   []string      `json:"participants,omitempty"`
	MeetingType    *string       `json:"meetingType,omitempty"`
	Reasoning      string        `json:"reasoning"`
	Source         VerdictSource `json:"source"`
}

// Candidate is a message-derived hypothesis that a meeting was discussed
type Candidate struct {
	ID                  string           `json:"id"`
	SourceMessageID     string           `json:"sourceMessageId"`
	ChatID              string           `json:"chatId"`
	SenderName          string           `json:"senderName"`
	Timestamp           int64            `json:"timestamp"`
	RawText             string           `json:"rawText"`
	Keywords            []string         `json:"keywords"`
	CandidateDateTokens []string         `json:"candidateDateTokens"`
	CandidateTimeTokens []string         `json:"candidateTimeTokens"`
	CandidateNames      []string         `json:"candidateNames"`
	HeuristicConfidence float64          `json:"heuristicConfidence"`
	SemanticVerdict     *SemanticVerdict `json:"semanticVerdict,omitempty"`
	ResolvedDates       []Day            `json:"resolvedDates"`
}

// HasDateOrTime reports whether any date or time signal was extracted
func (c *Candidate) HasDateOrTime() bool {
	return len(c.CandidateDateTokens) > 0 || len(c.CandidateTimeTokens) > 0
}

// OracleVerdict returns the verdict only when it came from a real oracle response
func (c *Candidate) OracleVerdict() *SemanticVerdict {
	if c.SemanticVerdict == nil || c.SemanticVerdict.Source != VerdictFromOracle {
		return nil
	}
	return c.SemanticVerdict
}

// EffectiveConfidence is the oracle confidence scaled to [0,1] when an oracle verdict
// is present, otherwise the heuristic confidence
func (c *Candidate) EffectiveConfidence() float64 {
	if v := c.OracleVerdict(); v != nil {
		return Clamp(float64(v.Confidence)/100, 0, 1)
	}
	return Clamp(c.HeuristicConfidence, 0, 1)
}

// EventTime is either a timed instant or an all-day date
type EventTime struct {
	DateTime *time.Time `json:"dateTime,omitempty"`
	Date     string     `json:"date,omitempty"`
}

// IsZero reports whether neither a date nor a date-time is set
func (t EventTime) IsZero() bool {
	return (t.DateTime == nil || t.DateTime.IsZero()) && t.Date == ""
}

// Day returns the calendar day of the event time in loc
func (t EventTime) Day(loc *time.Location) (Day, bool) {
	if t.DateTime != nil && !t.DateTime.IsZero() {
		return DayOf(t.DateTime.In(loc)), true
	}
	if t.Date != "" {
		d, err := ParseDay(t.Date)
		if err != nil {
			return Day{}, false
		}
		return d, true
	}
	return Day{}, false
}

// Clock returns minutes since midnight in loc, or false for all-day times
func (t EventTime) Clock(loc *time.Location) (int, bool) {
	if t.DateTime == nil || t.DateTime.IsZero() {
		return 0, false
	}
	local := t.DateTime.In(loc)
	return local.Hour()*60 + local.Minute(), true
}

// CalendarEvent is a read-only calendar entry
type CalendarEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// Status is the reconciliation outcome of a candidate
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusConflict  Status = "conflict"
	StatusMissing   Status = "missing"
)

// Statuses lists every status in reporting order
var Statuses = []Status{StatusConfirmed, StatusConflict, StatusMissing}

// AuditRecord is the terminal classification of one candidate
type AuditRecord struct {
	CandidateID     string  `json:"candidateId"`
	SourceMessageID string  `json:"sourceMessageId"`
	ChatID          string  `json:"chatId"`
	MatchedEventID  *string `json:"matchedEventId,omitempty"`
	Status          Status  `json:"status"`
	Detail          string  `json:"detail"`
}

// AuditSummary tallies records and keeps short excerpts for notification
type AuditSummary struct {
	Candidates int            `json:"candidates"`
	Counts     map[Status]int `json:"counts"`
	Conflicts  []string       `json:"conflicts"`
	Missing    []string       `json:"missing"`
}

// AuditReport is the full output of one audit run
type AuditReport struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Days       []Day         `json:"days"`
	Candidates []Candidate   `json:"candidates"`
	Records    []AuditRecord `json:"records"`
	Summary    AuditSummary  `json:"summary"`
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
