package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mikey/meeting-auditor/internal/core"
)

type verdictResponse struct {
	IsValidMeeting bool            `json:"is_valid_meeting"`
	Confidence     json.RawMessage `json:"confidence"`
	DateTime       *string         `json:"date_time"`
	Location       *string         `json:"location"`
	Participants   []string        `json:"participants"`
	MeetingType    *string         `json:"meeting_type"`
	Reasoning      string          `json:"reasoning"`
}

// ParseVerdict reads the first JSON object out of a model response. Any
// failure yields a zero-confidence verdict marked parse_failed.
func ParseVerdict(raw string) core.SemanticVerdict {
	obj, ok := extractJSONObject(stripCodeFence(raw))
	if !ok {
		return parseFailed("no JSON object in oracle response")
	}

	var resp verdictResponse
	if err := json.Unmarshal([]byte(obj), &resp); err != nil {
		return parseFailed(fmt.Sprintf("invalid JSON in oracle response: %v", err))
	}

	confidence, err := parseConfidence(resp.Confidence)
	if err != nil {
		return parseFailed(err.Error())
	}

	return core.SemanticVerdict{
		IsValidMeeting: resp.IsValidMeeting,
		Confidence:     confidence,
		DateTime:       nonEmpty(resp.DateTime),
		Location:       nonEmpty(resp.Location),
		Participants:   resp.Participants,
		MeetingType:    nonEmpty(resp.MeetingType),
		Reasoning:      resp.Reasoning,
		Source:         core.VerdictFromOracle,
	}
}

func parseFailed(reason string) core.SemanticVerdict {
	return core.SemanticVerdict{
		IsValidMeeting: false,
		Confidence:     0,
		Reasoning:      reason,
		Source:         core.VerdictParseFailed,
	}
}

// parseConfidence accepts a number or a numeric string and clamps it to
// [0,100]. Literals beyond float64 range clamp by sign.
func parseConfidence(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	text := string(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = strings.TrimSuffix(strings.TrimSpace(s), "%")
	}

	// ParseFloat returns ±Inf or 0 with ErrRange for out-of-range literals
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("confidence is not a number: %s", raw)
	}
	if math.IsNaN(f) {
		return 0, nil
	}
	return int(math.Round(core.Clamp(f, 0, 100))), nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// drop the opening fence line, including any language tag
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// extractJSONObject returns the first balanced {...} substring, honouring
// braces inside string literals and escapes.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
