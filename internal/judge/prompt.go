package judge

import (
	"fmt"
	"strings"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/utils"
)

const systemPrompt = `You review chat messages and decide whether they describe a concrete meeting or appointment.
Messages may be informal and mix Hebrew and English.
Respond with a JSON object containing:
- is_valid_meeting: boolean (true only for an actual planned meeting, not a vague idea)
- confidence: integer between 0 and 100
- date_time: string "YYYY-MM-DD HH:MM" (use "YYYY-MM-DD" when no time is known, null when no date is known)
- location: string or null
- participants: array of strings
- meeting_type: string or null (for example "call", "coffee", "appointment")
- reasoning: string (one short sentence)

Resolve relative dates such as "tomorrow" against the time the message was sent.
Respond only with the JSON object and nothing else.`

const promptTimeLayout = "Monday 2006-01-02 15:04"

type promptBuilder struct {
	tp      *utils.TextProcessor
	maxSize int
	loc     *time.Location
}

func newPromptBuilder(tp *utils.TextProcessor, maxSize int, loc *time.Location) *promptBuilder {
	return &promptBuilder{tp: tp, maxSize: maxSize, loc: loc}
}

func (p *promptBuilder) build(c *core.Candidate, window []core.Message) string {
	sent := time.Unix(c.Timestamp, 0).In(p.loc)

	var b strings.Builder
	fmt.Fprintf(&b, "Message sent %s (%s) by %s:\n", sent.Format(promptTimeLayout), p.loc, c.SenderName)
	fmt.Fprintf(&b, "%s\n", p.tp.ProcessText(c.RawText, p.maxSize))

	if len(window) > 0 {
		b.WriteString("\nSurrounding messages in the same chat:\n")
		for _, msg := range window {
			fmt.Fprintf(&b, "[%s] %s: %s\n",
				msg.Time(p.loc).Format("2006-01-02 15:04"),
				msg.SenderName,
				p.tp.Excerpt(msg.Text, 280))
		}
	}

	b.WriteString("\nSignals found by keyword matching:\n")
	fmt.Fprintf(&b, "keywords: %s\n", joinOrNone(c.Keywords))
	fmt.Fprintf(&b, "dates: %s\n", joinOrNone(c.CandidateDateTokens))
	fmt.Fprintf(&b, "times: %s\n", joinOrNone(c.CandidateTimeTokens))
	fmt.Fprintf(&b, "names: %s\n", joinOrNone(c.CandidateNames))

	return p.tp.ProcessText(b.String(), p.maxSize*2)
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
