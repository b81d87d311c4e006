// Package audit tallies reconciliation records into a run summary.
package audit

import (
	"fmt"
	"math"
	"sort"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/utils"
)

// DefaultDetailLimit is the number of excerpts kept per status
const DefaultDetailLimit = 3

const excerptRunes = 120

var excerpts = utils.NewTextProcessor(nil)

type entry struct {
	timestamp int64
	id        string
	text      string
}

// Aggregate counts records per status and keeps up to limit excerpts for
// conflicts and missing meetings, oldest message first. It does not modify
// its inputs.
func Aggregate(candidates []core.Candidate, records []core.AuditRecord, limit int) core.AuditSummary {
	if limit <= 0 {
		limit = DefaultDetailLimit
	}

	byID := make(map[string]*core.Candidate, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	counts := make(map[core.Status]int, len(core.Statuses))
	for _, s := range core.Statuses {
		counts[s] = 0
	}

	var conflicts, missing []entry
	for _, r := range records {
		counts[r.Status]++

		switch r.Status {
		case core.StatusConflict:
			conflicts = append(conflicts, describe(r, byID[r.CandidateID]))
		case core.StatusMissing:
			missing = append(missing, describe(r, byID[r.CandidateID]))
		}
	}

	return core.AuditSummary{
		Candidates: len(candidates),
		Counts:     counts,
		Conflicts:  top(conflicts, limit),
		Missing:    top(missing, limit),
	}
}

func describe(r core.AuditRecord, c *core.Candidate) entry {
	if c == nil {
		// records without a known candidate sort last
		return entry{timestamp: math.MaxInt64, id: r.CandidateID, text: r.Detail}
	}

	sender := c.SenderName
	if sender == "" {
		sender = "unknown"
	}
	return entry{
		timestamp: c.Timestamp,
		id:        c.ID,
		text:      fmt.Sprintf("%s: %q (%s)", sender, excerpts.Excerpt(c.RawText, excerptRunes), r.Detail),
	}
}

func top(entries []entry, limit int) []string {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].timestamp != entries[j].timestamp {
			return entries[i].timestamp < entries[j].timestamp
		}
		return entries[i].id < entries[j].id
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.text
	}
	return out
}
