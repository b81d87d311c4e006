// Package window selects the sibling messages handed to the semantic judge
// alongside a candidate.
package window

import (
	"sort"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
)

// Config bounds the context window
type Config struct {
	Span        time.Duration
	MaxMessages int
}

// DefaultConfig returns a ±2h window of at most 6 messages
func DefaultConfig() Config {
	return Config{Span: 2 * time.Hour, MaxMessages: 6}
}

// Builder assembles context windows from the current batch and history
type Builder struct {
	cfg     Config
	history *History
}

// NewBuilder creates a builder. history may be nil.
func NewBuilder(cfg Config, history *History) *Builder {
	def := DefaultConfig()
	if cfg.Span <= 0 {
		cfg.Span = def.Span
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = def.MaxMessages
	}
	return &Builder{cfg: cfg, history: history}
}

// Build returns up to MaxMessages messages from the candidate's chat within
// ±Span of its timestamp, closest first when trimming, sorted ascending.
func (b *Builder) Build(c *core.Candidate, batch []core.Message) []core.Message {
	span := int64(b.cfg.Span / time.Second)
	from, to := c.Timestamp-span, c.Timestamp+span

	seen := map[string]bool{c.SourceMessageID: true}
	var picked []core.Message
	take := func(msg core.Message) {
		if msg.ChatID != c.ChatID || seen[msg.ID] {
			return
		}
		if msg.Timestamp < from || msg.Timestamp > to {
			return
		}
		seen[msg.ID] = true
		picked = append(picked, msg)
	}

	for _, msg := range batch {
		take(msg)
	}
	if b.history != nil {
		for _, msg := range b.history.Around(c.ChatID, from, to) {
			take(msg)
		}
	}

	if len(picked) > b.cfg.MaxMessages {
		sort.SliceStable(picked, func(i, j int) bool {
			di, dj := distance(picked[i].Timestamp, c.Timestamp), distance(picked[j].Timestamp, c.Timestamp)
			if di != dj {
				return di < dj
			}
			return picked[i].Timestamp < picked[j].Timestamp
		})
		picked = picked[:b.cfg.MaxMessages]
	}

	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].Timestamp != picked[j].Timestamp {
			return picked[i].Timestamp < picked[j].Timestamp
		}
		return picked[i].ID < picked[j].ID
	})
	return picked
}

func distance(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
