package window

import (
	"fmt"
	"testing"
	"time"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = int64(1_700_000_000)

func msg(id, chat string, offset time.Duration) core.Message {
	return core.Message{ID: id, ChatID: chat, Timestamp: base + int64(offset/time.Second), Text: "msg " + id}
}

func ids(msgs []core.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestBuild_SameChatWithinSpan(t *testing.T) {
	b := NewBuilder(DefaultConfig(), nil)
	c := &core.Candidate{SourceMessageID: "self", ChatID: "a", Timestamp: base}

	batch := []core.Message{
		msg("late", "a", 90*time.Minute),
		msg("self", "a", 0),
		msg("other-chat", "b", time.Minute),
		msg("early", "a", -2*time.Hour),
		msg("too-early", "a", -2*time.Hour-time.Second),
		msg("too-late", "a", 3*time.Hour),
	}

	assert.Equal(t, []string{"early", "late"}, ids(b.Build(c, batch)))
}

func TestBuild_KeepsClosest(t *testing.T) {
	b := NewBuilder(Config{Span: 2 * time.Hour, MaxMessages: 3}, nil)
	c := &core.Candidate{SourceMessageID: "self", ChatID: "a", Timestamp: base}

	var batch []core.Message
	for i := 1; i <= 5; i++ {
		batch = append(batch, msg(fmt.Sprintf("before-%d", i), "a", -time.Duration(i)*10*time.Minute))
	}
	batch = append(batch, msg("after-1", "a", 5*time.Minute))

	got := b.Build(c, batch)
	assert.Equal(t, []string{"before-2", "before-1", "after-1"}, ids(got))
}

func TestBuild_MergesHistory(t *testing.T) {
	h := NewHistory(10)
	h.Add(msg("h1", "a", -30*time.Minute), msg("dup", "a", -5*time.Minute), msg("h2", "b", 0))

	b := NewBuilder(DefaultConfig(), h)
	c := &core.Candidate{SourceMessageID: "self", ChatID: "a", Timestamp: base}

	got := b.Build(c, []core.Message{msg("dup", "a", -5*time.Minute), msg("n1", "a", time.Minute)})
	assert.Equal(t, []string{"h1", "dup", "n1"}, ids(got))
}

func TestHistory_RingEviction(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(msg(fmt.Sprintf("m%d", i), "a", time.Duration(i)*time.Minute))
	}

	require.Equal(t, 3, h.Len("a"))
	assert.Zero(t, h.Len("missing"))

	got := h.Around("a", base, base+3600)
	assert.ElementsMatch(t, []string{"m2", "m3", "m4"}, ids(got))
}
