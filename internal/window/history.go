package window

import (
	"sync"

	"github.com/mikey/meeting-auditor/internal/core"
)

// History is a bounded per-chat ring buffer of recently seen messages
type History struct {
	mu       sync.RWMutex
	capacity int
	chats    map[string]*ring
}

type ring struct {
	items []core.Message
	next  int
	full  bool
}

// NewHistory creates a history keeping at most capacity messages per chat
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 200
	}
	return &History{
		capacity: capacity,
		chats:    make(map[string]*ring),
	}
}

// Add records messages, evicting the oldest entry of a chat when it is full
func (h *History) Add(msgs ...core.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, msg := range msgs {
		r, ok := h.chats[msg.ChatID]
		if !ok {
			r = &ring{items: make([]core.Message, h.capacity)}
			h.chats[msg.ChatID] = r
		}
		r.items[r.next] = msg
		r.next = (r.next + 1) % h.capacity
		if r.next == 0 {
			r.full = true
		}
	}
}

// Around returns the stored messages of chatID with timestamps in [from, to]
func (h *History) Around(chatID string, from, to int64) []core.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.chats[chatID]
	if !ok {
		return nil
	}

	n := r.next
	if r.full {
		n = h.capacity
	}

	var out []core.Message
	for i := 0; i < n; i++ {
		msg := r.items[i]
		if msg.Timestamp >= from && msg.Timestamp <= to {
			out = append(out, msg)
		}
	}
	return out
}

// Len returns the number of messages stored for chatID
func (h *History) Len(chatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.chats[chatID]
	if !ok {
		return 0
	}
	if r.full {
		return h.capacity
	}
	return r.next
}
