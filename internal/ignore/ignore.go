// Package ignore filters out messages from senders and chats that should
// never be audited, such as bots and broadcast channels.
package ignore

import (
	"strings"

	"github.com/mikey/meeting-auditor/internal/core"
	"go.uber.org/zap"
)

// Checker decides whether a message is excluded from the audit
type Checker struct {
	senders map[string]bool
	chats   map[string]bool
	logger  *zap.Logger
}

// NewChecker creates a checker for the given sender and chat ids
func NewChecker(senders, chats []string, logger *zap.Logger) *Checker {
	c := &Checker{
		senders: normalize(senders),
		chats:   normalize(chats),
		logger:  logger,
	}

	if (len(c.senders) > 0 || len(c.chats) > 0) && logger != nil {
		logger.Info("Initialized ignore list",
			zap.Int("senders", len(c.senders)),
			zap.Int("chats", len(c.chats)))
	}
	return c
}

func normalize(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			out[id] = true
		}
	}
	return out
}

// IsIgnored reports whether msg comes from an ignored sender or chat
func (c *Checker) IsIgnored(msg core.Message) bool {
	if c == nil {
		return false
	}

	if c.senders[strings.ToLower(msg.SenderID)] {
		c.debug("Sender is ignored", msg)
		return true
	}
	if c.chats[strings.ToLower(msg.ChatID)] {
		c.debug("Chat is ignored", msg)
		return true
	}
	return false
}

// Filter returns the messages that are not ignored
func (c *Checker) Filter(msgs []core.Message) []core.Message {
	out := make([]core.Message, 0, len(msgs))
	for _, msg := range msgs {
		if !c.IsIgnored(msg) {
			out = append(out, msg)
		}
	}
	return out
}

func (c *Checker) debug(reason string, msg core.Message) {
	if c.logger != nil {
		c.logger.Debug(reason,
			zap.String("sender_id", msg.SenderID),
			zap.String("chat_id", msg.ChatID),
			zap.String("message_id", msg.ID))
	}
}
