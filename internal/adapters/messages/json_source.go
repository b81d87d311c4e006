// Package messages reads chat exports into core messages.
package messages

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/ports"
	"go.uber.org/zap"
)

// JSONSource reads messages from a JSON array or a JSON-lines file.
// The path "-" reads from stdin.
type JSONSource struct {
	path   string
	stdin  io.Reader
	logger *zap.Logger
}

var _ ports.MessageSource = (*JSONSource)(nil)

// NewJSONSource creates a message source for path
func NewJSONSource(path string, logger *zap.Logger) *JSONSource {
	return &JSONSource{path: path, stdin: os.Stdin, logger: logger}
}

// Messages decodes the file. Messages without an id or chat id are skipped.
func (s *JSONSource) Messages(ctx context.Context) ([]core.Message, error) {
	if s.path == "" {
		return nil, fmt.Errorf("no message source configured")
	}

	var (
		data []byte
		err  error
	)
	if s.path == "-" {
		data, err = io.ReadAll(s.stdin)
	} else {
		data, err = os.ReadFile(s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	msgs, err := Decode(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode messages from %s: %w", s.path, err)
	}

	valid := msgs[:0]
	for _, m := range msgs {
		if m.ID == "" || m.ChatID == "" {
			s.logger.Debug("Skipping message without id", zap.String("chat_id", m.ChatID))
			continue
		}
		valid = append(valid, m)
	}

	s.logger.Info("Loaded messages", zap.Int("count", len(valid)), zap.String("path", s.path))
	return valid, nil
}

// Decode parses either a JSON array of messages or one message per line
func Decode(ctx context.Context, data []byte) ([]core.Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []core.Message{}, nil
	}

	if trimmed[0] == '[' {
		var msgs []core.Message
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, err
		}
		return msgs, nil
	}

	var msgs []core.Message
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var m core.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		msgs = append(msgs, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}
