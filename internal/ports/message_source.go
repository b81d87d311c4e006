package ports

import (
	"context"

	"github.com/mikey/meeting-auditor/internal/core"
)

// MessageSource supplies the chat messages of one audit run
type MessageSource interface {
	// Messages returns a read-only snapshot of the messages to audit
	Messages(ctx context.Context) ([]core.Message, error)
}
