package core

import (
	"context"
	"errors"
	"time"
)

// ErrNoCredential is returned by oracle client factories when the selected
// provider has no credential. The oracle is then treated as disabled.
var ErrNoCredential = errors.New("no oracle credential configured")

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends a system and user prompt and returns the raw model output
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the model used for completions
	ModelName() string
}

// VerdictCache defines the interface for caching oracle verdicts between runs
type VerdictCache interface {
	// Get retrieves a cached verdict
	Get(ctx context.Context, key string) (*SemanticVerdict, error)

	// Set stores a verdict until the ttl elapses
	Set(ctx context.Context, key string, verdict *SemanticVerdict, ttl time.Duration) error

	// Delete removes a cached verdict
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// CalendarSource supplies calendar events for the requested days
type CalendarSource interface {
	Events(ctx context.Context, days []Day) ([]CalendarEvent, error)
}
