package cache

import (
	"encoding/json"
	"fmt"

	"github.com/mikey/meeting-auditor/internal/core"
)

// SQL backends store verdicts as JSON documents

func encodeVerdict(v *core.SemanticVerdict) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode verdict: %w", err)
	}
	return string(data), nil
}

func decodeVerdict(data string) (*core.SemanticVerdict, error) {
	var v core.SemanticVerdict
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("failed to decode cached verdict: %w", err)
	}
	return &v, nil
}
