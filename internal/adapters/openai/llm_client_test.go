package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T, handler func(req openai.ChatCompletionRequest) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *OpenAIClient {
	t.Helper()
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("openai.api_key", "test-key")
	cfg.Set("openai.base_url", url)
	cfg.Set("openai.model_name", "gpt-test")

	client, err := NewFactory(cfg, zap.NewNop()).CreateClient()
	require.NoError(t, err)
	return client.(*OpenAIClient)
}

func TestComplete(t *testing.T) {
	srv := newServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		assert.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
		assert.Equal(t, "system prompt", req.Messages[0].Content)
		assert.Equal(t, "user prompt", req.Messages[1].Content)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)

		return http.StatusOK, openai.ChatCompletionResponse{
			ID: "cmpl-1",
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: `{"is_valid_meeting":true}`}},
			},
		}
	})

	client := newTestClient(t, srv.URL)
	assert.Equal(t, "gpt-test", client.ModelName())

	out, err := client.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"is_valid_meeting":true}`, out)
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   openai.ChatCompletionResponse{ID: "cmpl-2"},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   map[string]any{"error": map[string]any{"message": "boom", "type": "server_error"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(openai.ChatCompletionRequest) (int, any) {
				return tt.status, tt.body
			})

			_, err := newTestClient(t, srv.URL).Complete(context.Background(), "s", "u")
			assert.Error(t, err)
		})
	}
}

func TestFactoryWithoutKey(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("openai.api_key", "")
	_, err := NewFactory(cfg, zap.NewNop()).CreateClient()
	assert.ErrorIs(t, err, core.ErrNoCredential)
}
