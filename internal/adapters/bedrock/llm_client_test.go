package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRuntime struct {
	body  []byte
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeRuntime) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestCompleteAnthropic(t *testing.T) {
	rt := &fakeRuntime{body: []byte(`{"content":[{"type":"text","text":"{\"is_valid_meeting\":true}"}],"stop_reason":"end_turn"}`)}
	client := NewBedrockClient(rt, "anthropic.claude-3-haiku-20240307-v1:0", 256, 0.1, 0.9, zap.NewNop())

	out, err := client.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"is_valid_meeting":true}`, out)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rt.input.Body, &payload))
	assert.Equal(t, anthropicVersion, payload["anthropic_version"])
	assert.Equal(t, "sys", payload["system"])
	assert.EqualValues(t, 256, payload["max_tokens"])
	messages := payload["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]interface{})["content"])
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", *rt.input.ModelId)
}

func TestCompleteModelFamilies(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		body    string
		want    string
		wantErr bool
	}{
		{
			name:    "titan",
			modelID: "amazon.titan-text-express-v1",
			body:    `{"results":[{"outputText":"{}"}]}`,
			want:    "{}",
		},
		{
			name:    "titan empty",
			modelID: "amazon.titan-text-express-v1",
			body:    `{"results":[]}`,
			wantErr: true,
		},
		{
			name:    "generic output field",
			modelID: "meta.llama3-8b-instruct-v1:0",
			body:    `{"output":"{\"confidence\":10}"}`,
			want:    `{"confidence":10}`,
		},
		{
			name:    "generic raw body",
			modelID: "meta.llama3-8b-instruct-v1:0",
			body:    `{"generation":"x"}`,
			want:    `{"generation":"x"}`,
		},
		{
			name:    "claude without text",
			modelID: "anthropic.claude-3-sonnet",
			body:    `{"content":[]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewBedrockClient(&fakeRuntime{body: []byte(tt.body)}, tt.modelID, 100, 0, 1, zap.NewNop())
			out, err := client.Complete(context.Background(), "sys", "user")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCompleteInvokeError(t *testing.T) {
	client := NewBedrockClient(&fakeRuntime{err: errors.New("throttled")}, "anthropic.claude-3-haiku", 100, 0, 1, zap.NewNop())
	_, err := client.Complete(context.Background(), "sys", "user")
	assert.ErrorContains(t, err, "throttled")
}

// isolateAWS points the AWS credential chain at an empty environment
func isolateAWS(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	for _, key := range []string{
		"AWS_PROFILE",
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
		"AWS_SESSION_TOKEN",
		"AWS_ROLE_ARN",
		"AWS_WEB_IDENTITY_TOKEN_FILE",
		"AWS_CONTAINER_CREDENTIALS_RELATIVE_URI",
		"AWS_CONTAINER_CREDENTIALS_FULL_URI",
	} {
		t.Setenv(key, "")
	}
}

func TestFactory(t *testing.T) {
	t.Run("without credentials", func(t *testing.T) {
		isolateAWS(t)
		cfg := config.NewFromViper(config.NewEmptyViper())

		_, err := NewFactory(cfg, zap.NewNop()).CreateClient()
		assert.ErrorIs(t, err, core.ErrNoCredential)
	})

	t.Run("static credentials from env", func(t *testing.T) {
		isolateAWS(t)
		t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
		cfg := config.NewFromViper(config.NewEmptyViper())

		client, err := NewFactory(cfg, zap.NewNop()).CreateClient()
		require.NoError(t, err)
		assert.Equal(t, cfg.GetBedrock().ModelID, client.ModelName())
	})
}
