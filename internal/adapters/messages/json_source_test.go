package messages

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIDs []string
		wantErr bool
	}{
		{name: "empty", input: "  \n", wantIDs: []string{}},
		{
			name:    "array",
			input:   `[{"id":"1","chatId":"c","text":"hi"},{"id":"2","chatId":"c","text":"yo"}]`,
			wantIDs: []string{"1", "2"},
		},
		{
			name:    "json lines",
			input:   "{\"id\":\"1\",\"chatId\":\"c\"}\n\n{\"id\":\"2\",\"chatId\":\"c\"}\n",
			wantIDs: []string{"1", "2"},
		},
		{name: "broken array", input: `[{"id":"1"`, wantErr: true},
		{name: "broken line", input: "{\"id\":\"1\"}\nnot json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := Decode(context.Background(), []byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			ids := []string{}
			for _, m := range msgs {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestJSONSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"m1","timestamp":1734343200,"chatId":"chat-1","senderId":"u1","senderName":"Dana","text":"Let's meet tomorrow at 3"},
		{"id":"","chatId":"chat-1","text":"no id"},
		{"id":"m3","chatId":"","text":"no chat"}
	]`), 0o600))

	msgs, err := NewJSONSource(path, zap.NewNop()).Messages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, int64(1734343200), msgs[0].Timestamp)
	assert.Equal(t, "Dana", msgs[0].SenderName)
}

func TestJSONSourceStdin(t *testing.T) {
	src := NewJSONSource("-", zap.NewNop())
	src.stdin = strings.NewReader(`{"id":"m1","chatId":"c"}`)

	msgs, err := src.Messages(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestJSONSourceErrors(t *testing.T) {
	_, err := NewJSONSource("", zap.NewNop()).Messages(context.Background())
	assert.Error(t, err)

	_, err = NewJSONSource(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop()).Messages(context.Background())
	assert.Error(t, err)
}
