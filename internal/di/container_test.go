package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/engine"
	"github.com/mikey/meeting-auditor/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuditFlags(t *testing.T) {
	flags, err := ParseAuditFlags([]string{"-messages", "chat.json", "-calendar", "cal.ics", "-verbose"})
	require.NoError(t, err)
	assert.Equal(t, "chat.json", flags.MessagesPath)
	assert.Equal(t, "cal.ics", flags.CalendarPath)
	assert.True(t, flags.Verbose)

	_, err = ParseAuditFlags([]string{"-no-such-flag"})
	assert.Error(t, err)
}

func TestApplyAuditFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags AuditFlags
		want  map[string]string
	}{
		{
			name:  "json calendar",
			flags: AuditFlags{CalendarPath: "events.JSON"},
			want:  map[string]string{"calendar.type": "json", "calendar.path": "events.JSON"},
		},
		{
			name:  "url wins over path",
			flags: AuditFlags{CalendarPath: "cal.ics", CalendarURL: "https://example.com/cal.ics"},
			want:  map[string]string{"calendar.type": "ics", "calendar.url": "https://example.com/cal.ics"},
		},
		{
			name:  "output path implies json",
			flags: AuditFlags{OutputPath: "report.json"},
			want:  map[string]string{"output.format": "json", "output.path": "report.json"},
		},
		{
			name:  "verbose",
			flags: AuditFlags{Verbose: true, MetricsFile: "/tmp/m.prom"},
			want:  map[string]string{"logging.level": "debug", "metrics.textfile": "/tmp/m.prom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewFromViper(config.NewEmptyViper())
			applyAuditFlags(cfg, &tt.flags)
			for k, v := range tt.want {
				assert.Equal(t, v, cfg.GetString(k), k)
			}
		})
	}
}

func TestBuildContainer(t *testing.T) {
	dir := t.TempDir()
	messages := filepath.Join(dir, "messages.json")
	calendar := filepath.Join(dir, "events.json")
	cfgPath := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(messages, []byte(`[{"id":"m1","timestamp":1734343200,"chatId":"c","senderName":"Noa","text":"hello"}]`), 0o600))
	require.NoError(t, os.WriteFile(calendar, []byte(`[]`), 0o600))
	require.NoError(t, os.WriteFile(cfgPath, []byte("cache:\n  enabled: false\nlogging:\n  level: error\n"), 0o600))

	flags := &AuditFlags{
		ConfigFile:   cfgPath,
		MessagesPath: messages,
		CalendarPath: calendar,
		OutputFormat: "json",
		OutputPath:   filepath.Join(dir, "report.json"),
	}
	container, err := BuildContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(svc *engine.AuditService, src ports.MessageSource, sink ports.ReportSink, cal core.CalendarSource, cleanup *Cleanup) error {
		defer cleanup.Run()
		assert.NotNil(t, cal)
		report, err := svc.Audit(context.Background(), src, sink)
		if err != nil {
			return err
		}
		assert.Equal(t, 0, report.Summary.Candidates)
		return nil
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "report.json"))
	assert.NoError(t, err)
}

func TestBuildCLIContainer(t *testing.T) {
	flags, err := ParseFlags([]string{"-text", "Let's meet tomorrow at 3", "-timezone", "Asia/Jerusalem"})
	require.NoError(t, err)
	assert.Equal(t, "none", flags.Provider)

	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(svc *engine.AuditService, client core.LLMClient) {
		assert.Nil(t, client)
		c, kept := svc.Inspect(context.Background(), core.Message{ID: "1", ChatID: "cli", Text: flags.Text}, nil)
		require.NotNil(t, c)
		assert.True(t, kept)
	})
	require.NoError(t, err)
}

func TestCleanupRunsInReverse(t *testing.T) {
	var order []int
	c := &Cleanup{}
	c.Add(func() { order = append(order, 1) })
	c.Add(func() { order = append(order, 2) })
	c.Run()
	c.Run()
	assert.Equal(t, []int{2, 1}, order)
}
