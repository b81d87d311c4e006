package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/di"
	"github.com/mikey/meeting-auditor/internal/engine"
	"github.com/mikey/meeting-auditor/internal/metrics"
	"github.com/mikey/meeting-auditor/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseAuditFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	// Build the dependency injection container
	container, err := di.BuildContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	service *engine.AuditService,
	source ports.MessageSource,
	sink ports.ReportSink,
	llmClient core.LLMClient,
	m *metrics.Metrics,
	cleanup *di.Cleanup,
) error {
	defer logger.Sync() //nolint:errcheck
	defer cleanup.Run()

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close LLM client", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := service.Audit(ctx, source, sink); err != nil {
		return err
	}

	if path := cfg.GetString("metrics.textfile"); path != "" {
		if err := m.WriteTextfile(path); err != nil {
			logger.Warn("Failed to write metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}
