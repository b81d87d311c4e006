package factory

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mikey/meeting-auditor/internal/adapters/history"
	"github.com/mikey/meeting-auditor/internal/adapters/report"
	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/ports"
	"go.uber.org/zap"
)

// ReportFactory creates report sinks based on configuration
type ReportFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
}

// NewReportFactory creates a new report factory writing to stdout
func NewReportFactory(cfg *config.Config, logger *zap.Logger) *ReportFactory {
	return &ReportFactory{
		cfg:    cfg,
		logger: logger,
		out:    os.Stdout,
	}
}

// CreateReportSink creates the output sink, followed by the history store
// when enabled. The returned function closes anything that was opened.
func (f *ReportFactory) CreateReportSink(verbose bool) (ports.ReportSink, func() error, error) {
	out, err := f.createOutput(verbose)
	if err != nil {
		return nil, nil, err
	}
	sinks := ports.MultiSink{out}
	closeFn := func() error { return nil }

	historyCfg := f.cfg.GetHistory()
	if historyCfg.Enabled {
		store, err := f.createHistory(historyCfg)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, store)
		closeFn = store.Close
	}

	return sinks, closeFn, nil
}

func (f *ReportFactory) createOutput(verbose bool) (ports.ReportSink, error) {
	outputCfg := f.cfg.GetOutput()

	switch outputCfg.Format {
	case "", "text":
		return report.NewCLIReporter(f.out, f.logger, verbose), nil
	case "json":
		if outputCfg.Path != "" {
			return report.NewJSONFileWriter(outputCfg.Path), nil
		}
		return report.NewJSONWriter(f.out), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", outputCfg.Format)
	}
}

func (f *ReportFactory) createHistory(historyCfg config.HistoryConfig) (*history.SQLStore, error) {
	switch historyCfg.Type {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(historyCfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return history.NewSQLiteStore(historyCfg.SQLitePath, f.logger)
	case "mysql":
		return history.NewMySQLStore(historyCfg.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported history type: %s", historyCfg.Type)
	}
}
