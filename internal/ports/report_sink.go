package ports

import (
	"context"

	"github.com/mikey/meeting-auditor/internal/core"
)

// ReportSink receives the result of an audit run
type ReportSink interface {
	// Publish hands the report to the sink
	Publish(ctx context.Context, report *core.AuditReport) error
}

// MultiSink publishes to every sink in order and stops at the first error
type MultiSink []ReportSink

// Publish implements ReportSink
func (m MultiSink) Publish(ctx context.Context, report *core.AuditReport) error {
	for _, sink := range m {
		if err := sink.Publish(ctx, report); err != nil {
			return err
		}
	}
	return nil
}
