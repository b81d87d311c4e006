// Package report publishes audit reports to terminals and files.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/ports"
	"github.com/mikey/meeting-auditor/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CLIReporter prints a human readable audit summary
type CLIReporter struct {
	out     io.Writer
	logger  *zap.Logger
	tp      *utils.TextProcessor
	verbose bool
}

var _ ports.ReportSink = (*CLIReporter)(nil)

// NewCLIReporter creates a new CLI reporter
func NewCLIReporter(out io.Writer, logger *zap.Logger, verbose bool) *CLIReporter {
	return &CLIReporter{
		out:     out,
		logger:  logger,
		tp:      utils.NewTextProcessor(logger),
		verbose: verbose,
	}
}

// Publish writes the report summary, and every record when verbose
func (r *CLIReporter) Publish(_ context.Context, report *core.AuditReport) error {
	r.logger.Debug("Printing audit report", zap.String("run_id", report.RunID))

	var b strings.Builder
	title := cases.Title(language.English)
	summary := report.Summary

	fmt.Fprintf(&b, "\n=== Audit Summary ===\n")
	fmt.Fprintf(&b, "Run: %s\n", report.RunID)
	fmt.Fprintf(&b, "Days checked: %s\n", joinDays(report.Days))
	fmt.Fprintf(&b, "Candidates: %d\n", summary.Candidates)
	for _, status := range core.Statuses {
		fmt.Fprintf(&b, "%s: %d\n", title.String(string(status)), summary.Counts[status])
	}
	fmt.Fprintf(&b, "Processing time: %v\n", report.FinishedAt.Sub(report.StartedAt))

	writeExcerpts(&b, "Conflicts", summary.Conflicts)
	writeExcerpts(&b, "Missing from calendar", summary.Missing)

	if r.verbose {
		candidates := make(map[string]core.Candidate, len(report.Candidates))
		for _, c := range report.Candidates {
			candidates[c.ID] = c
		}

		fmt.Fprintf(&b, "\n=== Records ===\n")
		for _, rec := range report.Records {
			c := candidates[rec.CandidateID]
			fmt.Fprintf(&b, "[%s] %s: %q (%s)\n",
				rec.Status, c.SenderName, r.tp.Excerpt(c.RawText, 80), rec.Detail)
		}
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

func writeExcerpts(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n=== %s ===\n", title)
	for _, line := range lines {
		fmt.Fprintf(b, "- %s\n", line)
	}
}

func joinDays(days []core.Day) string {
	if len(days) == 0 {
		return "none"
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}
