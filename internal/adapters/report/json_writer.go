package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/ports"
)

// JSONWriter writes the full report as indented JSON
type JSONWriter struct {
	out  io.Writer
	path string
}

var _ ports.ReportSink = (*JSONWriter)(nil)

// NewJSONWriter writes to out
func NewJSONWriter(out io.Writer) *JSONWriter {
	return &JSONWriter{out: out}
}

// NewJSONFileWriter writes to path, replacing it on every publish
func NewJSONFileWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// Publish encodes the report
func (w *JSONWriter) Publish(_ context.Context, report *core.AuditReport) error {
	out := w.out
	if w.path != "" {
		f, err := os.Create(w.path)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
