package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/meeting-auditor/internal/config"
	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/di"
	"github.com/mikey/meeting-auditor/internal/engine"
	"github.com/mikey/meeting-auditor/internal/ignore"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	logger *zap.Logger,
	flags *di.CLIFlags,
	cfg *config.Config,
	service *engine.AuditService,
	llmClient core.LLMClient,
) error {
	defer logger.Sync() //nolint:errcheck

	text, err := readText(flags, logger)
	if err != nil {
		return err
	}

	loc, err := cfg.GetLocation()
	if err != nil {
		return err
	}

	at := time.Now()
	if flags.Timestamp != "" {
		at, err = time.Parse(time.RFC3339, flags.Timestamp)
		if err != nil {
			return fmt.Errorf("invalid -at value: %w", err)
		}
	}

	msg := core.Message{
		ID:         "cli",
		ChatID:     "cli",
		SenderID:   flags.Sender,
		SenderName: flags.Sender,
		Timestamp:  at.Unix(),
		Text:       text,
	}

	auditCfg := cfg.GetAudit()
	if ignore.NewChecker(auditCfg.IgnoredSenders, auditCfg.IgnoredChats, logger).IsIgnored(msg) {
		fmt.Printf("Sender %q is on the ignore list\n", flags.Sender)
		return nil
	}

	fmt.Printf("\n=== Message ===\n")
	fmt.Printf("From: %s\n", flags.Sender)
	fmt.Printf("Sent: %s\n", msg.Time(loc).Format(time.RFC1123))
	fmt.Printf("Text: %s\n", text)

	model := "heuristic"
	if llmClient != nil {
		model = llmClient.ModelName()
	}

	startTime := time.Now()
	c, kept := service.Inspect(context.Background(), msg, nil)
	duration := time.Since(startTime)

	fmt.Printf("\n=== Signals ===\n")
	if c == nil {
		fmt.Printf("No meeting keywords found\n")
		return nil
	}
	fmt.Printf("Keywords: %s\n", list(c.Keywords))
	fmt.Printf("Dates: %s\n", list(c.CandidateDateTokens))
	fmt.Printf("Times: %s\n", list(c.CandidateTimeTokens))
	fmt.Printf("Names: %s\n", list(c.CandidateNames))
	fmt.Printf("Heuristic confidence: %.2f\n", c.HeuristicConfidence)

	if !kept {
		fmt.Printf("\nCandidate pruned (below min confidence %.2f)\n", cfg.GetFloat64("detection.min_confidence"))
		return nil
	}

	fmt.Printf("\n=== Verdict ===\n")
	if v := c.SemanticVerdict; v != nil {
		fmt.Printf("Valid meeting: %t\n", v.IsValidMeeting)
		fmt.Printf("Confidence: %d\n", v.Confidence)
		fmt.Printf("Source: %s\n", v.Source)
		if v.DateTime != nil {
			fmt.Printf("Date/time: %s\n", *v.DateTime)
		}
		if v.Location != nil {
			fmt.Printf("Location: %s\n", *v.Location)
		}
		if len(v.Participants) > 0 {
			fmt.Printf("Participants: %s\n", strings.Join(v.Participants, ", "))
		}
		fmt.Printf("Reasoning: %s\n", v.Reasoning)
	}

	days := make([]string, len(c.ResolvedDates))
	for i, d := range c.ResolvedDates {
		days[i] = d.String()
	}
	fmt.Printf("Resolved dates: %s\n", list(days))
	fmt.Printf("Model used: %s\n", model)
	fmt.Printf("Processing time: %v\n", duration)

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	return nil
}

func readText(flags *di.CLIFlags, logger *zap.Logger) (string, error) {
	if flags.Text != "" {
		return flags.Text, nil
	}

	var r io.Reader = os.Stdin
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return "", fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		r = file
		logger.Info("Reading message from file", zap.String("file", flags.InputFile))
	} else {
		logger.Info("Reading message from stdin")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func list(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
