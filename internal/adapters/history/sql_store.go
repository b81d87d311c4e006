// Package history persists audit reports so that runs can be compared over time.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/meeting-auditor/internal/core"
	"github.com/mikey/meeting-auditor/internal/ports"
	"go.uber.org/zap"
)

// RunSummary is one stored audit run
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Days       []string
	Candidates int
	Counts     map[core.Status]int
}

// SQLStore stores audit runs and records in SQLite or MySQL
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

var _ ports.ReportSink = (*SQLStore)(nil)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS audit_runs (
		run_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		days TEXT NOT NULL,
		candidates INTEGER NOT NULL,
		confirmed INTEGER NOT NULL,
		conflict INTEGER NOT NULL,
		missing INTEGER NOT NULL,
		report TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_records (
		run_id TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		source_message_id TEXT NOT NULL,
		chat_id TEXT NOT NULL,
		status TEXT NOT NULL,
		matched_event_id TEXT,
		detail TEXT NOT NULL,
		PRIMARY KEY (run_id, candidate_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_runs_started_at ON audit_runs(started_at)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS audit_runs (
		run_id VARCHAR(64) PRIMARY KEY,
		started_at BIGINT NOT NULL,
		finished_at BIGINT NOT NULL,
		days TEXT NOT NULL,
		candidates INT NOT NULL,
		confirmed INT NOT NULL,
		conflict INT NOT NULL,
		missing INT NOT NULL,
		report MEDIUMTEXT NOT NULL,
		INDEX idx_audit_runs_started_at (started_at)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_records (
		run_id VARCHAR(64) NOT NULL,
		candidate_id VARCHAR(64) NOT NULL,
		source_message_id VARCHAR(255) NOT NULL,
		chat_id VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL,
		matched_event_id VARCHAR(255),
		detail TEXT NOT NULL,
		PRIMARY KEY (run_id, candidate_id)
	)`,
}

// NewSQLiteStore opens (or creates) a SQLite history database
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newStore(db, "sqlite3", sqliteSchema, logger)
}

// NewMySQLStore connects to a MySQL history database
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}
	return newStore(db, "mysql", mysqlSchema, logger)
}

func newStore(db *sql.DB, driver string, schema []string, logger *zap.Logger) (*SQLStore, error) {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create history schema: %w", err)
		}
	}
	return &SQLStore{db: db, driver: driver, logger: logger}, nil
}

// Publish stores the run and its records in one transaction
func (s *SQLStore) Publish(ctx context.Context, report *core.AuditReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	days := make([]string, len(report.Days))
	for i, d := range report.Days {
		days[i] = d.String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	counts := report.Summary.Counts
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_runs (run_id, started_at, finished_at, days, candidates, confirmed, conflict, missing, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.RunID, report.StartedAt.Unix(), report.FinishedAt.Unix(), strings.Join(days, ","),
		report.Summary.Candidates, counts[core.StatusConfirmed], counts[core.StatusConflict],
		counts[core.StatusMissing], string(data))
	if err != nil {
		return fmt.Errorf("failed to insert audit run: %w", err)
	}

	for _, rec := range report.Records {
		var matched sql.NullString
		if rec.MatchedEventID != nil {
			matched = sql.NullString{String: *rec.MatchedEventID, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO audit_records (run_id, candidate_id, source_message_id, chat_id, status, matched_event_id, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, report.RunID, rec.CandidateID, rec.SourceMessageID, rec.ChatID, string(rec.Status), matched, rec.Detail)
		if err != nil {
			return fmt.Errorf("failed to insert audit record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit run: %w", err)
	}

	s.logger.Debug("Stored audit run",
		zap.String("run_id", report.RunID),
		zap.String("driver", s.driver),
		zap.Int("records", len(report.Records)))
	return nil
}

// Runs returns the most recent runs, newest first
func (s *SQLStore) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, days, candidates, confirmed, conflict, missing
		FROM audit_runs
		ORDER BY started_at DESC, run_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			run                          RunSummary
			started, finished            int64
			days                         string
			confirmed, conflict, missing int
		)
		if err := rows.Scan(&run.RunID, &started, &finished, &days, &run.Candidates, &confirmed, &conflict, &missing); err != nil {
			return nil, fmt.Errorf("failed to scan audit run: %w", err)
		}
		run.StartedAt = time.Unix(started, 0).UTC()
		run.FinishedAt = time.Unix(finished, 0).UTC()
		if days != "" {
			run.Days = strings.Split(days, ",")
		}
		run.Counts = map[core.Status]int{
			core.StatusConfirmed: confirmed,
			core.StatusConflict:  conflict,
			core.StatusMissing:   missing,
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Records returns the stored records of one run ordered by candidate id
func (s *SQLStore) Records(ctx context.Context, runID string) ([]core.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT candidate_id, source_message_id, chat_id, status, matched_event_id, detail
		FROM audit_records
		WHERE run_id = ?
		ORDER BY candidate_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []core.AuditRecord
	for rows.Next() {
		var (
			rec     core.AuditRecord
			status  string
			matched sql.NullString
		)
		if err := rows.Scan(&rec.CandidateID, &rec.SourceMessageID, &rec.ChatID, &status, &matched, &rec.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Status = core.Status(status)
		if matched.Valid {
			id := matched.String
			rec.MatchedEventID = &id
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
