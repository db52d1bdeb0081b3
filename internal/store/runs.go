package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID         string    `json:"id"`
	PDFPath    string    `json:"pdf_path"`
	JokeMode   string    `json:"joke_mode"`
	Providers  []string  `json:"providers"`
	Status     RunStatus `json:"status"`
	IssueCount int       `json:"issue_count"`
	HasIssues  bool      `json:"has_issues"`
	JokeCount  int       `json:"joke_count"`
	Notified   bool      `json:"notified"`
	ReportPath string    `json:"report_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// RunRepo persists runs.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a RunRepo backed by db.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Record inserts or replaces a run by ID.
func (r *RunRepo) Record(ctx context.Context, run Run) error {
	const query = `
		INSERT INTO runs (id, pdf_path, joke_mode, providers, status, issue_count, has_issues,
			joke_count, notified, report_path, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			issue_count = excluded.issue_count,
			has_issues = excluded.has_issues,
			joke_count = excluded.joke_count,
			notified = excluded.notified,
			report_path = excluded.report_path,
			error = excluded.error,
			finished_at = excluded.finished_at
	`
	providers := run.Providers
	if providers == nil {
		providers = []string{}
	}
	providersJSON, err := json.Marshal(providers)
	if err != nil {
		return fmt.Errorf("marshal providers: %w", err)
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		run.ID, run.PDFPath, run.JokeMode, string(providersJSON), string(run.Status),
		run.IssueCount, boolInt(run.HasIssues), run.JokeCount, boolInt(run.Notified),
		run.ReportPath, run.Error, formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

const selectRuns = `
	SELECT id, pdf_path, joke_mode, providers, status, issue_count, has_issues,
	       joke_count, notified, report_path, error, started_at, finished_at
	FROM runs`

// List returns the most recent runs first. A limit of zero or less returns all.
func (r *RunRepo) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRuns + ` ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Get returns the run with the given ID, or nil when absent.
func (r *RunRepo) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.Reader.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var providersJSON, status, startedAt, finishedAt string
	var hasIssues, notified int

	err := s.Scan(
		&run.ID, &run.PDFPath, &run.JokeMode, &providersJSON, &status, &run.IssueCount,
		&hasIssues, &run.JokeCount, &notified, &run.ReportPath, &run.Error, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.HasIssues = hasIssues != 0
	run.Notified = notified != 0
	if err := json.Unmarshal([]byte(providersJSON), &run.Providers); err != nil {
		return nil, fmt.Errorf("unmarshal providers: %w", err)
	}
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return &run, nil
}

// timeLayout has fixed-width fractions so stored values sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
