// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records build runs and their per-figure outcomes in a
// SQLite database so past runs can be listed and compared.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound reports an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Status values stored for runs and figures.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Run is one build invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	InputDir   string
	OutputDir  string
	Succeeded  int
	Failed     int
	Status     string
}

// Figure is the outcome of one figure within a run.
type Figure struct {
	Name   string
	Source string
	Status string
	Tables int
	Error  string
}

// Ledger manages the run database.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path, creating parent directories and
// the schema as needed.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	l := &Ledger{db: db, now: time.Now}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			input_dir TEXT,
			output_dir TEXT,
			succeeded INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS figures (
			run_id TEXT NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			source TEXT,
			status TEXT NOT NULL,
			tables INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_figures_name ON figures(name)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartRun inserts a running run and returns its ID.
func (l *Ledger) StartRun(ctx context.Context, inputDir, outputDir string) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, input_dir, output_dir, status) VALUES (?, ?, ?, ?, ?)`,
		id, l.now().UTC().Format(time.RFC3339Nano), inputDir, outputDir, StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("starting run: %w", err)
	}
	return id, nil
}

// RecordFigure appends a figure outcome to run.
func (l *Ledger) RecordFigure(ctx context.Context, runID string, f Figure) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO figures (run_id, seq, name, source, status, tables, error)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM figures WHERE run_id = ?), ?, ?, ?, ?, ?)`,
		runID, runID, f.Name, f.Source, f.Status, f.Tables, f.Error,
	)
	if err != nil {
		return fmt.Errorf("recording figure %s: %w", f.Name, err)
	}
	return nil
}

// FinishRun stores the final tally and status of run.
func (l *Ledger) FinishRun(ctx context.Context, runID string, succeeded, failed int, status string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, failed = ?, status = ? WHERE id = ?`,
		l.now().UTC().Format(time.RFC3339Nano), succeeded, failed, status, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Runs returns up to limit runs, newest first. A non-positive limit
// returns all runs.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, ''), COALESCE(input_dir, ''), COALESCE(output_dir, ''),
		        succeeded, failed, status
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.InputDir, &r.OutputDir, &r.Succeeded, &r.Failed, &r.Status); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Figures returns the figure outcomes of run in recording order.
func (l *Ledger) Figures(ctx context.Context, runID string) ([]Figure, error) {
	var exists int
	if err := l.db.QueryRowContext(ctx, `SELECT count(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("looking up run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT name, COALESCE(source, ''), status, tables, COALESCE(error, '')
		 FROM figures WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing figures: %w", err)
	}
	defer rows.Close()

	var figs []Figure
	for rows.Next() {
		var f Figure
		if err := rows.Scan(&f.Name, &f.Source, &f.Status, &f.Tables, &f.Error); err != nil {
			return nil, fmt.Errorf("scanning figure: %w", err)
		}
		figs = append(figs, f)
	}
	return figs, rows.Err()
}
