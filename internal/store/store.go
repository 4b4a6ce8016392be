// Package store indexes completed suite runs in a SQLite database so past
// results can be listed without crawling the results tree. The result.json
// files stay the source of truth; the index is derived and rebuildable.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jtjones1001/nvmeharness/internal/framework"
)

//go:embed schema.sql
var schemaSQL string

// Store is the run-history index.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the database location used by the command line tools:
// runs.db beside the suite run directories.
func DefaultPath(resultsRoot string) (string, error) {
	if resultsRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve results root: %w", err)
		}
		resultsRoot = filepath.Join(home, "nvmeharness", "suites")
	}
	if err := os.MkdirAll(resultsRoot, 0o755); err != nil {
		return "", fmt.Errorf("create results root: %w", err)
	}
	return filepath.Join(resultsRoot, "runs.db"), nil
}

// Open creates or opens the index database at path. The schema is applied
// on every open; Open is idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open run index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to run index: %w", err)
	}

	// SQLite supports a single writer; keep one connection to avoid
	// SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply run index schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun upserts one completed suite run. Rerunning a suite with the
// same run id replaces the previous row, matching the framework's
// destroy-and-recreate behavior for the run directory.
func (s *Store) RecordRun(ctx context.Context, state *framework.SuiteState) error {
	complete := 0
	if state.Complete {
		complete = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, title, result, complete, model, system,
			start_time, duration_sec, directory,
			tests_total, tests_pass, tests_fail, tests_skip,
			verifications_total, verifications_pass, verifications_fail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			title = excluded.title,
			result = excluded.result,
			complete = excluded.complete,
			model = excluded.model,
			system = excluded.system,
			start_time = excluded.start_time,
			duration_sec = excluded.duration_sec,
			directory = excluded.directory,
			tests_total = excluded.tests_total,
			tests_pass = excluded.tests_pass,
			tests_fail = excluded.tests_fail,
			tests_skip = excluded.tests_skip,
			verifications_total = excluded.verifications_total,
			verifications_pass = excluded.verifications_pass,
			verifications_fail = excluded.verifications_fail`,
		state.RunID, state.Title, state.Result, complete, state.Model, state.System,
		state.StartTime, state.DurationSec, state.Directory,
		state.Summary.Tests.Total, state.Summary.Tests.Pass,
		state.Summary.Tests.Fail, state.Summary.Tests.Skip,
		state.Summary.Verifications.Total, state.Summary.Verifications.Pass,
		state.Summary.Verifications.Fail,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Run is one row of the run-history index.
type Run struct {
	RunID              string
	Title              string
	Result             string
	Complete           bool
	Model              string
	System             string
	StartTime          string
	DurationSec        string
	Directory          string
	TestsTotal         int
	TestsPass          int
	TestsFail          int
	TestsSkip          int
	VerificationsTotal int
	VerificationsPass  int
	VerificationsFail  int
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT run_id, title, result, complete, model, system,
			start_time, duration_sec, directory,
			tests_total, tests_pass, tests_fail, tests_skip,
			verifications_total, verifications_pass, verifications_fail
		FROM runs
		ORDER BY start_time DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var complete int
		if err := rows.Scan(
			&r.RunID, &r.Title, &r.Result, &complete, &r.Model, &r.System,
			&r.StartTime, &r.DurationSec, &r.Directory,
			&r.TestsTotal, &r.TestsPass, &r.TestsFail, &r.TestsSkip,
			&r.VerificationsTotal, &r.VerificationsPass, &r.VerificationsFail,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Complete = complete != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
