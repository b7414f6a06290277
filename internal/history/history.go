// Package history persists build reports in a local SQLite database so past
// builds can be inspected after the fact.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yorickpeterse/wobsite/internal/metrics"
	"github.com/yorickpeterse/wobsite/internal/sitebuild"
)

// Store is a SQLite-backed archive of build reports.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens the history database at path, creating the file, its parent
// directories and the schema as needed. Use ":memory:" for an in-memory
// database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		build_trigger TEXT NOT NULL,
		started_ms INTEGER NOT NULL,
		finished_ms INTEGER NOT NULL,
		files INTEGER NOT NULL,
		jobs INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		errors TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started_ms);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores one finished build report.
func (s *Store) Record(ctx context.Context, report *sitebuild.BuildReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errorsJSON []byte
	if len(report.Errors) > 0 {
		var err error
		errorsJSON, err = json.Marshal(report.Errors)
		if err != nil {
			return fmt.Errorf("marshal errors: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, build_trigger, started_ms, finished_ms, files, jobs, failures, outcome, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, string(report.Trigger), report.Start.UnixMilli(), report.End.UnixMilli(),
		report.Files, report.Jobs, report.Failures, string(report.Outcome), errorsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}

	return nil
}

// List returns stored reports newest first. A limit of 0 returns them all.
func (s *Store) List(ctx context.Context, limit int) ([]sitebuild.BuildReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, build_trigger, started_ms, finished_ms, files, jobs, failures, outcome, errors
		FROM builds ORDER BY started_ms DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	return scanReports(rows)
}

func scanReports(rows *sql.Rows) ([]sitebuild.BuildReport, error) {
	var reports []sitebuild.BuildReport

	for rows.Next() {
		var r sitebuild.BuildReport
		var trigger, outcome string
		var startedMS, finishedMS int64
		var errorsJSON []byte

		err := rows.Scan(&r.ID, &trigger, &startedMS, &finishedMS,
			&r.Files, &r.Jobs, &r.Failures, &outcome, &errorsJSON)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}

		r.Trigger = metrics.Trigger(trigger)
		r.Outcome = metrics.Outcome(outcome)
		r.Start = time.UnixMilli(startedMS).UTC()
		r.End = time.UnixMilli(finishedMS).UTC()

		if len(errorsJSON) > 0 {
			if err := json.Unmarshal(errorsJSON, &r.Errors); err != nil {
				return nil, fmt.Errorf("unmarshal errors: %w", err)
			}
		}

		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return reports, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
