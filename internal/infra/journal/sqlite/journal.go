// Package sqlite persists the run journal in a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/namrataroy/kderp/internal/journal/core"
)

var _ core.Journal = (*Journal)(nil)

// Journal stores run records in typed SQLite tables, one row per record.
type Journal struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the journal database at path, creating parent
// directories as needed.
func New(path string) (*Journal, error) {
	if path == "" {
		path = "kderp-journal.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS run_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		state TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		cal_file TEXT NOT NULL DEFAULT '',
		elapsed_ns INTEGER NOT NULL,
		at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create run_entries table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS run_summaries (
		run_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started TEXT NOT NULL,
		elapsed_ns INTEGER NOT NULL,
		attempted INTEGER NOT NULL,
		corrected INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		failed INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create run_summaries table: %w", err)
	}
	return nil
}

func (j *Journal) RecordEntry(ctx context.Context, e core.Entry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO run_entries(run_id,seq,state,reason,cal_file,elapsed_ns,at) VALUES(?,?,?,?,?,?,?)`,
		e.RunID, e.Seq, e.State, e.Reason, e.CalFile, e.Elapsed.Nanoseconds(), e.At.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (j *Journal) RecordSummary(ctx context.Context, s core.Summary) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO run_summaries(run_id,mode,started,elapsed_ns,attempted,corrected,skipped,failed)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(run_id) DO UPDATE SET mode=excluded.mode, started=excluded.started,
		elapsed_ns=excluded.elapsed_ns, attempted=excluded.attempted, corrected=excluded.corrected,
		skipped=excluded.skipped, failed=excluded.failed`,
		s.RunID, s.Mode, s.Started.UTC().Format(time.RFC3339Nano), s.Elapsed.Nanoseconds(),
		s.Attempted, s.Corrected, s.Skipped, s.Failed)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (j *Journal) Entries(ctx context.Context, runID string) ([]core.Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, seq, state, reason, cal_file, elapsed_ns, at FROM run_entries WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Entry
	for rows.Next() {
		var e core.Entry
		var elapsed int64
		var at string
		if err := rows.Scan(&e.RunID, &e.Seq, &e.State, &e.Reason, &e.CalFile, &elapsed, &at); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Elapsed = time.Duration(elapsed)
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse entry time %q: %w", at, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func (j *Journal) Summaries(ctx context.Context) ([]core.Summary, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, mode, started, elapsed_ns, attempted, corrected, skipped, failed FROM run_summaries ORDER BY started, run_id`)
	if err != nil {
		return nil, fmt.Errorf("select summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Summary
	for rows.Next() {
		var s core.Summary
		var elapsed int64
		var started string
		if err := rows.Scan(&s.RunID, &s.Mode, &started, &elapsed, &s.Attempted, &s.Corrected, &s.Skipped, &s.Failed); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Elapsed = time.Duration(elapsed)
		if s.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse summary time %q: %w", started, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

func (j *Journal) Close() error { return j.db.Close() }
