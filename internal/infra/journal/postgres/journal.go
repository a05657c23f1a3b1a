// Package postgres persists the run journal in Postgres using the same row
// layout as the SQLite driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/namrataroy/kderp/internal/journal/core"
)

var _ core.Journal = (*Journal)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/kderp?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Journal stores run records in typed Postgres tables, one row per record.
type Journal struct {
	db *sql.DB
}

// New opens a Postgres-backed journal with the provided DSN (falls back to
// defaultDSN), pings the server, and ensures the schema exists.
func New(ctx context.Context, dsn string) (*Journal, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS run_entries (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		state TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		cal_file TEXT NOT NULL DEFAULT '',
		elapsed_ns BIGINT NOT NULL,
		at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create run_entries table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS run_summaries (
		run_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started TEXT NOT NULL,
		elapsed_ns BIGINT NOT NULL,
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
		`INSERT INTO run_entries(run_id,seq,state,reason,cal_file,elapsed_ns,at) VALUES($1,$2,$3,$4,$5,$6,$7)`,
		e.RunID, e.Seq, e.State, e.Reason, e.CalFile, e.Elapsed.Nanoseconds(), e.At.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (j *Journal) RecordSummary(ctx context.Context, s core.Summary) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO run_summaries(run_id,mode,started,elapsed_ns,attempted,corrected,skipped,failed)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT(run_id) DO UPDATE SET mode=EXCLUDED.mode, started=EXCLUDED.started,
		elapsed_ns=EXCLUDED.elapsed_ns, attempted=EXCLUDED.attempted, corrected=EXCLUDED.corrected,
		skipped=EXCLUDED.skipped, failed=EXCLUDED.failed`,
		s.RunID, s.Mode, s.Started.UTC().Format(time.RFC3339Nano), s.Elapsed.Nanoseconds(),
		s.Attempted, s.Corrected, s.Skipped, s.Failed)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (j *Journal) Entries(ctx context.Context, runID string) ([]core.Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, seq, state, reason, cal_file, elapsed_ns, at FROM run_entries WHERE run_id = $1 ORDER BY id`,
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

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
