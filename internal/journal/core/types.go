// Package core defines core abstractions for run journal backends: the
// records a correction run produces and the storage interface drivers
// implement.
package core

import (
	"context"
	"time"
)

// Driver identifies a concrete journal backend implementation.
type Driver string

const (
	// DriverMemory represents the in-memory implementation (default, tests).
	DriverMemory Driver = "memory"
	// DriverSQLite represents the single-file SQLite implementation.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres represents the Postgres implementation.
	DriverPostgres Driver = "postgres"
	// DriverNone disables journalling.
	DriverNone Driver = "none"
)

// Entry is one exposure outcome inside a run.
type Entry struct {
	RunID   string
	Seq     int
	State   string
	Reason  string
	CalFile string
	Elapsed time.Duration
	At      time.Time
}

// Summary aggregates one finished run. Re-recording a run id replaces the
// previous summary.
type Summary struct {
	RunID     string
	Mode      string
	Started   time.Time
	Elapsed   time.Duration
	Attempted int
	Corrected int
	Skipped   int
	Failed    int
}

// Journal stores run records. Entries keep insertion order within a run;
// Summaries order by start time. Journalling is best effort from the batch
// runner's perspective: it logs and continues when a record call fails.
type Journal interface {
	RecordEntry(ctx context.Context, e Entry) error
	RecordSummary(ctx context.Context, s Summary) error
	Entries(ctx context.Context, runID string) ([]Entry, error)
	Summaries(ctx context.Context) ([]Summary, error)
	Close() error
}

// Nop discards all records.
type Nop struct{}

func (Nop) RecordEntry(context.Context, Entry) error     { return nil }
func (Nop) RecordSummary(context.Context, Summary) error { return nil }
func (Nop) Entries(context.Context, string) ([]Entry, error) {
	return nil, nil
}
func (Nop) Summaries(context.Context) ([]Summary, error) { return nil, nil }
func (Nop) Close() error                                 { return nil }

var _ Journal = Nop{}
