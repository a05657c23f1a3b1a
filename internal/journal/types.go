// Package journal records per-exposure outcomes and batch summaries of
// correction runs. It re-exports the core journal abstractions and provides
// constructors plus an environment-driven factory over the infra drivers.
package journal

import "github.com/namrataroy/kderp/internal/journal/core"

// Driver identifies a concrete journal backend implementation.
type Driver = core.Driver

const (
	DriverMemory   = core.DriverMemory
	DriverSQLite   = core.DriverSQLite
	DriverPostgres = core.DriverPostgres
	DriverNone     = core.DriverNone
)

// Entry is one exposure outcome inside a run.
type Entry = core.Entry

// Summary aggregates one finished run.
type Summary = core.Summary

// Journal stores run records.
type Journal = core.Journal

// Nop discards all records.
type Nop = core.Nop
