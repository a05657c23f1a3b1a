package journal

import sqlitejournal "github.com/namrataroy/kderp/internal/infra/journal/sqlite"

// NewSQLite opens a SQLite-backed journal at path ("" uses the driver
// default).
func NewSQLite(path string) (Journal, error) { return sqlitejournal.New(path) }
