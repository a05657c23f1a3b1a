package journal

import (
	"context"
	"fmt"
	"os"
)

// Open selects a journal.Journal implementation using environment variables.
//
//	KDERP_JOURNAL_DRIVER: memory|sqlite|postgres|none (default memory)
//	KDERP_JOURNAL_SQLITE_PATH: database file when driver=sqlite
//	KDERP_JOURNAL_POSTGRES_DSN: connection string when driver=postgres
func Open(ctx context.Context) (Journal, error) {
	driver := os.Getenv("KDERP_JOURNAL_DRIVER")
	if driver == "" {
		driver = string(DriverMemory)
	}
	switch Driver(driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(os.Getenv("KDERP_JOURNAL_SQLITE_PATH"))
	case DriverPostgres:
		return NewPostgres(ctx, os.Getenv("KDERP_JOURNAL_POSTGRES_DSN"))
	case DriverNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal driver %s", driver)
	}
}
