package journal

import (
	"context"

	postgresjournal "github.com/namrataroy/kderp/internal/infra/journal/postgres"
)

// NewPostgres opens a Postgres-backed journal ("" uses the driver's default
// DSN).
func NewPostgres(ctx context.Context, dsn string) (Journal, error) {
	return postgresjournal.New(ctx, dsn)
}
