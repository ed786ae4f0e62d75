package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is the subset of pgxpool.Pool the repository needs.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}
