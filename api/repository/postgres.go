package repository

import (
	"context"
	"fmt"

	"imageClassifier/api/audit"
)

const schema = `
	CREATE TABLE IF NOT EXISTS classifications (
		id           UUID PRIMARY KEY,
		trace_id     TEXT NOT NULL,
		status       TEXT NOT NULL,
		filename     TEXT,
		content_type TEXT,
		size_bytes   BIGINT NOT NULL,
		label        TEXT,
		probability  DOUBLE PRECISION,
		class_id     INTEGER,
		exit_code    INTEGER,
		details      TEXT,
		duration_ms  BIGINT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)
`

// PostgresRepo stores one row per classify request.
type PostgresRepo struct {
	db execer
}

func NewPostgresRepo(db execer) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create classifications table: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Record(ctx context.Context, event *audit.ClassificationEvent) error {
	query := `
		INSERT INTO classifications (id, trace_id, status, filename, content_type, size_bytes,
			label, probability, class_id, exit_code, details, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var probability *float64
	if event.Status == audit.StatusSucceeded {
		probability = &event.Probability
	}

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.TraceID,
		string(event.Status),
		event.Filename,
		event.ContentType,
		event.Size,
		nullIfEmpty(event.Label),
		probability,
		event.ClassID,
		event.ExitCode,
		nullIfEmpty(event.Details),
		event.DurationMs,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert classification: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
