package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026052101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS feedback_events (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	user_id TEXT,
	session_id TEXT,
	query TEXT NOT NULL DEFAULT '',
	is_helpful BOOLEAN NOT NULL,
	relevance_score SMALLINT,
	comment TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_events_document_id ON feedback_events(document_id);

CREATE TABLE IF NOT EXISTS feedback_aggregates (
	document_id TEXT PRIMARY KEY,
	total_likes INTEGER NOT NULL DEFAULT 0,
	total_dislikes INTEGER NOT NULL DEFAULT 0,
	total_feedback_count INTEGER NOT NULL DEFAULT 0,
	like_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_relevance_score DOUBLE PRECISION,
	should_exclude BOOLEAN NOT NULL DEFAULT FALSE,
	exclusion_threshold DOUBLE PRECISION NOT NULL DEFAULT 0.3,
	threshold_override DOUBLE PRECISION,
	last_updated TIMESTAMPTZ NOT NULL
);

ALTER TABLE feedback_aggregates ADD COLUMN IF NOT EXISTS threshold_override DOUBLE PRECISION;

CREATE INDEX IF NOT EXISTS idx_feedback_aggregates_excluded
	ON feedback_aggregates(document_id) WHERE should_exclude;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
