package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Connect opens a pooled Postgres handle and pings it.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id UUID PRIMARY KEY,
    media TEXT NOT NULL,
    verdict TEXT NOT NULL,
    confidence DOUBLE PRECISION NULL,
    summary TEXT NOT NULL,
    indicators_json JSONB NOT NULL DEFAULT '[]',
    media_url TEXT NOT NULL DEFAULT '',
    file_name TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    duration_ms BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_media_created ON analyses (media, created_at DESC);

CREATE TABLE IF NOT EXISTS analysis_failures (
    id BIGSERIAL PRIMARY KEY,
    media TEXT NOT NULL,
    phase TEXT NOT NULL,
    message TEXT NOT NULL,
    raw_content TEXT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_failures_media_created ON analysis_failures (media, created_at DESC);
`

// EnsureSchema creates the history tables when they are missing.
// lib/pq runs multi-statement strings in a single Exec.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
