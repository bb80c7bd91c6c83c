package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Connect opens a pooled MySQL handle and pings it.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
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
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// schema is applied statement by statement; the driver runs without multiStatements.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
    id CHAR(36) PRIMARY KEY,
    media VARCHAR(16) NOT NULL,
    verdict TEXT NOT NULL,
    confidence DOUBLE NULL,
    summary TEXT NOT NULL,
    indicators_json JSON NOT NULL,
    media_url TEXT NOT NULL,
    file_name VARCHAR(512) NOT NULL DEFAULT '',
    model VARCHAR(128) NOT NULL DEFAULT '',
    duration_ms BIGINT NOT NULL DEFAULT 0,
    created_at DATETIME(3) NOT NULL,
    INDEX idx_analyses_created (created_at),
    INDEX idx_analyses_media_created (media, created_at)
)`,
	`CREATE TABLE IF NOT EXISTS analysis_failures (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    media VARCHAR(16) NOT NULL,
    phase VARCHAR(16) NOT NULL,
    message TEXT NOT NULL,
    raw_content MEDIUMTEXT NULL,
    created_at DATETIME(3) NOT NULL,
    INDEX idx_failures_media_created (media, created_at)
)`,
}

// EnsureSchema creates the history tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
