package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
  id               UUID PRIMARY KEY,
  url              TEXT NOT NULL,
  created_at       TIMESTAMPTZ NOT NULL,
  score            DOUBLE PRECISION NOT NULL,
  total_violations INTEGER NOT NULL,
  details_json     JSONB NOT NULL,
  report_url       TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS users (
  id         UUID PRIMARY KEY,
  name       TEXT NOT NULL,
  email      TEXT NOT NULL UNIQUE,
  avatar     TEXT,
  created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS analysis_failures (
  id         BIGSERIAL PRIMARY KEY,
  url        TEXT NOT NULL,
  kind       TEXT NOT NULL,
  phase      TEXT NOT NULL,
  message    TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_failures_created ON analysis_failures (created_at DESC)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
