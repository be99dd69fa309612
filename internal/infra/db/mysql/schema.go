package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
  id               CHAR(36)     NOT NULL PRIMARY KEY,
  url              VARCHAR(2048) NOT NULL,
  created_at       DATETIME(6)  NOT NULL,
  score            DOUBLE       NOT NULL,
  total_violations INT          NOT NULL,
  details_json     LONGTEXT     NOT NULL,
  report_url       VARCHAR(2048) NULL,
  INDEX idx_analyses_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
  id         CHAR(36)     NOT NULL PRIMARY KEY,
  name       VARCHAR(255) NOT NULL,
  email      VARCHAR(320) NOT NULL UNIQUE,
  avatar     VARCHAR(2048) NULL,
  created_at DATETIME(6)  NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS analysis_failures (
  id         BIGINT AUTO_INCREMENT PRIMARY KEY,
  url        VARCHAR(2048) NOT NULL,
  kind       VARCHAR(64)  NOT NULL,
  phase      VARCHAR(32)  NOT NULL,
  message    TEXT         NOT NULL,
  created_at DATETIME(6)  NOT NULL,
  INDEX idx_failures_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql migrate: %w", err)
		}
	}
	return nil
}
