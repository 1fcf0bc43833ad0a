package repository

import (
	"context"
	"fmt"
)

// schema holds the DDL applied at startup. Statements are idempotent so the
// service can be restarted against an existing database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT FALSE,
		verification_token_hash TEXT,
		reset_token_hash TEXT,
		reset_token_expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_verification_token
		ON users (verification_token_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_users_reset_token
		ON users (reset_token_hash)`,
	`CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		short_id TEXT NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		visit_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_owner
		ON links (owner_id)`,
}

// Migrate applies the schema. The unique constraints on users.email and
// links.short_id are the safety net every write path relies on.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
