package database

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS fub_leads (
		id               UUID PRIMARY KEY,
		email            TEXT NOT NULL,
		first_name       TEXT NOT NULL DEFAULT '',
		last_name        TEXT NOT NULL DEFAULT '',
		phone            TEXT NOT NULL DEFAULT '',
		message          TEXT NOT NULL DEFAULT '',
		address          TEXT NOT NULL DEFAULT '',
		source           TEXT NOT NULL DEFAULT '',
		inquiry_type     TEXT NOT NULL DEFAULT 'General Inquiry',
		tags             TEXT[] NOT NULL DEFAULT '{}',
		assigned_user_id TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL DEFAULT 'pending',
		retry_count      INT NOT NULL DEFAULT 0,
		last_response    TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fub_leads_status_created
		ON fub_leads (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS fub_oauth_credentials (
		account_id    TEXT PRIMARY KEY,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS fub_tags (
		id         SERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS fub_settings (
		id               INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		source           TEXT NOT NULL DEFAULT '',
		inquiry_type     TEXT NOT NULL DEFAULT 'General Inquiry',
		selected_tags    TEXT[] NOT NULL DEFAULT '{}',
		assigned_user_id TEXT NOT NULL DEFAULT '',
		pixel_id         TEXT NOT NULL DEFAULT ''
	)`,
}

// EnsureSchema creates the tables this service owns. Idempotent, runs
// at startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
