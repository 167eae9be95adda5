package sqlstore

import "github.com/jmoiron/sqlx"

// schema is valid for both SQLite and PostgreSQL. Timestamps are unix
// seconds; amounts are decimal strings.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    operator_id TEXT NOT NULL,
    operator_name TEXT NOT NULL,
    operator_email TEXT NOT NULL,
    platform_token TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    expires_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    operator_email TEXT NOT NULL,
    kind TEXT NOT NULL,
    user_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    outcome TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entries_created_at ON audit_entries(created_at)`,
}

// runMigrations executes the schema setup.
func runMigrations(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
