package db

import (
	"database/sql"
	"fmt"
)

// schema is the full local database schema. The backend API owns products and
// stock; this database only holds dashboard-side state.
const schema = `
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_values (
    session_id TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (session_id, key)
);

CREATE INDEX IF NOT EXISTS idx_session_values_updated
    ON session_values(updated_at);

CREATE TABLE IF NOT EXISTS activity (
    id         INTEGER PRIMARY KEY,
    actor      TEXT NOT NULL,
    action     TEXT NOT NULL CHECK (action IN (
                   'product_created', 'product_updated', 'product_deleted',
                   'stock_set', 'stock_adjusted', 'photo_uploaded')),
    product_id INTEGER,
    summary    TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS product_photos (
    product_id INTEGER PRIMARY KEY,
    image      BLOB NOT NULL,
    mime       TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
