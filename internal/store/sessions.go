package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// GetSessionValue returns the value stored under key for a browser session.
// The second return value is false when the key is not set.
func GetSessionValue(ctx context.Context, db *sql.DB, sessionID, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE session_id = ? AND key = ?`,
		sessionID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting session value %q: %w", key, err)
	}
	return value, true, nil
}

// SetSessionValue stores value under key for a browser session, replacing any
// previous value.
func SetSessionValue(ctx context.Context, db *sql.DB, sessionID, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO session_values (session_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (session_id, key) DO UPDATE
		 SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		sessionID, key, value,
	)
	if err != nil {
		return fmt.Errorf("setting session value %q: %w", key, err)
	}
	return nil
}

// DeleteSessionValues removes the given keys for a browser session.
// Missing keys are ignored.
func DeleteSessionValues(ctx context.Context, db *sql.DB, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, sessionID)
	for _, k := range keys {
		args = append(args, k)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")

	_, err := db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id = ? AND key IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("deleting session values: %w", err)
	}
	return nil
}

// MigrateSessionKey moves every value stored under from to the key to.
// Sessions that already have a value under to keep it.
func MigrateSessionKey(ctx context.Context, db *sql.DB, from, to string) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO session_values (session_id, key, value, updated_at)
		 SELECT session_id, ?, value, updated_at FROM session_values WHERE key = ?`,
		to, from,
	)
	if err != nil {
		return 0, fmt.Errorf("copying %q to %q: %w", from, to, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM session_values WHERE key = ?`, from)
	if err != nil {
		return 0, fmt.Errorf("removing %q: %w", from, err)
	}
	moved, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing key migration: %w", err)
	}
	return moved, nil
}

// DeleteStaleSessions removes all values of sessions not written since before.
func DeleteStaleSessions(ctx context.Context, db *sql.DB, before time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id IN (
		     SELECT session_id FROM session_values
		     GROUP BY session_id HAVING MAX(updated_at) < ?)`,
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting stale sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
