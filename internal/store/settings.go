package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// Secret names kept in the settings table.
const (
	SecretCookie = "cookie_secret"
	SecretSeal   = "seal_key"
)

// GetSecret retrieves a named 32-byte secret (hex encoded) from the database.
// If it does not exist yet, one is generated, stored, and returned.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetSecret(ctx context.Context, db *sql.DB, name string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating %s: %w", name, err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		name, hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", name, err)
	}

	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, name,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", name, err)
	}
	return secret, nil
}

// GetSealKey returns the key used to seal stored bearer tokens.
func GetSealKey(ctx context.Context, db *sql.DB) (*[32]byte, error) {
	secret, err := GetSecret(ctx, db, SecretSeal)
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(secret)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("seal key is corrupt")
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
