package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/stockboard/internal/auth"
	"github.com/erazemk/stockboard/internal/store"
)

// Storage keys.
const (
	KeyToken       = "access_token"
	KeyLegacyToken = "token"
	KeyUser        = "user"
)

// Storage is the persistent key/value storage of one browser session.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// sqlStorage keeps a session's values in the session_values table, sealed
// with the install's key.
type sqlStorage struct {
	db        *sql.DB
	sessionID string
	key       *[32]byte
}

func (s *sqlStorage) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := store.GetSessionValue(ctx, s.db, s.sessionID, key)
	if err != nil || !ok {
		return "", false, err
	}
	value, err := auth.Open(s.key, sealed)
	if err != nil {
		return "", false, fmt.Errorf("opening %q: %w", key, err)
	}
	return value, true, nil
}

func (s *sqlStorage) Set(ctx context.Context, key, value string) error {
	sealed, err := auth.Seal(s.key, value)
	if err != nil {
		return fmt.Errorf("sealing %q: %w", key, err)
	}
	return store.SetSessionValue(ctx, s.db, s.sessionID, key, sealed)
}

func (s *sqlStorage) Delete(ctx context.Context, keys ...string) error {
	return store.DeleteSessionValues(ctx, s.db, s.sessionID, keys...)
}
