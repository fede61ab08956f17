// Package session tracks who is logged in for each browser. A Session starts
// in Loading, settles on the first CheckAuth and afterwards only changes
// through LoginSuccess and Logout.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/stockboard/internal/auth"
	"github.com/erazemk/stockboard/internal/model"
)

// State is the authentication state of a session.
type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Session is the login state of one browser. It is safe for concurrent use.
type Session struct {
	id    string
	store Storage
	now   func() time.Time

	mu       sync.Mutex
	state    State
	checked  bool
	token    string
	profile  model.Profile
	lastSeen time.Time
}

// New returns a Loading session backed by store.
func New(id string, store Storage) *Session {
	return &Session{id: id, store: store, now: time.Now, state: Loading}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current state without touching storage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the bearer token, or "" when not authenticated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Profile returns the logged-in user's profile, or nil.
func (s *Session) Profile() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Checked reports whether CheckAuth has run at least once.
func (s *Session) Checked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checked
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) seenBefore(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(t)
}

// CheckAuth loads the token and profile from storage. The session ends up
// Authenticated when both are present and valid and Unauthenticated
// otherwise; it never stays Loading.
func (s *Session) CheckAuth(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checked = true
	token, profile, err := s.load(ctx)
	if err != nil {
		slog.Warn("session not restored", "session", s.id, "error", err)
	}
	if token == "" || profile == nil {
		s.reset()
		return s.state
	}

	s.token = token
	s.profile = profile
	s.state = Authenticated
	return s.state
}

var errExpired = errors.New("stored token has expired")

// load reads the stored credentials. A missing value is not an error.
// Expired tokens are removed from storage.
func (s *Session) load(ctx context.Context) (string, model.Profile, error) {
	token, ok, err := s.store.Get(ctx, KeyToken)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		token, err = s.migrateLegacyToken(ctx)
		if err != nil {
			return "", nil, err
		}
	}
	if token == "" {
		return "", nil, nil
	}

	if auth.TokenExpired(token, s.now()) {
		if err := s.store.Delete(ctx, KeyToken, KeyLegacyToken, KeyUser); err != nil {
			slog.Error("clearing expired session", "session", s.id, "error", err)
		}
		return "", nil, errExpired
	}

	raw, ok, err := s.store.Get(ctx, KeyUser)
	if err != nil || !ok {
		return "", nil, err
	}
	profile, err := decodeProfile(raw)
	if err != nil {
		return "", nil, err
	}
	return token, profile, nil
}

// migrateLegacyToken moves a token stored under the old key to the
// canonical one and returns it.
func (s *Session) migrateLegacyToken(ctx context.Context) (string, error) {
	token, ok, err := s.store.Get(ctx, KeyLegacyToken)
	if err != nil || !ok {
		return "", err
	}
	if err := s.store.Set(ctx, KeyToken, token); err != nil {
		return "", err
	}
	if err := s.store.Delete(ctx, KeyLegacyToken); err != nil {
		return "", err
	}
	slog.Info("migrated legacy session token", "session", s.id)
	return token, nil
}

// LoginSuccess stores the profile and, when non-empty, the token. Storage
// is written before memory so a failed write leaves the session unchanged.
func (s *Session) LoginSuccess(ctx context.Context, token string, profile model.Profile) error {
	if profile == nil {
		return errors.New("login without a profile")
	}
	raw, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != "" {
		if err := s.store.Set(ctx, KeyToken, token); err != nil {
			return err
		}
	}
	if err := s.store.Set(ctx, KeyUser, raw); err != nil {
		return err
	}

	if token != "" {
		s.token = token
	}
	s.profile = profile
	s.checked = true
	if s.token != "" {
		s.state = Authenticated
	}
	slog.Info("login", "session", s.id, "email", profile.Identity().Email, "profile", profile.Kind())
	return nil
}

// Logout removes the stored credentials and resets the session. When
// storage cannot be cleared the session is left as it was.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := ""
	if s.profile != nil {
		email = s.profile.Identity().Email
	}

	if err := s.store.Delete(ctx, KeyToken, KeyLegacyToken, KeyUser); err != nil {
		return err
	}
	s.checked = true
	s.reset()
	slog.Info("logout", "session", s.id, "email", email)
	return nil
}

// IsAuthenticated reports whether storage holds both a token and a profile.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	has := func(keys ...string) bool {
		for _, k := range keys {
			_, ok, err := s.store.Get(ctx, k)
			if err == nil && ok {
				return true
			}
		}
		return false
	}
	return has(KeyToken, KeyLegacyToken) && has(KeyUser)
}

func (s *Session) reset() {
	s.token = ""
	s.profile = nil
	s.state = Unauthenticated
}
