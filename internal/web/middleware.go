package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/erazemk/stockboard/internal/auth"
	"github.com/erazemk/stockboard/internal/backend"
	"github.com/erazemk/stockboard/internal/session"
)

type webContextKey string

const webSessionKey webContextKey = "session"

// SessionMiddleware attaches the browser's session to the request context,
// issuing a new session cookie when the browser has none or an invalid one.
// Sessions are only cached once the browser returns the cookie.
// The session's bearer token is attached for backend calls.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(auth.SessionCookie); err == nil && cookie.Value != "" {
			if sid, err := auth.ParseSessionToken(s.CookieSecret, cookie.Value); err == nil {
				id = sid
			}
		}

		var sess *session.Session
		if id == "" {
			sess = s.Sessions.Guest()
			token, err := auth.IssueSessionToken(s.CookieSecret, sess.ID())
			if err != nil {
				slog.Error("failed to issue session cookie", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			setSessionCookie(w, token)
		} else {
			sess = s.Sessions.Session(r.Context(), id)
		}

		ctx := context.WithValue(r.Context(), webSessionKey, sess)
		ctx = backend.WithToken(ctx, sess.Token())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(auth.CookieExpiry.Seconds()),
	})
}

// SessionFrom returns the session attached by SessionMiddleware.
func SessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(webSessionKey).(*session.Session)
	return sess
}

// decision is what the guard does with a request.
type decision int

const (
	decideWait decision = iota
	decideLogin
	decideAllow
)

// decide maps a session state to a guard decision.
func decide(state session.State) decision {
	switch state {
	case session.Authenticated:
		return decideAllow
	case session.Unauthenticated:
		return decideLogin
	default:
		return decideWait
	}
}

// RequireAuth guards a page. While the session is still being restored a
// self-refreshing placeholder is served; logged-out browsers are sent to
// /login without rendering the page.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFrom(r.Context())
		if sess == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		state := sess.State()
		// Storage is the source of truth; another instance may have
		// logged this browser out.
		if state == session.Authenticated && !sess.IsAuthenticated(r.Context()) {
			state = sess.CheckAuth(r.Context())
		}

		switch decide(state) {
		case decideAllow:
			next.ServeHTTP(w, r)
		case decideLogin:
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		default:
			w.Header().Set("Cache-Control", "no-store")
			s.Templates.RenderStatus(w, http.StatusServiceUnavailable, "checking.html", &PageData{Title: "Checking session"})
		}
	})
}
