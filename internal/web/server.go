package web

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/erazemk/stockboard/internal/backend"
	"github.com/erazemk/stockboard/internal/model"
	"github.com/erazemk/stockboard/internal/session"
	"github.com/erazemk/stockboard/internal/store"
	"github.com/erazemk/stockboard/internal/view"
)

// Options are the tunables of the page server.
type Options struct {
	LowStockThreshold int
	PageSize          int
	// LoginRate is the number of login and registration submissions
	// accepted per minute.
	LoginRate int
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB           *sql.DB
	Templates    *Templates
	Backend      *backend.Client
	Sessions     *session.Manager
	Views        *view.Registry
	CookieSecret string

	LowStockThreshold int
	PageSize          int

	limiter *rate.Limiter
}

// NewServer loads the templates and wires the backend's 401 hook to the
// session in the request context.
func NewServer(db *sql.DB, client *backend.Client, sessions *session.Manager, views *view.Registry, cookieSecret string, opts Options) (*Server, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.LoginRate <= 0 {
		opts.LoginRate = 20
	}

	s := &Server{
		DB:                db,
		Templates:         templates,
		Backend:           client,
		Sessions:          sessions,
		Views:             views,
		CookieSecret:      cookieSecret,
		LowStockThreshold: opts.LowStockThreshold,
		PageSize:          opts.PageSize,
		limiter:           rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.LoginRate)), opts.LoginRate),
	}
	client.OnUnauthorized = s.expireSession
	return s, nil
}

// expireSession logs out the session whose request got a 401 from the
// backend. The handler that made the call redirects to /login.
func (s *Server) expireSession(ctx context.Context) {
	sess := SessionFrom(ctx)
	if sess == nil || sess.State() != session.Authenticated {
		return
	}
	slog.Warn("backend rejected token, logging out", "session", sess.ID())
	if err := sess.Logout(ctx); err != nil {
		slog.Error("failed to clear expired session", "session", sess.ID(), "error", err)
	}
	s.Views.Drop(sess.ID())
}

// pageData builds the base template data for the current session.
func pageData(r *http.Request, title string) PageData {
	pd := PageData{Title: title}
	if sess := SessionFrom(r.Context()); sess != nil {
		if p := sess.Profile(); p != nil {
			user := p.Identity()
			pd.User = &user
			pd.Inferred = p.Kind() == model.ProfileInferred
		}
	}
	return pd
}

// loginRedirected sends the browser to /login when err is a 401. The
// session has already been logged out by then.
func loginRedirected(w http.ResponseWriter, r *http.Request, err error) bool {
	if !backend.IsUnauthorized(err) {
		return false
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}

// record writes an activity entry for the current user. Failures are only
// logged; the change already happened on the backend.
func (s *Server) record(r *http.Request, action string, productID int64, summary string) {
	actor := "unknown"
	if sess := SessionFrom(r.Context()); sess != nil {
		if p := sess.Profile(); p != nil {
			actor = p.Identity().Email
		}
	}

	var pid *int64
	if productID > 0 {
		pid = &productID
	}
	if err := store.RecordActivity(r.Context(), s.DB, actor, action, pid, summary); err != nil {
		slog.Error("failed to record activity", "action", action, "error", err)
	}
}

var errNoSession = errors.New("no session in request")

// workspace returns the view state of the current session.
func (s *Server) workspace(r *http.Request) (*view.Workspace, error) {
	sess := SessionFrom(r.Context())
	if sess == nil {
		return nil, errNoSession
	}
	return s.Views.Get(sess.ID()), nil
}
