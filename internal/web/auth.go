package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/stockboard/internal/auth"
	"github.com/erazemk/stockboard/internal/backend"
	"github.com/erazemk/stockboard/internal/model"
	"github.com/erazemk/stockboard/internal/session"
	"github.com/erazemk/stockboard/internal/view"
)

const tooManyAttempts = "Too many attempts. Wait a minute and try again."

type authForm struct {
	PageData
	FullName string
	Email    string
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if sess := SessionFrom(r.Context()); sess != nil && sess.State() == session.Authenticated {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	pd := PageData{Title: "Log in"}
	if r.URL.Query().Get("registered") == "1" {
		pd.Success = "Account created. You can now log in."
	}
	s.Templates.Render(w, "login.html", &authForm{PageData: pd})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	fail := func(status int, msg string) {
		s.Templates.RenderStatus(w, status, "login.html", &authForm{
			PageData: PageData{Title: "Log in", Error: msg},
			Email:    email,
		})
	}

	if !s.limiter.Allow() {
		fail(http.StatusTooManyRequests, tooManyAttempts)
		return
	}
	if email == "" || password == "" {
		fail(http.StatusUnprocessableEntity, "Enter your email and password.")
		return
	}

	sess := SessionFrom(r.Context())
	if sess == nil {
		fail(http.StatusInternalServerError, "Could not start a session.")
		return
	}

	tok, err := s.Backend.Auth.Login(r.Context(), email, password)
	if err != nil {
		slog.Warn("login failed", "email", email, "error", err)
		if backend.IsUnauthorized(err) {
			fail(http.StatusUnauthorized, "Incorrect email or password.")
			return
		}
		fail(http.StatusBadGateway, view.Describe(err, "Could not reach the server."))
		return
	}

	profile := s.resolveProfile(r, tok, email)
	if err := sess.LoginSuccess(r.Context(), tok.AccessToken, profile); err != nil {
		slog.Error("failed to store session", "session", sess.ID(), "error", err)
		fail(http.StatusInternalServerError, "Could not save the session.")
		return
	}
	s.Views.Drop(sess.ID())

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// resolveProfile asks the backend for the user behind a fresh token and
// falls back to what can be inferred locally.
func (s *Server) resolveProfile(r *http.Request, tok *backend.TokenResponse, email string) model.Profile {
	ctx := backend.WithToken(r.Context(), tok.AccessToken)
	user, err := s.Backend.Auth.Profile(ctx)
	if err == nil && user.Email != "" {
		return model.BackendProfile{User: *user}
	}
	if err != nil {
		slog.Warn("profile unavailable, inferring from login", "email", email, "error", err)
	}

	details := auth.LoginDetails{ID: tok.ID, Email: tok.Email, FullName: tok.FullName}
	return auth.InferProfile(tok.AccessToken, details, email)
}

// RegisterPage handles GET /register.
func (s *Server) RegisterPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "register.html", &authForm{PageData: PageData{Title: "Create account"}})
}

// RegisterSubmit handles POST /register.
func (s *Server) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	fullName := r.FormValue("full_name")
	email := r.FormValue("email")

	fail := func(status int, msg string) {
		s.Templates.RenderStatus(w, status, "register.html", &authForm{
			PageData: PageData{Title: "Create account", Error: msg},
			FullName: fullName,
			Email:    email,
		})
	}

	if !s.limiter.Allow() {
		fail(http.StatusTooManyRequests, tooManyAttempts)
		return
	}

	reg, err := model.ParseRegistration(fullName, email, r.FormValue("password"), r.FormValue("confirm"))
	if err != nil {
		fail(http.StatusUnprocessableEntity, view.Describe(err, "Check the details."))
		return
	}

	if err := s.Backend.Auth.Register(r.Context(), reg); err != nil {
		slog.Warn("registration failed", "email", reg.Email, "error", err)
		fail(http.StatusBadRequest, view.Describe(err, "Could not create the account. Check the details."))
		return
	}

	slog.Info("account registered", "email", reg.Email)
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := SessionFrom(r.Context()); sess != nil {
		if err := sess.Logout(r.Context()); err != nil {
			slog.Error("failed to clear session", "session", sess.ID(), "error", err)
			http.Error(w, "Could not log out. Try again.", http.StatusInternalServerError)
			return
		}
		s.Views.Drop(sess.ID())
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
