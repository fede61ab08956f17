package api

import (
	"net/http"

	"github.com/erazemk/stockboard/internal/backend"
	"github.com/erazemk/stockboard/internal/session"
)

// NewRouter creates the JSON status router.
func NewRouter(client *backend.Client, sessions *session.Manager, cookieSecret string) http.Handler {
	mux := http.NewServeMux()

	status := &StatusHandler{Backend: client, Sessions: sessions, CookieSecret: cookieSecret}

	mux.HandleFunc("GET /api/health", status.Health)
	mux.HandleFunc("GET /api/session", status.Session)

	return mux
}
