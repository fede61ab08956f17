package api

import (
	"net/http"

	"github.com/erazemk/stockboard/internal/auth"
	"github.com/erazemk/stockboard/internal/backend"
	"github.com/erazemk/stockboard/internal/session"
)

// StatusHandler serves machine-readable status for probes and scripts.
type StatusHandler struct {
	Backend      *backend.Client
	Sessions     *session.Manager
	CookieSecret string
}

type healthResponse struct {
	Status        string `json:"status"`
	SessionsReady bool   `json:"sessions_ready"`
	Sessions      int    `json:"sessions"`
	API           string `json:"api"`
	APIURL        string `json:"api_url"`
}

// Health handles GET /api/health. It answers 503 until sessions are
// restored or while the backend API is unreachable.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		SessionsReady: h.Sessions.Ready(),
		Sessions:      h.Sessions.Cached(),
		API:           "up",
		APIURL:        h.Backend.BaseURL(),
	}
	if !h.Backend.Health(r.Context()) {
		resp.API = "down"
		resp.Status = "degraded"
	}
	if !resp.SessionsReady {
		resp.Status = "starting"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonResponse(w, status, resp)
}

type sessionResponse struct {
	State       string `json:"state"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	ProfileKind string `json:"profile_kind,omitempty"`
}

// Session handles GET /api/session: the login state of the calling
// browser. It reads the session without caching it.
func (h *StatusHandler) Session(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil || cookie.Value == "" {
		jsonResponse(w, http.StatusOK, sessionResponse{State: session.Unauthenticated.String()})
		return
	}

	id, err := auth.ParseSessionToken(h.CookieSecret, cookie.Value)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "invalid session cookie")
		return
	}

	sess := h.Sessions.Lookup(r.Context(), id)
	resp := sessionResponse{State: sess.State().String()}
	if p := sess.Profile(); p != nil && sess.State() == session.Authenticated {
		user := p.Identity()
		resp.Email = user.Email
		resp.FullName = user.FullName
		resp.ProfileKind = p.Kind()
	}
	jsonResponse(w, http.StatusOK, resp)
}
