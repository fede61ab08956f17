package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/stockboard/internal/auth"
	"github.com/erazemk/stockboard/internal/backend"
	"github.com/erazemk/stockboard/internal/db"
	"github.com/erazemk/stockboard/internal/model"
	"github.com/erazemk/stockboard/internal/session"
)

const testCookieSecret = "test-secret"

func setupTestServer(t *testing.T, apiUp bool) (*httptest.Server, *session.Manager) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !apiUp {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(upstream.Close)

	client, err := backend.New(backend.Options{BaseURL: upstream.URL})
	require.NoError(t, err)

	database := db.NewTestDB(t)
	sessions, err := session.NewManager(context.Background(), database)
	require.NoError(t, err)
	require.NoError(t, sessions.Init(context.Background(), time.Hour))

	server := httptest.NewServer(NewRouter(client, sessions, testCookieSecret))
	t.Cleanup(server.Close)
	return server, sessions
}

func TestHealth(t *testing.T) {
	server, _ := setupTestServer(t, true)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "up", body.API)
	assert.True(t, body.SessionsReady)
}

func TestHealthAPIDown(t *testing.T) {
	server, _ := setupTestServer(t, false)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "down", body.API)
}

func sessionRequest(t *testing.T, server *httptest.Server, cookie string) sessionResponse {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/session", nil)
	require.NoError(t, err)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: cookie})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSessionEndpoint(t *testing.T) {
	server, sessions := setupTestServer(t, true)
	ctx := context.Background()

	assert.Equal(t, "unauthenticated", sessionRequest(t, server, "").State)

	cookie, err := auth.IssueSessionToken(testCookieSecret, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "unauthenticated", sessionRequest(t, server, cookie).State)

	profile := model.InferredProfile{User: model.Identity{Email: "a@b.com"}, Source: "login form"}
	require.NoError(t, sessions.Session(ctx, "sid-1").LoginSuccess(ctx, "abc", profile))

	body := sessionRequest(t, server, cookie)
	assert.Equal(t, "authenticated", body.State)
	assert.Equal(t, "a@b.com", body.Email)
	assert.Equal(t, model.ProfileInferred, body.ProfileKind)
}

func TestSessionEndpointDoesNotCache(t *testing.T) {
	server, sessions := setupTestServer(t, true)

	cookie, err := auth.IssueSessionToken(testCookieSecret, "sid-unknown")
	require.NoError(t, err)

	assert.Equal(t, "unauthenticated", sessionRequest(t, server, cookie).State)
	assert.Equal(t, 0, sessions.Cached())
}

func TestSessionEndpointRejectsForgedCookie(t *testing.T) {
	server, _ := setupTestServer(t, true)

	forged, err := auth.IssueSessionToken("other-secret", "sid-1")
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/session", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: forged})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?q=lap", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "path=\"/products?q=lap\"")
	assert.Contains(t, buf.String(), "status=418")

	buf.Reset()
	h = LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Empty(t, buf.String())
}
