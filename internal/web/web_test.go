package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/stockboard/internal/auth"
	"github.com/erazemk/stockboard/internal/backend"
	"github.com/erazemk/stockboard/internal/db"
	"github.com/erazemk/stockboard/internal/model"
	"github.com/erazemk/stockboard/internal/session"
	"github.com/erazemk/stockboard/internal/store"
	"github.com/erazemk/stockboard/internal/view"
)

const testCookieSecret = "test-secret"

// fakeBackend is an in-memory inventory API. It has no profile endpoint and
// no bulk inventory listing, like the oldest backend revisions.
type fakeBackend struct {
	mu       sync.Mutex
	token    string
	products []model.Product
	stock    map[int64]int
	nextID   int64

	// recordsDenied rejects per-product stock lookups as unauthenticated.
	recordsDenied bool
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			ok := r.Header.Get("Authorization") == "Bearer "+f.token
			f.mu.Unlock()
			if !ok {
				reply(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("username") != "a@b.com" || r.FormValue("password") != "secret-pass" {
			reply(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
			return
		}
		reply(w, http.StatusOK, map[string]string{"access_token": "abc", "email": "a@b.com"})
	})
	mux.HandleFunc("GET /products", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		reply(w, http.StatusOK, f.products)
	}))
	mux.HandleFunc("POST /products", authed(func(w http.ResponseWriter, r *http.Request) {
		var p model.Product
		json.NewDecoder(r.Body).Decode(&p)
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, existing := range f.products {
			if existing.SKU == p.SKU {
				reply(w, http.StatusBadRequest, map[string]string{"detail": "SKU already exists"})
				return
			}
		}
		f.nextID++
		p.ID = f.nextID
		f.products = append(f.products, p)
		reply(w, http.StatusCreated, p)
	}))
	mux.HandleFunc("GET /products/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range f.products {
			if p.ID == id {
				reply(w, http.StatusOK, p)
				return
			}
		}
		reply(w, http.StatusNotFound, map[string]string{"detail": "Product not found"})
	}))
	mux.HandleFunc("GET /inventory/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		q, ok := f.stock[id]
		denied := f.recordsDenied
		f.mu.Unlock()
		if denied {
			reply(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		if !ok {
			reply(w, http.StatusNotFound, map[string]string{"detail": "Not found"})
			return
		}
		reply(w, http.StatusOK, model.InventoryRecord{ProductID: id, Quantity: q})
	}))
	mux.HandleFunc("POST /inventory/{$}", authed(func(w http.ResponseWriter, r *http.Request) {
		var rec model.InventoryRecord
		json.NewDecoder(r.Body).Decode(&rec)
		f.mu.Lock()
		f.stock[rec.ProductID] = rec.Quantity
		f.mu.Unlock()
		reply(w, http.StatusOK, rec)
	}))
	mux.HandleFunc("PATCH /inventory/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		var body struct {
			Quantity int `json:"quantity"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.stock[id] += body.Quantity
		q := f.stock[id]
		f.mu.Unlock()
		reply(w, http.StatusOK, model.InventoryRecord{ProductID: id, Quantity: q})
	}))
	return mux
}

func (f *fakeBackend) revokeToken() {
	f.mu.Lock()
	f.token = "rotated"
	f.mu.Unlock()
}

type testEnv struct {
	server   *httptest.Server
	client   *http.Client
	sessions *session.Manager
	views    *view.Registry
	fake     *fakeBackend
	web      *Server
}

func setupTestEnv(t *testing.T, initSessions bool) *testEnv {
	t.Helper()

	fake := &fakeBackend{token: "abc", stock: map[int64]int{}}
	api := httptest.NewServer(fake.handler())
	t.Cleanup(api.Close)

	client, err := backend.New(backend.Options{BaseURL: api.URL})
	require.NoError(t, err)

	database := db.NewTestDB(t)
	sessions, err := session.NewManager(context.Background(), database)
	require.NoError(t, err)
	if initSessions {
		require.NoError(t, sessions.Init(context.Background(), time.Hour))
	}

	views := view.NewRegistry()
	s, err := NewServer(database, client, sessions, views, testCookieSecret, Options{LowStockThreshold: 10, PageSize: 100, LoginRate: 100})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	browser := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{server: srv, client: browser, sessions: sessions, views: views, fake: fake, web: s}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp, _ := e.post(t, "/login", url.Values{"email": {"a@b.com"}, "password": {"secret-pass"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

// session returns the server-side session of the test browser.
func (e *testEnv) session(t *testing.T) *session.Session {
	t.Helper()
	u, _ := url.Parse(e.server.URL)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == auth.SessionCookie {
			id, err := auth.ParseSessionToken(testCookieSecret, c.Value)
			require.NoError(t, err)
			return e.sessions.Session(context.Background(), id)
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestDecide(t *testing.T) {
	assert.Equal(t, decideWait, decide(session.Loading))
	assert.Equal(t, decideLogin, decide(session.Unauthenticated))
	assert.Equal(t, decideAllow, decide(session.Authenticated))
}

func TestGuardRedirectsToLogin(t *testing.T) {
	env := setupTestEnv(t, true)

	for _, path := range []string{"/", "/dashboard", "/products", "/products/1", "/inventory"} {
		resp, body := env.get(t, path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
		assert.NotContains(t, body, "Products", path)
	}
}

func TestGuardShowsPlaceholderWhileLoading(t *testing.T) {
	env := setupTestEnv(t, false)

	resp, body := env.get(t, "/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "Checking session")
	assert.Contains(t, body, `http-equiv="refresh"`)
}

func TestLoginScenario(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)

	sess := env.session(t)
	assert.Equal(t, session.Authenticated, sess.State())
	assert.True(t, sess.IsAuthenticated(context.Background()))
	assert.Equal(t, "abc", sess.Token())
	assert.Equal(t, "a@b.com", sess.Profile().Identity().Email)
	assert.Equal(t, model.ProfileInferred, sess.Profile().Kind(), "fake backend has no profile endpoint")

	resp, body := env.get(t, "/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "a@b.com")

	// Logged in browsers skip the login page.
	resp, _ = env.get(t, "/login")
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestLoginBadCredentials(t *testing.T) {
	env := setupTestEnv(t, true)

	resp, body := env.post(t, "/login", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Incorrect email or password.")
	assert.Equal(t, session.Unauthenticated, env.session(t).State())
}

func TestLoginThrottled(t *testing.T) {
	env := setupTestEnv(t, true)
	env.web.limiter.SetBurst(0)

	resp, body := env.post(t, "/login", url.Values{"email": {"a@b.com"}, "password": {"secret-pass"}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "Too many attempts")
}

func TestLogout(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)

	resp, _ := env.post(t, "/logout", nil)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.False(t, env.session(t).IsAuthenticated(context.Background()))

	resp, _ = env.get(t, "/products")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func createProduct(t *testing.T, env *testEnv, name, sku, price string) (*http.Response, string) {
	t.Helper()
	return env.post(t, "/products", url.Values{"name": {name}, "sku": {sku}, "price": {price}})
}

func TestCreateProductAndSearch(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)

	resp, _ := createProduct(t, env, "Laptop", "lap-1", "999.90")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	createProduct(t, env, "Mouse", "ms-1", "19.90")
	createProduct(t, env, "Docking station", "dock-lap", "150")

	_, body := env.get(t, "/products")
	assert.Contains(t, body, `Product &#34;Docking station&#34; created.`)
	assert.Contains(t, body, "LAP-1")

	_, body = env.get(t, "/products?q=LAP")
	assert.Contains(t, body, "Laptop")
	assert.Contains(t, body, "DOCK-LAP")
	assert.NotContains(t, body, "MS-1")

	activity, err := store.ListActivity(context.Background(), env.web.DB, 10)
	require.NoError(t, err)
	assert.Len(t, activity, 3)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)

	createProduct(t, env, "Laptop", "LAP-1", "999")
	env.get(t, "/products")

	resp, body := createProduct(t, env, "Other laptop", "lap-1", "5")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "SKU already exists")
	assert.Contains(t, body, `value="Other laptop"`, "form keeps the typed values")

	ws := env.views.Get(env.session(t).ID())
	assert.Equal(t, 1, ws.Products.Len())
}

func TestCreateProductValidation(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)

	resp, body := createProduct(t, env, "Laptop", "LAP-1", "-3")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Price must be a number greater than 0.")
}

func TestSecondSubmitRejected(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)

	ws := env.views.Get(env.session(t).ID())
	require.True(t, ws.Products.BeginSubmit())
	defer ws.Products.EndSubmit()

	resp, body := createProduct(t, env, "Laptop", "LAP-1", "10")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, view.Busy)
}

func TestAdjustInventoryMessage(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)

	createProduct(t, env, "Widget", "W-1", "2.50")
	resp, _ := env.post(t, "/inventory/set", url.Values{"product_id": {"1"}, "quantity": {"5"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := env.get(t, "/inventory")
	assert.Contains(t, body, "set to 5")

	resp, _ = env.post(t, "/inventory/adjust", url.Values{"product_id": {"1"}, "delta": {"-3"}, "threshold": {"10"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/inventory?threshold=10", resp.Header.Get("Location"))

	_, body = env.get(t, "/inventory?threshold=10")
	assert.Contains(t, body, "5 → 2")
	assert.Contains(t, body, "Low stock")

	ws := env.views.Get(env.session(t).ID())
	assert.Equal(t, 2, ws.Inventory.Quantity(1))
	assert.True(t, ws.Inventory.Fallback())
}

func TestAdjustValidation(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)

	env.post(t, "/inventory/adjust", url.Values{"product_id": {"1"}, "delta": {"0"}})
	_, body := env.get(t, "/inventory")
	assert.Contains(t, body, "Select a product and enter the amount to adjust.")
}

func TestUnauthorizedLogsOut(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)

	env.fake.revokeToken()

	resp, _ := env.get(t, "/products")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	sess := env.session(t)
	assert.Equal(t, session.Unauthenticated, sess.State())
	assert.False(t, sess.IsAuthenticated(context.Background()))
}

func TestUnauthorizedStockLookupLogsOut(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)
	createProduct(t, env, "Widget", "W-1", "2.50")
	createProduct(t, env, "Gadget", "G-1", "4.00")

	env.fake.mu.Lock()
	env.fake.recordsDenied = true
	env.fake.mu.Unlock()

	resp, body := env.get(t, "/inventory")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.NotContains(t, body, "Widget")

	sess := env.session(t)
	assert.Equal(t, session.Unauthenticated, sess.State())
	assert.False(t, sess.IsAuthenticated(context.Background()))
}

func TestCookielessRequestsAreNotCached(t *testing.T) {
	env := setupTestEnv(t, true)

	for range 5 {
		resp, err := http.Get(env.server.URL + "/login")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Cookies())
	}
	assert.Equal(t, 0, env.sessions.Cached())

	// A browser that keeps its cookie gets one cached session.
	env.get(t, "/login")
	env.get(t, "/login")
	assert.Equal(t, 1, env.sessions.Cached())
}

func TestProductDetailWithoutStock(t *testing.T) {
	env := setupTestEnv(t, true)
	env.login(t)

	createProduct(t, env, "Widget", "W-1", "2.50")

	resp, body := env.get(t, "/products/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Widget")
	assert.Contains(t, body, "No inventory record yet.")
	assert.True(t, strings.Contains(body, "No photo."))
}

func TestPriceFormatting(t *testing.T) {
	price := FuncMap()["price"].(func(decimal.Decimal) string)
	assert.Equal(t, "19.50", price(decimal.RequireFromString("19.5")))
}
