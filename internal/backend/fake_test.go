package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/stockboard/internal/model"
)

// fakeAPI is a minimal in-memory stand-in for the backend.
type fakeAPI struct {
	mu        sync.Mutex
	token     string
	products  map[int64]model.Product
	stock     map[int64]int
	nextID    int64
	noBulk    bool
	requests  []string
	lastAuth  string
	lastCType string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{
		token:    "abc",
		products: map[int64]model.Product{},
		stock:    map[int64]int{},
		nextID:   1,
	}
	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	return f, c
}

func (f *fakeAPI) addProduct(name, sku, price string) model.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := model.Product{ID: f.nextID, Name: name, SKU: sku, Price: decimal.RequireFromString(price)}
	f.products[p.ID] = p
	f.nextID++
	return p
}

func (f *fakeAPI) setStock(productID int64, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[productID] = quantity
}

func (f *fakeAPI) disableBulk() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noBulk = true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) routes() http.Handler {
	mux := http.NewServeMux()

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.requests = append(f.requests, r.Method+" "+r.URL.Path)
			f.lastAuth = r.Header.Get("Authorization")
			f.lastCType = r.Header.Get("Content-Type")
			ok := f.lastAuth == "Bearer "+f.token
			f.mu.Unlock()
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastCType = r.Header.Get("Content-Type")
		f.mu.Unlock()
		r.ParseForm()
		if r.PostForm.Get("username") != "a@b.com" || r.PostForm.Get("password") != "secret-pass" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": f.token, "token_type": "bearer", "email": "a@b.com"})
	})

	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var reg model.Registration
		json.NewDecoder(r.Body).Decode(&reg)
		if reg.Email == "taken@b.com" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Email already registered"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": 9, "email": reg.Email})
	})

	mux.HandleFunc("GET /auth/me", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.Identity{ID: 1, Email: "a@b.com", FullName: "Ana", IsActive: true})
	}))

	mux.HandleFunc("GET /products", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := make([]model.Product, 0, len(f.products))
		for id := int64(1); id < f.nextID; id++ {
			if p, ok := f.products[id]; ok {
				list = append(list, p)
			}
		}
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		if skip > len(list) {
			skip = len(list)
		}
		writeJSON(w, http.StatusOK, list[skip:])
	}))

	mux.HandleFunc("POST /products", authed(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Name        string          `json:"name"`
			SKU         string          `json:"sku"`
			Price       decimal.Decimal `json:"price"`
			Description string          `json:"description"`
		}
		json.NewDecoder(r.Body).Decode(&in)

		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range f.products {
			if p.SKU == in.SKU {
				writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "SKU already exists"})
				return
			}
		}
		p := model.Product{ID: f.nextID, Name: in.Name, SKU: in.SKU, Price: in.Price, Description: in.Description}
		f.products[p.ID] = p
		f.nextID++
		writeJSON(w, http.StatusCreated, p)
	}))

	mux.HandleFunc("GET /products/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		p, ok := f.products[id]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Product not found"})
			return
		}
		writeJSON(w, http.StatusOK, p)
	}))

	mux.HandleFunc("PUT /products/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		var p model.Product
		json.NewDecoder(r.Body).Decode(&p)
		p.ID = id
		f.mu.Lock()
		f.products[id] = p
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, p)
	}))

	mux.HandleFunc("DELETE /products/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		delete(f.products, id)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))

	// A missing route answers 404 before credentials are checked.
	bulk := authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := make([]model.InventoryRecord, 0, len(f.stock))
		for id := int64(1); id < f.nextID; id++ {
			if q, ok := f.stock[id]; ok {
				list = append(list, model.InventoryRecord{ProductID: id, Quantity: q})
			}
		}
		writeJSON(w, http.StatusOK, list)
	})
	mux.HandleFunc("GET /inventory/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		noBulk := f.noBulk
		f.mu.Unlock()
		if noBulk {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
			return
		}
		bulk(w, r)
	})

	mux.HandleFunc("POST /inventory/{$}", authed(func(w http.ResponseWriter, r *http.Request) {
		var rec model.InventoryRecord
		json.NewDecoder(r.Body).Decode(&rec)
		f.mu.Lock()
		f.stock[rec.ProductID] = rec.Quantity
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, rec)
	}))

	mux.HandleFunc("GET /inventory/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		q, ok := f.stock[id]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Inventory not found"})
			return
		}
		writeJSON(w, http.StatusOK, model.InventoryRecord{ProductID: id, Quantity: q})
	}))

	mux.HandleFunc("PATCH /inventory/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		var body struct {
			Quantity int `json:"quantity"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		defer f.mu.Unlock()
		q := f.stock[id] + body.Quantity
		if q < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Insufficient stock"})
			return
		}
		f.stock[id] = q
		writeJSON(w, http.StatusOK, model.InventoryRecord{ProductID: id, Quantity: q})
	}))

	return mux
}
