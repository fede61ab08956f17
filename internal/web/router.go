package web

import (
	"net/http"

	webembed "github.com/erazemk/stockboard/web"
)

// Router returns the page router. Every route runs inside SessionMiddleware;
// pages other than login and registration are guarded.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	guard := func(h http.HandlerFunc) http.Handler { return s.RequireAuth(h) }

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("GET /register", s.RegisterPage)
	mux.HandleFunc("POST /register", s.RegisterSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", guard(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}))
	mux.Handle("GET /dashboard", guard(s.Dashboard))

	mux.Handle("GET /products", guard(s.ProductsPage))
	mux.Handle("POST /products", guard(s.ProductCreateSubmit))
	mux.Handle("GET /products/{id}", guard(s.ProductDetailPage))
	mux.Handle("POST /products/{id}", guard(s.ProductUpdateSubmit))
	mux.Handle("POST /products/{id}/delete", guard(s.ProductDeleteSubmit))
	mux.Handle("POST /products/{id}/photo", guard(s.ProductPhotoSubmit))
	mux.Handle("GET /products/{id}/photo", guard(s.ProductPhotoGet))

	mux.Handle("GET /inventory", guard(s.InventoryPage))
	mux.Handle("POST /inventory/adjust", guard(s.InventoryAdjustSubmit))
	mux.Handle("POST /inventory/set", guard(s.InventorySetSubmit))

	return s.SessionMiddleware(mux)
}
