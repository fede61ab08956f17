package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/stockboard/internal/backend"
	"github.com/erazemk/stockboard/internal/model"
	"github.com/erazemk/stockboard/internal/store"
	"github.com/erazemk/stockboard/internal/view"
)

const loadProductsFailed = "Could not load products. Check the connection to the API."

// productForm holds the raw values of the create/edit form.
type productForm struct {
	ID          int64
	Name        string
	SKU         string
	Price       string
	Description string
}

func formFromProduct(p model.Product) productForm {
	return productForm{
		ID:          p.ID,
		Name:        p.Name,
		SKU:         p.SKU,
		Price:       p.Price.String(),
		Description: p.Description,
	}
}

func formFromRequest(r *http.Request) productForm {
	return productForm{
		Name:        r.FormValue("name"),
		SKU:         r.FormValue("sku"),
		Price:       r.FormValue("price"),
		Description: r.FormValue("description"),
	}
}

type productsPage struct {
	PageData
	Products []model.Product
	Total    int
	Query    string
	Form     productForm
	Editing  bool
	Skip     int
	PrevSkip int
	NextSkip int
	HasPrev  bool
	HasNext  bool
}

// loadProducts fetches a page of products into the view.
func (s *Server) loadProducts(ctx context.Context, pv *view.ProductsView, skip int) error {
	products, err := s.Backend.Products.List(ctx, skip, s.PageSize)
	if err != nil {
		return err
	}
	pv.Load(products, skip)
	return nil
}

// ProductsPage handles GET /products.
func (s *Server) ProductsPage(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	pv := ws.Products

	q := r.URL.Query()
	skip, _ := strconv.Atoi(q.Get("skip"))
	if skip < 0 {
		skip = 0
	}

	if !pv.Loaded() || q.Has("refresh") || skip != pv.Skip() {
		if err := s.loadProducts(r.Context(), pv, skip); err != nil {
			if loginRedirected(w, r, err) {
				return
			}
			pv.Fail(view.Describe(err, loadProductsFailed))
		}
	}

	var form productForm
	if id, err := strconv.ParseInt(q.Get("edit"), 10, 64); err == nil {
		if p, ok := pv.Find(id); ok {
			form = formFromProduct(p)
			pv.Succeed(fmt.Sprintf("Editing product: %s", p.Name))
		}
	}

	s.renderProducts(w, r, http.StatusOK, pv, form, "")
}

func (s *Server) renderProducts(w http.ResponseWriter, r *http.Request, status int, pv *view.ProductsView, form productForm, errMsg string) {
	pd := pageData(r, "Products")
	flash := pv.TakeFlash()
	pd.Error, pd.Success = flash.Error, flash.Success
	if errMsg != "" {
		pd.Error, pd.Success = errMsg, ""
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	skip := pv.Skip()
	prev := skip - s.PageSize
	if prev < 0 {
		prev = 0
	}

	s.Templates.RenderStatus(w, status, "products.html", &productsPage{
		PageData: pd,
		Products: pv.Filter(query),
		Total:    pv.Len(),
		Query:    query,
		Form:     form,
		Editing:  form.ID != 0,
		Skip:     skip,
		PrevSkip: prev,
		NextSkip: skip + s.PageSize,
		HasPrev:  skip > 0,
		HasNext:  pv.Len() >= s.PageSize,
	})
}

// ProductCreateSubmit handles POST /products.
func (s *Server) ProductCreateSubmit(w http.ResponseWriter, r *http.Request) {
	s.saveProduct(w, r, 0)
}

// ProductUpdateSubmit handles POST /products/{id}.
func (s *Server) ProductUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	s.saveProduct(w, r, id)
}

// saveProduct creates (id == 0) or updates a product. On failure the form
// is shown again with the values the user typed and the cached list is
// left as it was.
func (s *Server) saveProduct(w http.ResponseWriter, r *http.Request, id int64) {
	ws, err := s.workspace(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	pv := ws.Products

	form := formFromRequest(r)
	form.ID = id

	if !pv.BeginSubmit() {
		s.renderProducts(w, r, http.StatusConflict, pv, form, view.Busy)
		return
	}
	defer pv.EndSubmit()

	in, err := model.ParseProductInput(form.Name, form.SKU, form.Price, form.Description)
	if err != nil {
		s.renderProducts(w, r, http.StatusUnprocessableEntity, pv, form, view.Describe(err, "Check the product details."))
		return
	}

	var saved *model.Product
	if id == 0 {
		saved, err = s.Backend.Products.Create(r.Context(), in)
	} else {
		saved, err = s.Backend.Products.Update(r.Context(), id, in)
	}
	if err != nil {
		if loginRedirected(w, r, err) {
			return
		}
		slog.Warn("failed to save product", "product", id, "sku", in.SKU, "error", err)
		s.renderProducts(w, r, http.StatusBadRequest, pv, form, view.Describe(err, "The operation failed. Try again."))
		return
	}

	if id == 0 {
		pv.ApplyCreated(*saved)
		pv.Succeed(fmt.Sprintf("Product %q created.", saved.Name))
		s.record(r, model.ActionProductCreated, saved.ID, fmt.Sprintf("%s (%s)", saved.Name, saved.SKU))
	} else {
		pv.ApplyUpdated(*saved)
		pv.Succeed(fmt.Sprintf("Product %q updated.", saved.Name))
		s.record(r, model.ActionProductUpdated, saved.ID, fmt.Sprintf("%s (%s)", saved.Name, saved.SKU))
	}
	ws.Inventory.Invalidate()

	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

// ProductDeleteSubmit handles POST /products/{id}/delete.
func (s *Server) ProductDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	ws, err := s.workspace(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	pv := ws.Products

	if !pv.BeginSubmit() {
		pv.Fail(view.Busy)
		http.Redirect(w, r, "/products", http.StatusSeeOther)
		return
	}
	defer pv.EndSubmit()

	name := fmt.Sprintf("#%d", id)
	if p, ok := pv.Find(id); ok {
		name = p.Name
	}

	if err := s.Backend.Products.Delete(r.Context(), id); err != nil && !backend.IsNotFound(err) {
		if loginRedirected(w, r, err) {
			return
		}
		slog.Warn("failed to delete product", "product", id, "error", err)
		pv.Fail(view.Describe(err, "Could not delete the product. Try again."))
		http.Redirect(w, r, "/products", http.StatusSeeOther)
		return
	}

	pv.ApplyDeleted(id)
	ws.Inventory.Invalidate()
	if err := store.DeleteProductPhoto(r.Context(), s.DB, id); err != nil {
		slog.Error("failed to delete product photo", "product", id, "error", err)
	}
	s.record(r, model.ActionProductDeleted, id, name)
	pv.Succeed(fmt.Sprintf("Product %q deleted.", name))

	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

// ProductDetailPage handles GET /products/{id}.
func (s *Server) ProductDetailPage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	product, err := s.Backend.Products.Get(r.Context(), id)
	if err != nil {
		if loginRedirected(w, r, err) {
			return
		}
		if backend.IsNotFound(err) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		slog.Error("failed to get product", "product", id, "error", err)
		pd := pageData(r, "Product")
		pd.Error = view.Describe(err, loadProductsFailed)
		s.Templates.RenderStatus(w, http.StatusBadGateway, "product_detail.html", &struct {
			PageData
			Product *model.Product
		}{PageData: pd})
		return
	}

	var stock *model.InventoryRecord
	rec, err := s.Backend.Inventory.Get(r.Context(), id)
	switch {
	case err == nil:
		stock = rec
	case loginRedirected(w, r, err):
		return
	case !backend.IsNotFound(err):
		slog.Warn("failed to get stock", "product", id, "error", err)
	}

	photo, _, err := store.GetProductPhoto(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to get product photo", "product", id, "error", err)
	}

	level := model.StockOut
	if stock != nil {
		level = model.StockLevel(stock.Quantity, s.LowStockThreshold)
	}

	pd := pageData(r, product.Name)
	switch r.URL.Query().Get("photo") {
	case "ok":
		pd.Success = "Photo uploaded."
	case "invalid":
		pd.Error = "Upload a JPEG, PNG or GIF image up to 5 MB."
	}

	s.Templates.Render(w, "product_detail.html", &struct {
		PageData
		Product  *model.Product
		Stock    *model.InventoryRecord
		Level    string
		HasPhoto bool
	}{
		PageData: pd,
		Product:  product,
		Stock:    stock,
		Level:    level,
		HasPhoto: photo != nil,
	})
}
