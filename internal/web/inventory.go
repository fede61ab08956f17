package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/stockboard/internal/model"
	"github.com/erazemk/stockboard/internal/view"
)

// lowStockPreview is how many low-stock alerts are listed before "and N more".
const lowStockPreview = 6

// loadInventory fetches products and their stock into the view.
func (s *Server) loadInventory(ctx context.Context, iv *view.InventoryView) error {
	products, err := s.Backend.Products.List(ctx, 0, s.PageSize)
	if err != nil {
		return err
	}

	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	records, fallback, err := s.Backend.Inventory.Overview(ctx, ids)
	if err != nil {
		return err
	}

	iv.Load(products, records, fallback)
	return nil
}

// threshold reads the low-stock threshold from the query, falling back to
// the configured default.
func (s *Server) threshold(q url.Values) int {
	if t, err := strconv.Atoi(q.Get("threshold")); err == nil && t >= 0 {
		return t
	}
	return s.LowStockThreshold
}

// InventoryPage handles GET /inventory.
func (s *Server) InventoryPage(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	iv := ws.Inventory

	q := r.URL.Query()
	if !iv.Loaded() || q.Has("refresh") {
		if err := s.loadInventory(r.Context(), iv); err != nil {
			if loginRedirected(w, r, err) {
				return
			}
			slog.Error("failed to load inventory", "error", err)
			iv.Fail(view.Describe(err, "Could not load inventory data."))
		}
	}

	threshold := s.threshold(q)
	query := strings.TrimSpace(q.Get("q"))

	pd := pageData(r, "Inventory")
	flash := iv.TakeFlash()
	pd.Error, pd.Success = flash.Error, flash.Success

	low := iv.LowStock(threshold)
	more := 0
	if len(low) > lowStockPreview {
		more = len(low) - lowStockPreview
		low = low[:lowStockPreview]
	}

	s.Templates.Render(w, "inventory.html", &struct {
		PageData
		Stats     view.Stats
		Rows      []view.Row
		LowStock  []view.Row
		MoreLow   int
		Products  []model.Product
		Threshold int
		Query     string
		Fallback  bool
	}{
		PageData:  pd,
		Stats:     iv.Stats(threshold),
		Rows:      iv.Rows(query, threshold),
		LowStock:  low,
		MoreLow:   more,
		Products:  iv.Products(),
		Threshold: threshold,
		Query:     query,
		Fallback:  iv.Fallback(),
	})
}

// backToInventory redirects to the stock page, keeping the threshold and
// search the form was posted from.
func backToInventory(w http.ResponseWriter, r *http.Request) {
	q := url.Values{}
	if t := r.FormValue("threshold"); t != "" {
		q.Set("threshold", t)
	}
	if term := r.FormValue("q"); term != "" {
		q.Set("q", term)
	}
	target := "/inventory"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// InventoryAdjustSubmit handles POST /inventory/adjust.
func (s *Server) InventoryAdjustSubmit(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	iv := ws.Inventory

	if !iv.BeginSubmit() {
		iv.Fail(view.Busy)
		backToInventory(w, r)
		return
	}
	defer iv.EndSubmit()

	productID, err := model.ParseProductID(r.FormValue("product_id"))
	if err == nil {
		var delta int
		delta, err = model.ParseDelta(r.FormValue("delta"))
		if err == nil {
			err = s.adjust(r, iv, productID, delta)
		}
	}
	if err != nil {
		if loginRedirected(w, r, err) {
			return
		}
		iv.Fail(view.Describe(err, "Could not adjust inventory. Check that the product exists."))
	}
	backToInventory(w, r)
}

func (s *Server) adjust(r *http.Request, iv *view.InventoryView, productID int64, delta int) error {
	// The before value in the banner comes from the cached list.
	if !iv.Loaded() {
		if err := s.loadInventory(r.Context(), iv); err != nil {
			slog.Warn("inventory not loaded before adjust", "error", err)
		}
	}

	rec, err := s.Backend.Inventory.Adjust(r.Context(), productID, delta)
	if err != nil {
		slog.Warn("failed to adjust inventory", "product", productID, "delta", delta, "error", err)
		return err
	}

	before := iv.ApplyAdjusted(*rec)
	name := iv.ProductName(productID)
	msg := view.AdjustedMessage(name, before, rec.Quantity)
	iv.Succeed(msg)
	s.record(r, model.ActionStockAdjusted, productID, msg)
	return nil
}

// InventorySetSubmit handles POST /inventory/set.
func (s *Server) InventorySetSubmit(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspace(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	iv := ws.Inventory

	if !iv.BeginSubmit() {
		iv.Fail(view.Busy)
		backToInventory(w, r)
		return
	}
	defer iv.EndSubmit()

	productID, err := model.ParseProductID(r.FormValue("product_id"))
	if err == nil {
		var quantity int
		quantity, err = model.ParseQuantity(r.FormValue("quantity"))
		if err == nil {
			err = s.set(r, iv, productID, quantity)
		}
	}
	if err != nil {
		if loginRedirected(w, r, err) {
			return
		}
		iv.Fail(view.Describe(err, "Could not set inventory. Check the details."))
	}
	backToInventory(w, r)
}

func (s *Server) set(r *http.Request, iv *view.InventoryView, productID int64, quantity int) error {
	rec, err := s.Backend.Inventory.Set(r.Context(), productID, quantity)
	if err != nil {
		slog.Warn("failed to set inventory", "product", productID, "quantity", quantity, "error", err)
		return err
	}

	iv.ApplySet(*rec)
	msg := view.SetMessage(iv.ProductName(productID), rec.Quantity)
	iv.Succeed(msg)
	s.record(r, model.ActionStockSet, productID, msg)
	return nil
}
