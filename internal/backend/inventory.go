package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/stockboard/internal/model"
)

// overviewConcurrency bounds the per-product requests made when the bulk
// inventory endpoint is missing.
const overviewConcurrency = 8

// InventoryService wraps the /inventory endpoints.
type InventoryService struct {
	c *Client
}

func inventoryPath(productID int64) string {
	return fmt.Sprintf("/inventory/%d", productID)
}

type quantityBody struct {
	ProductID int64 `json:"product_id,omitempty"`
	Quantity  int   `json:"quantity"`
}

// Get returns the stock record for one product.
func (s *InventoryService) Get(ctx context.Context, productID int64) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	if err := s.c.doJSON(ctx, http.MethodGet, inventoryPath(productID), nil, nil, &rec); err != nil {
		return nil, err
	}
	if rec.ProductID == 0 {
		rec.ProductID = productID
	}
	return &rec, nil
}

// Set creates or replaces the stock record for a product.
func (s *InventoryService) Set(ctx context.Context, productID int64, quantity int) (*model.InventoryRecord, error) {
	body := quantityBody{ProductID: productID, Quantity: quantity}

	var rec model.InventoryRecord
	if err := s.c.doJSON(ctx, http.MethodPost, s.c.inventoryPath, nil, body, &rec); err != nil {
		return nil, err
	}
	if rec.ProductID == 0 {
		rec = model.InventoryRecord{ProductID: productID, Quantity: quantity}
	}
	return &rec, nil
}

// Adjust changes a product's stock by delta. The backend reads the delta
// from the quantity field and answers with the resulting record.
func (s *InventoryService) Adjust(ctx context.Context, productID int64, delta int) (*model.InventoryRecord, error) {
	body := quantityBody{Quantity: delta}

	var rec model.InventoryRecord
	if err := s.c.doJSON(ctx, http.MethodPatch, inventoryPath(productID), nil, body, &rec); err != nil {
		return nil, err
	}
	if rec.ProductID == 0 {
		rec.ProductID = productID
	}
	return &rec, nil
}

// List returns one page of stock records from the bulk endpoint. Not every
// backend implements it.
func (s *InventoryService) List(ctx context.Context, skip, limit int) ([]model.InventoryRecord, error) {
	var records []model.InventoryRecord
	if err := s.c.doJSON(ctx, http.MethodGet, s.c.inventoryPath, pageQuery(skip, limit), nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.InventoryRecord{}
	}
	return records, nil
}

// bulkUnsupported reports whether err means the bulk endpoint does not exist.
func bulkUnsupported(err error) bool {
	switch StatusOf(err) {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}

// Overview returns stock for the given products. It uses the bulk endpoint
// when available and otherwise fetches each product on its own, in which
// case fallback is true and products whose lookup fails count as quantity 0.
// A rejected token stops the fallback and is returned, as is a network
// failure of every lookup.
func (s *InventoryService) Overview(ctx context.Context, productIDs []int64) (records []model.InventoryRecord, fallback bool, err error) {
	all, err := s.List(ctx, 0, 0)
	if err == nil {
		return all, false, nil
	}
	if !bulkUnsupported(err) {
		return nil, false, err
	}

	slog.Warn("bulk inventory unavailable, fetching per product", "products", len(productIDs), "status", StatusOf(err))

	records = make([]model.InventoryRecord, len(productIDs))
	networkErrs := make([]error, len(productIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewConcurrency)
	for i, id := range productIDs {
		g.Go(func() error {
			records[i] = model.InventoryRecord{ProductID: id}
			rec, err := s.Get(gctx, id)
			if err != nil {
				if IsUnauthorized(err) {
					return err
				}
				if IsNetwork(err) {
					networkErrs[i] = err
				}
				return nil
			}
			records[i] = *rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, true, err
	}

	// Per-product 404s are normal (no record yet); only give up when no
	// request reached the backend at all.
	if len(productIDs) > 0 {
		failed := 0
		for _, e := range networkErrs {
			if e != nil {
				failed++
			}
		}
		if failed == len(productIDs) {
			return nil, true, networkErrs[0]
		}
	}

	return records, true, nil
}
