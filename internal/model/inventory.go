package model

import (
	"strconv"
	"strings"
)

// InventoryRecord is the stock held for one product.
type InventoryRecord struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Stock levels.
const (
	StockOut = "out"
	StockLow = "low"
	StockOK  = "ok"
)

// StockLevel classifies a quantity against a low-stock threshold.
// Zero is out of stock; anything up to and including threshold is low.
func StockLevel(quantity, threshold int) string {
	switch {
	case quantity <= 0:
		return StockOut
	case quantity <= threshold:
		return StockLow
	default:
		return StockOK
	}
}

// ParseQuantity validates an absolute stock quantity from a form.
func ParseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid("quantity", "Select a product and enter the quantity.")
	}
	q, err := strconv.Atoi(raw)
	if err != nil || q < 0 {
		return 0, invalid("quantity", "Quantity must be a whole number of at least 0.")
	}
	return q, nil
}

// ParseDelta validates a relative stock change from a form.
func ParseDelta(raw string) (int, error) {
	d, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || d == 0 {
		return 0, invalid("delta", "Select a product and enter the amount to adjust.")
	}
	return d, nil
}

// ParseProductID validates a product reference from a form.
func ParseProductID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("product_id", "Select a product.")
	}
	return id, nil
}
