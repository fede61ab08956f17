package view

import (
	"fmt"

	"github.com/erazemk/stockboard/internal/model"
)

// InventoryView is the stock page: the fetched products and stock records
// and the page's banners.
type InventoryView struct {
	page

	products []model.Product
	records  []model.InventoryRecord
	fallback bool
	loaded   bool
}

// Stats are the summary figures at the top of the stock page.
type Stats struct {
	TotalUnits int
	Tracked    int
	Low        int
	Out        int
}

// Row is one line of the stock table.
type Row struct {
	Product  model.Product
	Quantity int
	Level    string
}

// Loaded reports whether the page was fetched at least once.
func (v *InventoryView) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Load replaces the cached products and records. fallback records that the
// stock was assembled product by product.
func (v *InventoryView) Load(products []model.Product, records []model.InventoryRecord, fallback bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.products = append([]model.Product(nil), products...)
	v.records = append([]model.InventoryRecord(nil), records...)
	v.fallback = fallback
	v.loaded = true
}

// Invalidate forces the next render to fetch again.
func (v *InventoryView) Invalidate() {
	v.mu.Lock()
	v.loaded = false
	v.mu.Unlock()
}

// Fallback reports whether the cached stock came from per-product lookups.
func (v *InventoryView) Fallback() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fallback
}

// Products returns a copy of the cached products.
func (v *InventoryView) Products() []model.Product {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.Product(nil), v.products...)
}

// Quantity returns the cached quantity of a product, 0 when untracked.
func (v *InventoryView) Quantity(productID int64) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.index(productID); i >= 0 {
		return v.records[i].Quantity
	}
	return 0
}

// ProductName returns the cached name of a product, or a placeholder.
func (v *InventoryView) ProductName(productID int64) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.products {
		if p.ID == productID {
			return p.Name
		}
	}
	return fmt.Sprintf("Product #%d", productID)
}

func (v *InventoryView) index(productID int64) int {
	for i, r := range v.records {
		if r.ProductID == productID {
			return i
		}
	}
	return -1
}

func (v *InventoryView) put(rec model.InventoryRecord) int {
	if i := v.index(rec.ProductID); i >= 0 {
		prev := v.records[i].Quantity
		v.records[i] = rec
		return prev
	}
	v.records = append(v.records, rec)
	return 0
}

// ApplySet stores a record the backend just created or replaced.
func (v *InventoryView) ApplySet(rec model.InventoryRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.put(rec)
}

// ApplyAdjusted stores the backend's result of a delta and returns the
// quantity shown before it.
func (v *InventoryView) ApplyAdjusted(rec model.InventoryRecord) (previous int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.put(rec)
}

// Stats summarises the cached records against threshold. Zero quantities
// count as out of stock, not low.
func (v *InventoryView) Stats(threshold int) Stats {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Stats{Tracked: len(v.records)}
	for _, r := range v.records {
		s.TotalUnits += r.Quantity
		switch model.StockLevel(r.Quantity, threshold) {
		case model.StockOut:
			s.Out++
		case model.StockLow:
			s.Low++
		}
	}
	return s
}

// Rows returns the records of known products whose name or SKU contains
// term, classified against threshold.
func (v *InventoryView) Rows(term string, threshold int) []Row {
	v.mu.Lock()
	defer v.mu.Unlock()

	byID := make(map[int64]model.Product, len(v.products))
	for _, p := range v.products {
		byID[p.ID] = p
	}

	rows := make([]Row, 0, len(v.records))
	for _, r := range v.records {
		p, ok := byID[r.ProductID]
		if !ok || !p.Matches(term) {
			continue
		}
		rows = append(rows, Row{Product: p, Quantity: r.Quantity, Level: model.StockLevel(r.Quantity, threshold)})
	}
	return rows
}

// LowStock returns the rows with 0 < quantity <= threshold.
func (v *InventoryView) LowStock(threshold int) []Row {
	var low []Row
	for _, r := range v.Rows("", threshold) {
		if r.Level == model.StockLow {
			low = append(low, r)
		}
	}
	return low
}

// AdjustedMessage is the success banner after a delta.
func AdjustedMessage(name string, before, after int) string {
	return fmt.Sprintf("Inventory of %q adjusted: %d → %d", name, before, after)
}

// SetMessage is the success banner after setting a quantity.
func SetMessage(name string, quantity int) string {
	return fmt.Sprintf("Inventory of %q set to %d", name, quantity)
}
