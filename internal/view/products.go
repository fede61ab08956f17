package view

import "github.com/erazemk/stockboard/internal/model"

// ProductsView is the product list page: the fetched catalogue and the
// page's banners.
type ProductsView struct {
	page

	products []model.Product
	skip     int
	loaded   bool
}

// Loaded reports whether the list was fetched at least once.
func (v *ProductsView) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Load replaces the cached list with the page starting at skip.
func (v *ProductsView) Load(products []model.Product, skip int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.products = append([]model.Product(nil), products...)
	v.skip = skip
	v.loaded = true
}

// Skip returns the offset of the cached page.
func (v *ProductsView) Skip() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.skip
}

// Len returns the number of cached products.
func (v *ProductsView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.products)
}

// Invalidate forces the next render to fetch again.
func (v *ProductsView) Invalidate() {
	v.mu.Lock()
	v.loaded = false
	v.mu.Unlock()
}

// All returns a copy of the cached list.
func (v *ProductsView) All() []model.Product {
	return v.Filter("")
}

// Filter returns the cached products whose name or SKU contains term.
func (v *ProductsView) Filter(term string) []model.Product {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]model.Product, 0, len(v.products))
	for _, p := range v.products {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out
}

// Find returns a cached product by id.
func (v *ProductsView) Find(id int64) (model.Product, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// ApplyCreated appends a product the backend just created.
func (v *ProductsView) ApplyCreated(p model.Product) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.products = append(v.products, p)
}

// ApplyUpdated replaces the cached copy of p.
func (v *ProductsView) ApplyUpdated(p model.Product) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.products {
		if v.products[i].ID == p.ID {
			v.products[i] = p
			return
		}
	}
	v.products = append(v.products, p)
}

// ApplyDeleted removes a product from the cache.
func (v *ProductsView) ApplyDeleted(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.products {
		if v.products[i].ID == id {
			v.products = append(v.products[:i], v.products[i+1:]...)
			return
		}
	}
}
