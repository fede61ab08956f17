package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a catalogue entry owned by the backend API.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
}

// Matches reports whether the product's name or SKU contains term,
// ignoring case. An empty term matches everything.
func (p Product) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.SKU), term)
}

// ProductInput is the payload for creating or updating a product.
type ProductInput struct {
	Name        string
	SKU         string
	Price       decimal.Decimal
	Description string
}

// NormalizeSKU trims a SKU and upper-cases it.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// ParseProductInput validates raw form values and builds a ProductInput.
func ParseProductInput(name, sku, price, description string) (ProductInput, error) {
	name = strings.TrimSpace(name)
	sku = NormalizeSKU(sku)
	price = strings.TrimSpace(price)

	if name == "" || sku == "" || price == "" {
		return ProductInput{}, invalid("", "Name, SKU and price are required.")
	}

	amount, err := decimal.NewFromString(price)
	if err != nil || !amount.IsPositive() {
		return ProductInput{}, invalid("price", "Price must be a number greater than 0.")
	}

	return ProductInput{
		Name:        name,
		SKU:         sku,
		Price:       amount,
		Description: strings.TrimSpace(description),
	}, nil
}

// MarshalJSON encodes the price as a JSON number rather than a string.
func (in ProductInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string      `json:"name"`
		SKU         string      `json:"sku"`
		Price       json.Number `json:"price"`
		Description string      `json:"description"`
	}{
		Name:        in.Name,
		SKU:         in.SKU,
		Price:       json.Number(in.Price.String()),
		Description: in.Description,
	})
}
