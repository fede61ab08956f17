package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/erazemk/stockboard/internal/model"
)

// ProductService wraps the /products endpoints.
type ProductService struct {
	c *Client
}

func productPath(id int64) string {
	return fmt.Sprintf("/products/%d", id)
}

func pageQuery(skip, limit int) url.Values {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// List returns one page of products.
func (s *ProductService) List(ctx context.Context, skip, limit int) ([]model.Product, error) {
	var products []model.Product
	if err := s.c.doJSON(ctx, http.MethodGet, "/products", pageQuery(skip, limit), nil, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// Get returns a single product.
func (s *ProductService) Get(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	if err := s.c.doJSON(ctx, http.MethodGet, productPath(id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create adds a product and returns it as stored by the backend.
func (s *ProductService) Create(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	var p model.Product
	if err := s.c.doJSON(ctx, http.MethodPost, "/products", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update replaces a product's fields.
func (s *ProductService) Update(ctx context.Context, id int64, in model.ProductInput) (*model.Product, error) {
	var p model.Product
	if err := s.c.doJSON(ctx, http.MethodPut, productPath(id), nil, in, &p); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		p = model.Product{ID: id, Name: in.Name, SKU: in.SKU, Price: in.Price, Description: in.Description}
	}
	return &p, nil
}

// Delete removes a product.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return s.c.doJSON(ctx, http.MethodDelete, productPath(id), nil, nil, nil)
}
