// Package mocks holds in-memory fakes of fern's external collaborators for tests.
package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Commerce is an in-memory canonical data source. Listings are ordered by id.
type Commerce struct {
	mu         sync.Mutex
	Products   map[string]models.Product
	Categories map[string]models.Category
	Brands     map[string]models.Brand

	// ListErr fails every List* call when set.
	ListErr error
	// GetErr fails every Get* call when set.
	GetErr error

	ListCalls int
}

func NewCommerce() *Commerce {
	return &Commerce{
		Products:   map[string]models.Product{},
		Categories: map[string]models.Category{},
		Brands:     map[string]models.Brand{},
	}
}

func (c *Commerce) AddProducts(products ...models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range products {
		c.Products[p.ID] = p
	}
}

func (c *Commerce) AddCategories(categories ...models.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cat := range categories {
		c.Categories[cat.ID] = cat
	}
}

func (c *Commerce) AddBrands(brands ...models.Brand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range brands {
		c.Brands[b.ID] = b
	}
}

func (c *Commerce) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Products, id)
	delete(c.Categories, id)
	delete(c.Brands, id)
}

func (c *Commerce) ListProducts(_ context.Context, filters models.ListFilters, limit, offset int) ([]models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ListCalls++
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	var out []models.Product
	for _, id := range sortedKeys(c.Products) {
		p := c.Products[id]
		if matches(filters, p.ID, p.Handle, p.UpdatedAt, p.DeletedAt != nil) {
			out = append(out, p)
		}
	}
	return page(out, limit, offset), nil
}

func (c *Commerce) ListCategories(_ context.Context, filters models.ListFilters, limit, offset int) ([]models.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ListCalls++
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	var out []models.Category
	for _, id := range sortedKeys(c.Categories) {
		cat := c.Categories[id]
		if matches(filters, cat.ID, cat.Handle, cat.UpdatedAt, cat.DeletedAt != nil) {
			out = append(out, cat)
		}
	}
	return page(out, limit, offset), nil
}

func (c *Commerce) ListBrands(_ context.Context, filters models.ListFilters, limit, offset int) ([]models.Brand, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ListCalls++
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	var out []models.Brand
	for _, id := range sortedKeys(c.Brands) {
		b := c.Brands[id]
		if matches(filters, b.ID, b.Handle, b.UpdatedAt, b.DeletedAt != nil) {
			out = append(out, b)
		}
	}
	return page(out, limit, offset), nil
}

func (c *Commerce) GetProduct(_ context.Context, id string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	p, ok := c.Products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *Commerce) GetCategory(_ context.Context, id string) (*models.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	cat, ok := c.Categories[id]
	if !ok {
		return nil, nil
	}
	return &cat, nil
}

func (c *Commerce) GetBrand(_ context.Context, id string) (*models.Brand, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	b, ok := c.Brands[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (c *Commerce) ListAllCategories(_ context.Context) ([]models.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	out := make([]models.Category, 0, len(c.Categories))
	for _, id := range sortedKeys(c.Categories) {
		if c.Categories[id].DeletedAt == nil {
			out = append(out, c.Categories[id])
		}
	}
	return out, nil
}

// CountProductsByCategory counts live products per category.
func (c *Commerce) CountProductsByCategory(_ context.Context) (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := map[string]int{}
	for _, p := range c.Products {
		if !p.IsLive() {
			continue
		}
		for _, id := range p.CategoryIDs {
			counts[id]++
		}
	}
	return counts, nil
}

func (c *Commerce) CountProductsByBrand(_ context.Context, brandIDs []string) (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range brandIDs {
		wanted[id] = true
	}
	counts := map[string]int{}
	for _, p := range c.Products {
		if p.IsLive() && p.BrandID != nil && wanted[*p.BrandID] {
			counts[*p.BrandID]++
		}
	}
	return counts, nil
}

func (c *Commerce) GetBrandsByIDs(_ context.Context, ids []string) ([]models.Brand, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Brand
	for _, id := range ids {
		if b, ok := c.Brands[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func matches(f models.ListFilters, id, handle string, updatedAt time.Time, deleted bool) bool {
	if deleted && !f.WithDeleted() {
		return false
	}
	if f.UpdatedSince != nil && updatedAt.Before(*f.UpdatedSince) {
		return false
	}
	if len(f.IDs) > 0 && !contains(f.IDs, id) {
		return false
	}
	if len(f.Handles) > 0 && !contains(f.Handles, handle) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
