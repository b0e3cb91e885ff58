package catalog

import (
	"context"
	"errors"
)

// Sentinel errors for catalog lookups.
var (
	// ErrProductNotFound is returned when no product matches the requested ID or slug.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound is returned when no category matches the requested slug.
	ErrCategoryNotFound = errors.New("category not found")
)

// Catalog provides read-only product lookup.
// This interface is defined in the domain to avoid circular imports.
// Implementations: in-memory (seeded from YAML).
type Catalog interface {
	// GetProduct retrieves a product by ID.
	// Returns ErrProductNotFound if the product doesn't exist.
	GetProduct(ctx context.Context, id int64) (*Product, error)

	// GetProductBySlug retrieves a product by its URL slug.
	// Returns ErrProductNotFound if the product doesn't exist.
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)

	// ListProducts returns the products matching filter, ordered by filter.Sort.
	ListProducts(ctx context.Context, filter Filter) ([]Product, error)

	// ListCategories returns all categories in display order.
	ListCategories(ctx context.Context) ([]Category, error)

	// GetCategory retrieves a category by slug.
	// Returns ErrCategoryNotFound if the category doesn't exist.
	GetCategory(ctx context.Context, slug string) (*Category, error)
}
