package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lumenshop/storefront/internal/domain/catalog"
)

// CatalogStore implements catalog.Catalog over an in-memory product set.
// Thread-safe for concurrent access. Returned values are copies.
type CatalogStore struct {
	products   map[int64]*catalog.Product
	bySlug     map[string]int64
	categories []catalog.Category
	mu         sync.RWMutex
}

// NewCatalogStore creates a catalog holding copies of products and categories.
func NewCatalogStore(products []catalog.Product, categories []catalog.Category) *CatalogStore {
	s := &CatalogStore{
		products: make(map[int64]*catalog.Product, len(products)),
		bySlug:   make(map[string]int64, len(products)),
	}
	for i := range products {
		s.put(products[i])
	}
	s.categories = make([]catalog.Category, len(categories))
	copy(s.categories, categories)
	return s
}

// GetProduct retrieves a product by ID.
// Returns catalog.ErrProductNotFound if it doesn't exist.
func (s *CatalogStore) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	cp := copyProduct(*p)
	return &cp, nil
}

// GetProductBySlug retrieves a product by its URL slug.
func (s *CatalogStore) GetProductBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySlug[slug]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	cp := copyProduct(*s.products[id])
	return &cp, nil
}

// ListProducts returns products matching filter. Ties keep ascending ID order.
// filter.Category may name a category or give its slug.
func (s *CatalogStore) ListProducts(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	s.mu.RLock()
	for _, c := range s.categories {
		if filter.Category != "" && c.Slug == filter.Category {
			filter.Category = c.Name
			break
		}
	}
	all := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, copyProduct(*p))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return filter.Apply(all)
}

// ListCategories returns all categories in their configured order.
func (s *CatalogStore) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Category, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

// GetCategory retrieves a category by slug.
func (s *CatalogStore) GetCategory(ctx context.Context, slug string) (*catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.Slug == slug {
			cp := c
			return &cp, nil
		}
	}
	return nil, catalog.ErrCategoryNotFound
}

// AddProduct inserts or replaces a product (for testing/seeding).
func (s *CatalogStore) AddProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(p)
}

func (s *CatalogStore) put(p catalog.Product) {
	if old, ok := s.products[p.ID]; ok {
		delete(s.bySlug, old.Slug)
	}
	cp := copyProduct(p)
	s.products[p.ID] = &cp
	if cp.Slug != "" {
		s.bySlug[cp.Slug] = cp.ID
	}
}

// copyProduct deep-copies the slice and pointer fields of p.
func copyProduct(p catalog.Product) catalog.Product {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	if p.CompareAtPrice != nil {
		v := *p.CompareAtPrice
		p.CompareAtPrice = &v
	}
	if p.Ratings != nil {
		r := *p.Ratings
		p.Ratings = &r
	}
	return p
}

// Compile-time interface verification.
var _ catalog.Catalog = (*CatalogStore)(nil)
