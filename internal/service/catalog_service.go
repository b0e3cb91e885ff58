package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/lumenshop/storefront/internal/adapter/outbound/cel"
	"github.com/lumenshop/storefront/internal/domain/catalog"
)

// ErrInvalidQuery is returned when a listing query has an unknown price band,
// sort order or an invalid expression.
var ErrInvalidQuery = errors.New("invalid product query")

// ProductQuery holds raw listing parameters as received from a user.
type ProductQuery struct {
	Category     string
	Price        string
	Sort         string
	FeaturedOnly bool
	// Where is an optional CEL expression, e.g. `price < 100.0 && in_stock`.
	Where string
}

// CatalogService answers catalog queries.
type CatalogService struct {
	catalog catalog.Catalog
	eval    *cel.Evaluator
	logger  *slog.Logger
}

// NewCatalogService creates a new CatalogService. eval may be nil, in which
// case queries with a Where expression are rejected.
func NewCatalogService(cat catalog.Catalog, eval *cel.Evaluator, logger *slog.Logger) *CatalogService {
	return &CatalogService{catalog: cat, eval: eval, logger: logger}
}

// List returns the products matching q.
func (s *CatalogService) List(ctx context.Context, q ProductQuery) (products []catalog.Product, err error) {
	ctx, span := startSpan(ctx, "CatalogService.List",
		attribute.String("query.category", q.Category),
		attribute.String("query.where", q.Where))
	defer func() { endSpan(span, err) }()

	filter, err := s.filter(ctx, q)
	if err != nil {
		return nil, err
	}
	products, err = s.catalog.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	span.SetAttributes(attribute.Int("result.count", len(products)))
	return products, nil
}

func (s *CatalogService) filter(ctx context.Context, q ProductQuery) (catalog.Filter, error) {
	band, err := catalog.ParsePriceBand(q.Price)
	if err != nil {
		return catalog.Filter{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	order, err := catalog.ParseSortOrder(q.Sort)
	if err != nil {
		return catalog.Filter{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	category := q.Category
	if category != "" {
		// Accept the category slug as well as its display name.
		if c, err := s.catalog.GetCategory(ctx, category); err == nil {
			category = c.Name
		}
	}

	f := catalog.Filter{
		Category:     category,
		Price:        band,
		FeaturedOnly: q.FeaturedOnly,
		Sort:         order,
	}
	if q.Where != "" {
		if s.eval == nil {
			return catalog.Filter{}, fmt.Errorf("%w: expressions are not enabled", ErrInvalidQuery)
		}
		match, err := s.eval.Matcher(ctx, q.Where)
		if err != nil {
			return catalog.Filter{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		f.Match = match
	}
	return f, nil
}

// Featured returns the featured products.
func (s *CatalogService) Featured(ctx context.Context) ([]catalog.Product, error) {
	return s.List(ctx, ProductQuery{FeaturedOnly: true})
}

// Product resolves ref as a numeric ID first, then as a slug.
func (s *CatalogService) Product(ctx context.Context, ref string) (*catalog.Product, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		p, err := s.catalog.GetProduct(ctx, id)
		if err == nil || !errors.Is(err, catalog.ErrProductNotFound) {
			return p, err
		}
	}
	return s.catalog.GetProductBySlug(ctx, ref)
}

// ProductByID returns the product with the given ID.
func (s *CatalogService) ProductByID(ctx context.Context, id int64) (*catalog.Product, error) {
	return s.catalog.GetProduct(ctx, id)
}

// Categories returns all categories.
func (s *CatalogService) Categories(ctx context.Context) ([]catalog.Category, error) {
	return s.catalog.ListCategories(ctx)
}

// Category returns the category with the given slug.
func (s *CatalogService) Category(ctx context.Context, slug string) (*catalog.Category, error) {
	return s.catalog.GetCategory(ctx, slug)
}
