package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lumenshop/storefront/internal/adapter/outbound/persist"
	"github.com/lumenshop/storefront/internal/domain/cart"
	"github.com/lumenshop/storefront/internal/domain/catalog"
	"github.com/lumenshop/storefront/internal/domain/checkout"
)

// CartService owns the current cart. Every mutation is persisted before it
// becomes the current state; a failed write leaves the state unchanged.
type CartService struct {
	catalog catalog.Catalog
	repo    *persist.CartRepository
	ids     *cart.IDGenerator
	metrics *Metrics
	logger  *slog.Logger

	mu      sync.Mutex // serializes mutations and their writes
	current cart.Cart
}

// NewCartService creates a new CartService. Call Init before use.
func NewCartService(
	cat catalog.Catalog,
	repo *persist.CartRepository,
	ids *cart.IDGenerator,
	metrics *Metrics,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		catalog: cat,
		repo:    repo,
		ids:     ids,
		metrics: metrics,
		logger:  logger,
		current: cart.Empty(),
	}
}

// Init rehydrates the cart from storage.
// A missing value yields an empty cart. An undecodable value is discarded
// with a warning and overwritten by the next mutation. Only storage I/O
// failures are returned.
func (s *CartService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, persist.ErrMalformed):
		s.logger.Warn("discarding unreadable cart", "key", persist.KeyCart, "error", err)
		s.metrics.recovered(persist.KeyCart)
		c = cart.Empty()
	case err != nil:
		return fmt.Errorf("load cart: %w", err)
	}

	c, dropped := cart.Normalize(c)
	if dropped > 0 {
		s.logger.Warn("dropped invalid cart lines", "key", persist.KeyCart, "count", dropped)
		s.metrics.recovered(persist.KeyCart)
	}

	s.ids.Observe(c)
	s.current = c
	s.metrics.cartLoaded(c.Len())
	s.logger.Debug("cart loaded", "lines", c.Len(), "items", c.ItemCount())
	return nil
}

// AddItem adds quantity units of the catalog product productID.
// Returns catalog.ErrProductNotFound for unknown products and
// cart.ErrInvalidQuantity when quantity is not positive.
func (s *CartService) AddItem(ctx context.Context, productID int64, quantity int) (cart.LineItem, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return cart.LineItem{}, err
	}
	return s.AddProduct(ctx, *p, quantity)
}

// AddProduct adds quantity units of product. If a line for the product
// exists its quantity grows and its snapshot is kept; otherwise a new line
// is appended. Returns the resulting line.
func (s *CartService) AddProduct(ctx context.Context, product catalog.Product, quantity int) (line cart.LineItem, err error) {
	ctx, span := startSpan(ctx, "CartService.AddProduct",
		attribute.Int64("product.id", product.ID),
		attribute.Int("quantity", quantity))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := cart.AddItem(s.current, product, quantity, s.ids.Next())
	if err != nil {
		return cart.LineItem{}, err
	}
	if err := s.commit(ctx, "add", next); err != nil {
		return cart.LineItem{}, err
	}

	line, _ = next.FindByProduct(product.ID)
	s.logger.Debug("cart item added",
		"line_id", line.ID, "product_id", product.ID, "quantity", quantity, "line_quantity", line.Quantity)
	return line, nil
}

// RemoveItem deletes the line with lineID. Unknown IDs are a no-op.
func (s *CartService) RemoveItem(ctx context.Context, lineID int64) (err error) {
	ctx, span := startSpan(ctx, "CartService.RemoveItem", attribute.Int64("line.id", lineID))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(ctx, "remove", cart.RemoveItem(s.current, lineID)); err != nil {
		return err
	}
	s.logger.Debug("cart item removed", "line_id", lineID)
	return nil
}

// UpdateQuantity sets the quantity of line lineID. A quantity of zero or
// less removes the line. Unknown IDs are a no-op.
func (s *CartService) UpdateQuantity(ctx context.Context, lineID int64, quantity int) (err error) {
	ctx, span := startSpan(ctx, "CartService.UpdateQuantity",
		attribute.Int64("line.id", lineID),
		attribute.Int("quantity", quantity))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(ctx, "update", cart.UpdateQuantity(s.current, lineID, quantity)); err != nil {
		return err
	}
	s.logger.Debug("cart quantity updated", "line_id", lineID, "quantity", quantity)
	return nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "CartService.Clear")
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(ctx, "clear", cart.Clear(s.current)); err != nil {
		return err
	}
	s.logger.Info("cart cleared")
	return nil
}

// commit persists next and publishes it as the current cart.
// Caller must hold s.mu.
func (s *CartService) commit(ctx context.Context, op string, next cart.Cart) error {
	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error("cart write failed", "op", op, "error", err)
		return fmt.Errorf("persist cart: %w", err)
	}
	s.current = next
	s.metrics.cartMutation(op, next.Len())
	return nil
}

// Items returns a copy of the current lines in display order.
func (s *CartService) Items() []cart.LineItem {
	return s.Snapshot().Items
}

// ItemCount returns the total number of units in the cart.
func (s *CartService) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.ItemCount()
}

// Subtotal returns the unrounded sum of line totals.
func (s *CartService) Subtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Subtotal()
}

// Snapshot returns a copy of the current cart.
func (s *CartService) Snapshot() cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Version returns a content hash of the current cart, usable as an ETag.
func (s *CartService) Version() string {
	return CartVersion(s.Snapshot())
}

// CartVersion hashes the lines of c in order.
func CartVersion(c cart.Cart) string {
	h := xxhash.New()
	for _, item := range c.Items {
		_, _ = h.WriteString(strconv.FormatInt(item.ID, 10))
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(strconv.FormatInt(item.ProductID, 10))
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(item.Name)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(strconv.FormatFloat(item.UnitPrice, 'g', -1, 64))
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(strconv.Itoa(item.Quantity))
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(item.Image)
		_, _ = h.Write([]byte{1})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// CartView is the presentation shape of a cart shared by the API, MCP tools
// and the CLI.
type CartView struct {
	Items           []cart.LineItem `json:"items"`
	ItemCount       int             `json:"itemCount"`
	Subtotal        float64         `json:"subtotal"`
	SubtotalDisplay string          `json:"subtotalDisplay"`
	Version         string          `json:"version"`
}

// NewCartView builds the view of c.
func NewCartView(c cart.Cart) CartView {
	items := c.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return CartView{
		Items:           items,
		ItemCount:       c.ItemCount(),
		Subtotal:        c.Subtotal(),
		SubtotalDisplay: checkout.FormatMoney(c.Subtotal()),
		Version:         CartVersion(c),
	}
}

// View returns the view of the current cart.
func (s *CartService) View() CartView {
	return NewCartView(s.Snapshot())
}
