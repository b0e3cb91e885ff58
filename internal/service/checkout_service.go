package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lumenshop/storefront/internal/domain/cart"
	"github.com/lumenshop/storefront/internal/domain/checkout"
)

// ErrEmptyCart is returned by PlaceOrder when the cart has no lines.
var ErrEmptyCart = errors.New("cart is empty")

// Quote is a priced view of the cart for one shipping method.
type Quote struct {
	Items     []cart.LineItem  `json:"items"`
	ItemCount int              `json:"itemCount"`
	Totals    checkout.Totals  `json:"totals"`
	Display   checkout.Display `json:"display"`
}

// OrderJournal records placed orders.
type OrderJournal interface {
	Append(ctx context.Context, order Order) error
	// Recent returns up to n orders, newest first.
	Recent(n int) []Order
}

// Order is the confirmation returned by PlaceOrder.
type Order struct {
	ID       string    `json:"id"`
	PlacedAt time.Time `json:"placedAt"`
	Customer string    `json:"customer,omitempty"`
	Quote
}

// CheckoutService prices the current cart and places demo orders.
// Nothing is charged and the cart is left as it is.
type CheckoutService struct {
	carts    *CartService
	accounts *AccountService
	calc     *checkout.Calculator
	metrics  *Metrics
	logger   *slog.Logger
	journal  OrderJournal
	now      func() time.Time
}

// CheckoutOption configures optional CheckoutService dependencies.
type CheckoutOption func(*CheckoutService)

// WithOrderJournal records every placed order in j.
func WithOrderJournal(j OrderJournal) CheckoutOption {
	return func(s *CheckoutService) { s.journal = j }
}

// NewCheckoutService creates a new CheckoutService. accounts may be nil.
func NewCheckoutService(
	carts *CartService,
	accounts *AccountService,
	calc *checkout.Calculator,
	metrics *Metrics,
	logger *slog.Logger,
	opts ...CheckoutOption,
) *CheckoutService {
	s := &CheckoutService{
		carts:    carts,
		accounts: accounts,
		calc:     calc,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote prices the current cart. It answers for an empty cart too.
func (s *CheckoutService) Quote(_ context.Context, method checkout.ShippingMethod) Quote {
	c := s.carts.Snapshot()
	totals := s.calc.Calculate(c.Subtotal(), method)
	return Quote{
		Items:     c.Items,
		ItemCount: c.ItemCount(),
		Totals:    totals,
		Display:   totals.Format(),
	}
}

// PlaceOrder confirms an order for the current cart.
// Returns ErrEmptyCart when there is nothing to order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, method checkout.ShippingMethod) (order Order, err error) {
	ctx, span := startSpan(ctx, "CheckoutService.PlaceOrder", attribute.String("shipping.method", string(method)))
	defer func() { endSpan(span, err) }()

	q := s.Quote(ctx, method)
	if len(q.Items) == 0 {
		return Order{}, ErrEmptyCart
	}

	order = Order{
		ID:       uuid.New().String(),
		PlacedAt: s.now().UTC(),
		Quote:    q,
	}
	if s.accounts != nil {
		if u, ok := s.accounts.Current(); ok {
			order.Customer = u.Email
		}
	}

	if s.journal != nil {
		if err := s.journal.Append(ctx, order); err != nil {
			return Order{}, fmt.Errorf("record order: %w", err)
		}
	}

	if s.metrics != nil {
		s.metrics.OrdersPlaced.Inc()
		if s.metrics.orderTotal != nil {
			s.metrics.orderTotal.Record(ctx, q.Totals.Total,
				metric.WithAttributes(attribute.String("shipping.method", string(q.Totals.Method))))
		}
	}
	span.SetAttributes(attribute.String("order.id", order.ID))
	s.logger.Info("order placed",
		"order_id", order.ID, "items", q.ItemCount, "total", q.Display.Total, "shipping", q.Totals.Method)
	return order, nil
}

// RecentOrders returns up to n previously placed orders, newest first.
// Without a journal there is no history and it returns nil.
func (s *CheckoutService) RecentOrders(n int) []Order {
	if s.journal == nil {
		return nil
	}
	return s.journal.Recent(n)
}
