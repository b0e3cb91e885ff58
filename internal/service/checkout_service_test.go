package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lumenshop/storefront/internal/adapter/outbound/memory"
	"github.com/lumenshop/storefront/internal/adapter/outbound/persist"
	"github.com/lumenshop/storefront/internal/domain/checkout"
)

func TestCheckoutService_Quote(t *testing.T) {
	env := newCartEnv(t, nil)
	ctx := context.Background()
	svc := NewCheckoutService(env.svc, nil, checkout.NewCalculator(checkout.DefaultRates()), env.metrics, testLogger())

	q := svc.Quote(ctx, checkout.ShippingStandard)
	if q.ItemCount != 0 || q.Display.Total != "$4.99" {
		t.Errorf("empty cart Quote() = %+v, want shipping-only total", q)
	}

	_, _ = env.svc.AddItem(ctx, 1, 1)
	_, _ = env.svc.AddItem(ctx, 3, 2)

	q = svc.Quote(ctx, checkout.ShippingExpress)
	if q.ItemCount != 3 || len(q.Items) != 2 {
		t.Errorf("Quote() items = %d lines / %d units", len(q.Items), q.ItemCount)
	}
	if q.Totals.Method != checkout.ShippingExpress || q.Totals.ShippingCost != 14.99 {
		t.Errorf("Quote() totals = %+v", q.Totals)
	}
	// 349.97 + 14.99 + 27.9976 = 392.9576
	if q.Display.Total != "$392.96" || q.Display.TaxAmount != "$28.00" {
		t.Errorf("Quote() display = %+v", q.Display)
	}
}

func TestCheckoutService_PlaceOrder(t *testing.T) {
	env := newCartEnv(t, nil)
	ctx := context.Background()

	accounts := NewAccountService(persist.NewAccountRepository(memory.NewKVStore()), nil, testLogger())
	if err := accounts.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	svc := NewCheckoutService(env.svc, accounts, checkout.NewCalculator(checkout.DefaultRates()), env.metrics, testLogger())
	placed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return placed }

	if _, err := svc.PlaceOrder(ctx, checkout.ShippingStandard); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("PlaceOrder(empty) error = %v, want ErrEmptyCart", err)
	}

	if _, err := accounts.SignUp(ctx, "Ana", "ana@x.com", "secret1"); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	_, _ = env.svc.AddItem(ctx, 8, 1)

	order, err := svc.PlaceOrder(ctx, checkout.ShippingStandard)
	if err != nil {
		t.Fatalf("PlaceOrder() error: %v", err)
	}
	if _, err := uuid.Parse(order.ID); err != nil {
		t.Errorf("order ID %q is not a UUID: %v", order.ID, err)
	}
	if !order.PlacedAt.Equal(placed) || order.Customer != "ana@x.com" {
		t.Errorf("order = %+v", order)
	}
	// 39.99 + 4.99 + 3.1992 = 48.1792
	if order.Display.Total != "$48.18" {
		t.Errorf("order total = %s, want $48.18", order.Display.Total)
	}
	if env.svc.ItemCount() != 1 {
		t.Error("PlaceOrder() must not clear the cart")
	}
	if got := testutil.ToFloat64(env.metrics.OrdersPlaced); got != 1 {
		t.Errorf("orders_placed_total = %v, want 1", got)
	}
}

// fakeJournal is an in-memory OrderJournal.
type fakeJournal struct {
	orders []Order
	err    error
}

func (f *fakeJournal) Append(_ context.Context, o Order) error {
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakeJournal) Recent(n int) []Order {
	var out []Order
	for i := len(f.orders) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, f.orders[i])
	}
	return out
}

func TestCheckoutService_PlaceOrder_Journal(t *testing.T) {
	env := newCartEnv(t, nil)
	ctx := context.Background()
	j := &fakeJournal{}
	svc := NewCheckoutService(env.svc, nil, checkout.NewCalculator(checkout.DefaultRates()), env.metrics, testLogger(),
		WithOrderJournal(j))

	if got := svc.RecentOrders(5); len(got) != 0 {
		t.Errorf("RecentOrders() before any order = %d, want 0", len(got))
	}

	_, _ = env.svc.AddItem(ctx, 1, 1)
	first, err := svc.PlaceOrder(ctx, checkout.ShippingStandard)
	if err != nil {
		t.Fatalf("PlaceOrder() error: %v", err)
	}
	second, err := svc.PlaceOrder(ctx, checkout.ShippingExpress)
	if err != nil {
		t.Fatalf("PlaceOrder() error: %v", err)
	}

	recent := svc.RecentOrders(5)
	if len(recent) != 2 || recent[0].ID != second.ID || recent[1].ID != first.ID {
		t.Errorf("RecentOrders() = %+v, want newest first", recent)
	}

	j.err = errors.New("disk full")
	if _, err := svc.PlaceOrder(ctx, checkout.ShippingStandard); err == nil {
		t.Fatal("PlaceOrder() with failing journal succeeded")
	}
	if got := testutil.ToFloat64(env.metrics.OrdersPlaced); got != 2 {
		t.Errorf("orders_placed_total = %v, want 2 (failed record not counted)", got)
	}
}

func TestCheckoutService_RecentOrdersWithoutJournal(t *testing.T) {
	env := newCartEnv(t, nil)
	svc := NewCheckoutService(env.svc, nil, checkout.NewCalculator(checkout.DefaultRates()), nil, testLogger())
	if got := svc.RecentOrders(10); got != nil {
		t.Errorf("RecentOrders() = %v, want nil", got)
	}
}
