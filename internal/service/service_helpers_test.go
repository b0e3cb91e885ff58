package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumenshop/storefront/internal/adapter/outbound/memory"
	"github.com/lumenshop/storefront/internal/adapter/outbound/persist"
	"github.com/lumenshop/storefront/internal/domain/cart"
	"github.com/lumenshop/storefront/internal/domain/catalog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCatalog() *memory.CatalogStore {
	return memory.NewCatalogStore(
		[]catalog.Product{
			{ID: 1, Name: "Minimalist Desk Lamp", Slug: "minimalist-desk-lamp", Price: 89.99, Stock: 45,
				Category: "Home Office", Images: []string{"lamp.jpg"}, IsFeatured: true},
			{ID: 3, Name: "Wireless Earbuds", Slug: "wireless-earbuds", Price: 129.99, Stock: 62,
				Category: "Electronics", Images: []string{"earbuds.jpg"}, IsFeatured: true, Tags: []string{"audio"}},
			{ID: 5, Name: "Portable Bluetooth Speaker", Slug: "portable-bluetooth-speaker", Price: 79.99, Stock: 35,
				Category: "Electronics", Tags: []string{"audio"}},
			{ID: 8, Name: "Minimalist Wall Clock", Slug: "minimalist-wall-clock", Price: 39.99, Stock: 55,
				Category: "Home Decor"},
		},
		[]catalog.Category{
			{ID: 1, Name: "Electronics", Slug: "electronics"},
			{ID: 5, Name: "Home Office", Slug: "home-office"},
			{ID: 8, Name: "Home Decor", Slug: "home-decor"},
		},
	)
}

// fixedClock returns a clock frozen at one instant so line IDs come from the
// generator's monotonic bump.
func fixedClock() func() time.Time {
	at := time.UnixMilli(1_700_000_000_000)
	return func() time.Time { return at }
}

type cartEnv struct {
	svc     *CartService
	kv      *memory.KVStore
	metrics *Metrics
}

func newCartEnv(t *testing.T, kv *memory.KVStore) cartEnv {
	t.Helper()
	if kv == nil {
		kv = memory.NewKVStore()
	}
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := NewCartService(testCatalog(), persist.NewCartRepository(kv),
		cart.NewIDGeneratorWithClock(fixedClock()), metrics, testLogger())
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	return cartEnv{svc: svc, kv: kv, metrics: metrics}
}
