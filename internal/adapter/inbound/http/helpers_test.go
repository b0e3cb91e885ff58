package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumenshop/storefront/internal/adapter/outbound/cel"
	"github.com/lumenshop/storefront/internal/adapter/outbound/memory"
	"github.com/lumenshop/storefront/internal/adapter/outbound/persist"
	"github.com/lumenshop/storefront/internal/domain/cart"
	"github.com/lumenshop/storefront/internal/domain/catalog"
	"github.com/lumenshop/storefront/internal/domain/checkout"
	"github.com/lumenshop/storefront/internal/service"
)

// discardLogger returns a logger that discards all output (for tests)
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() *memory.CatalogStore {
	return memory.NewCatalogStore(
		[]catalog.Product{
			{ID: 1, Name: "Minimalist Desk Lamp", Slug: "minimalist-desk-lamp", Price: 89.99, Stock: 45,
				Category: "Home Office", Images: []string{"lamp.jpg"}, IsFeatured: true},
			{ID: 3, Name: "Wireless Earbuds", Slug: "wireless-earbuds", Price: 129.99, Stock: 62,
				Category: "Electronics", Images: []string{"earbuds.jpg"}, Tags: []string{"audio"}},
			{ID: 9, Name: "Sold Out Mug", Slug: "sold-out-mug", Price: 12.50, Stock: 0,
				Category: "Home Decor"},
		},
		[]catalog.Category{
			{ID: 1, Name: "Electronics", Slug: "electronics"},
			{ID: 5, Name: "Home Office", Slug: "home-office"},
			{ID: 8, Name: "Home Decor", Slug: "home-decor"},
		},
	)
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	kv       *memory.KVStore
	carts    *service.CartService
	accounts *service.AccountService
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T, extra ...APIOption) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := discardLogger()
	kv := memory.NewKVStore()
	cat := testCatalog()
	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)

	eval, err := cel.NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}
	catalogs := service.NewCatalogService(cat, eval, logger)
	carts := service.NewCartService(cat, persist.NewCartRepository(kv), cart.NewIDGenerator(), metrics, logger)
	if err := carts.Init(ctx); err != nil {
		t.Fatalf("cart Init() error: %v", err)
	}
	accounts := service.NewAccountService(persist.NewAccountRepository(kv), metrics, logger)
	if err := accounts.Init(ctx); err != nil {
		t.Fatalf("account Init() error: %v", err)
	}
	checkouts := service.NewCheckoutService(carts, accounts, checkout.NewCalculator(checkout.DefaultRates()), metrics, logger)

	opts := append([]APIOption{
		WithCatalogService(catalogs),
		WithCartService(carts),
		WithCheckoutService(checkouts),
		WithAccountService(accounts),
		WithAPILogger(logger),
	}, extra...)
	api := NewAPIHandler(opts...)
	srv := NewServer(api,
		WithLogger(logger),
		WithRegistry(reg),
		WithHealthChecker(NewHealthChecker(kv, cat, "test")),
	)
	return &testEnv{
		server:   srv,
		handler:  srv.Handler(),
		kv:       kv,
		carts:    carts,
		accounts: accounts,
		registry: reg,
	}
}

// do sends a request through the full handler chain.
func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}
