package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	storehttp "github.com/lumenshop/storefront/internal/adapter/inbound/http"
	"github.com/lumenshop/storefront/internal/adapter/outbound/journal"
	"github.com/lumenshop/storefront/internal/adapter/outbound/memory"
	"github.com/lumenshop/storefront/internal/adapter/outbound/state"
	"github.com/lumenshop/storefront/internal/domain/ratelimit"
	"github.com/lumenshop/storefront/internal/service"
)

type apiClient struct {
	t    *testing.T
	base string
}

func (c apiClient) do(method, path string, body any, out any) int {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, c.base+path, r)
	if err != nil {
		c.t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// TestHTTPFullPath_ShoppingSession drives a browse, cart, sign-up and
// checkout session through the real middleware chain over a file store.
func TestHTTPFullPath_ShoppingSession(t *testing.T) {
	dir := t.TempDir()
	store := state.NewFileStore(filepath.Join(dir, "state.json"), testLogger())
	defer func() { _ = store.Close() }()

	j, err := journal.Open(journal.Config{Dir: filepath.Join(dir, "orders")}, testLogger())
	if err != nil {
		t.Fatalf("journal.Open() error: %v", err)
	}
	defer func() { _ = j.Close() }()

	s := boot(t, store, service.WithOrderJournal(j))
	limiter := memory.NewAttemptLimiter()
	defer limiter.Stop()

	api := storehttp.NewAPIHandler(
		storehttp.WithCatalogService(s.catalogs),
		storehttp.WithCartService(s.carts),
		storehttp.WithCheckoutService(s.checkouts),
		storehttp.WithAccountService(s.accounts),
		storehttp.WithAuthRateLimit(limiter, ratelimit.PerMinute(5)),
		storehttp.WithAPILogger(testLogger()),
	)
	srv := storehttp.NewServer(api,
		storehttp.WithLogger(testLogger()),
		storehttp.WithRegistry(s.registry),
		storehttp.WithHealthChecker(storehttp.NewHealthChecker(store, s.catalog, "test")),
	)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	c := apiClient{t: t, base: ts.URL}

	// Browse.
	var featured []map[string]any
	if code := c.do(http.MethodGet, "/api/products/featured", nil, &featured); code != http.StatusOK || len(featured) == 0 {
		t.Fatalf("featured = %d, %d products", code, len(featured))
	}
	var lamp map[string]any
	if code := c.do(http.MethodGet, "/api/products/minimalist-desk-lamp", nil, &lamp); code != http.StatusOK {
		t.Fatalf("get lamp status = %d", code)
	}

	// Cart.
	var added struct {
		Item struct {
			ID       int64 `json:"id"`
			Quantity int   `json:"quantity"`
		} `json:"item"`
	}
	if code := c.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": 1, "quantity": 1}, &added); code != http.StatusCreated && code != http.StatusOK {
		t.Fatalf("add status = %d", code)
	}
	if code := c.do(http.MethodPost, "/api/cart/items", map[string]any{"productId": 1, "quantity": 1}, nil); code >= 300 {
		t.Fatalf("second add status = %d", code)
	}
	var view service.CartView
	c.do(http.MethodGet, "/api/cart", nil, &view)
	if len(view.Items) != 1 || view.ItemCount != 2 || view.SubtotalDisplay != "$179.98" {
		t.Fatalf("cart = %+v, want one merged lamp line x2", view)
	}

	// Account.
	var session struct {
		Authenticated bool `json:"authenticated"`
	}
	signup := map[string]string{"name": "Ana", "email": "ana@example.com", "password": "secret1"}
	if code := c.do(http.MethodPost, "/api/auth/signup", signup, &session); code != http.StatusCreated || !session.Authenticated {
		t.Fatalf("signup = %d %+v", code, session)
	}

	// Checkout.
	var quote service.Quote
	c.do(http.MethodGet, "/api/checkout/quote?shipping=standard", nil, &quote)
	if quote.Display.Total != "$199.37" {
		t.Errorf("quote total = %s, want $199.37", quote.Display.Total)
	}
	var order service.Order
	if code := c.do(http.MethodPost, "/api/checkout", map[string]string{"shipping": "standard"}, &order); code != http.StatusCreated {
		t.Fatalf("checkout status = %d", code)
	}
	if order.Customer != "ana@example.com" {
		t.Errorf("order customer = %q", order.Customer)
	}

	var history []service.Order
	c.do(http.MethodGet, "/api/orders?limit=5", nil, &history)
	if len(history) != 1 || history[0].ID != order.ID {
		t.Errorf("history = %+v, want the placed order", history)
	}

	// The cart survives checkout and is on disk.
	restarted := boot(t, store)
	if restarted.carts.ItemCount() != 2 {
		t.Errorf("persisted cart has %d items, want 2", restarted.carts.ItemCount())
	}

	// Health and metrics.
	var health map[string]any
	if code := c.do(http.MethodGet, "/health", nil, &health); code != http.StatusOK {
		t.Errorf("health status = %d (%v)", code, health)
	}
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	for _, want := range []string{"storefront_orders_placed_total 1", "storefront_http_requests_total"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

// TestHTTPFullPath_SignInThrottled verifies repeated bad sign-ins from one
// client are answered with 429 while other routes keep working.
func TestHTTPFullPath_SignInThrottled(t *testing.T) {
	s := boot(t, memory.NewKVStore())
	limiter := memory.NewAttemptLimiter()
	defer limiter.Stop()

	api := storehttp.NewAPIHandler(
		storehttp.WithCartService(s.carts),
		storehttp.WithAccountService(s.accounts),
		storehttp.WithAuthRateLimit(limiter, ratelimit.PerMinute(3)),
	)
	ts := httptest.NewServer(storehttp.NewServer(api, storehttp.WithLogger(testLogger())).Handler())
	defer ts.Close()
	c := apiClient{t: t, base: ts.URL}

	bad := map[string]string{"email": "who@example.com", "password": "nope12"}
	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		codes = append(codes, c.do(http.MethodPost, "/api/auth/signin", bad, nil))
	}
	want := []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("attempt %d status = %d, want %d", i+1, codes[i], want[i])
		}
	}

	if code := c.do(http.MethodGet, "/api/cart", nil, nil); code != http.StatusOK {
		t.Errorf("cart status while throttled = %d, want 200", code)
	}
}
