package http

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/lumenshop/storefront/internal/adapter/outbound/memory"
	"github.com/lumenshop/storefront/internal/adapter/outbound/persist"
	"github.com/lumenshop/storefront/internal/domain/cart"
	"github.com/lumenshop/storefront/internal/domain/catalog"
	"github.com/lumenshop/storefront/internal/domain/ratelimit"
	"github.com/lumenshop/storefront/internal/service"
)

func TestAPI_ListProducts(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		target   string
		wantCode int
		wantIDs  []int64
	}{
		{"all", "/api/products", http.StatusOK, []int64{1, 3, 9}},
		{"by category slug", "/api/products?category=electronics", http.StatusOK, []int64{3}},
		{"price band", "/api/products?price=under-50", http.StatusOK, []int64{9}},
		{"sort high to low", "/api/products?sort=price-high-low", http.StatusOK, []int64{3, 1, 9}},
		{"featured flag", "/api/products?featured=true", http.StatusOK, []int64{1}},
		{"where expression", "/api/products?where=" + urlEscape("in_stock && price < 100.0"), http.StatusOK, []int64{1}},
		{"unknown band", "/api/products?price=cheap", http.StatusBadRequest, nil},
		{"bad expression", "/api/products?where=" + urlEscape("price +"), http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			products := decode[[]catalog.Product](t, rec)
			got := make([]int64, len(products))
			for i, p := range products {
				got[i] = p.ID
			}
			if !equalIDs(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestAPI_GetProduct(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products/wireless-earbuds", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if p := decode[catalog.Product](t, rec); p.ID != 3 {
		t.Errorf("product id = %d, want 3", p.ID)
	}

	rec = env.do(t, http.MethodGet, "/api/products/1", nil)
	if p := decode[catalog.Product](t, rec); p.Slug != "minimalist-desk-lamp" {
		t.Errorf("numeric lookup slug = %q", p.Slug)
	}

	rec = env.do(t, http.MethodGet, "/api/products/no-such-thing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown slug status = %d, want 404", rec.Code)
	}
}

func TestAPI_FeaturedAndCategories(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products/featured", nil)
	if products := decode[[]catalog.Product](t, rec); len(products) != 1 || products[0].ID != 1 {
		t.Errorf("featured = %+v, want product 1", products)
	}

	rec = env.do(t, http.MethodGet, "/api/categories", nil)
	if cats := decode[[]catalog.Category](t, rec); len(cats) != 3 {
		t.Errorf("categories = %d, want 3", len(cats))
	}
}

func TestAPI_CartLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cart", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET cart status = %d", rec.Code)
	}
	if view := decode[service.CartView](t, rec); len(view.Items) != 0 || view.ItemCount != 0 {
		t.Fatalf("new cart = %+v, want empty", view)
	}

	rec = env.do(t, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: 1, Quantity: 2})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	added := decode[addItemResponse](t, rec)
	if added.Item.ProductID != 1 || added.Item.Quantity != 2 || added.Item.UnitPrice != 89.99 {
		t.Errorf("added item = %+v", added.Item)
	}
	if added.Cart.SubtotalDisplay != "$179.98" {
		t.Errorf("subtotal = %q, want $179.98", added.Cart.SubtotalDisplay)
	}

	// Adding the same product merges into the existing line.
	rec = env.do(t, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: 1})
	merged := decode[addItemResponse](t, rec)
	if merged.Item.ID != added.Item.ID || merged.Item.Quantity != 3 {
		t.Errorf("merged item = %+v, want line %d quantity 3", merged.Item, added.Item.ID)
	}
	if len(merged.Cart.Items) != 1 {
		t.Errorf("cart lines = %d, want 1", len(merged.Cart.Items))
	}

	lineURL := "/api/cart/items/" + strconv.FormatInt(added.Item.ID, 10)
	rec = env.do(t, http.MethodPut, lineURL, updateItemRequest{Quantity: 5})
	if view := decode[service.CartView](t, rec); view.ItemCount != 5 {
		t.Errorf("item count after update = %d, want 5", view.ItemCount)
	}

	rec = env.do(t, http.MethodDelete, lineURL, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	if view := decode[service.CartView](t, rec); len(view.Items) != 0 {
		t.Errorf("cart after remove = %+v", view)
	}

	// Removal is idempotent.
	rec = env.do(t, http.MethodDelete, lineURL, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("second remove status = %d, want 200", rec.Code)
	}
	if view := decode[service.CartView](t, rec); len(view.Items) != 0 {
		t.Errorf("cart after second remove = %+v", view)
	}

	rec = env.do(t, http.MethodPut, lineURL, updateItemRequest{Quantity: 2})
	if rec.Code != http.StatusNotFound {
		t.Errorf("update of removed line status = %d, want 404", rec.Code)
	}

	// The cart is persisted under the shared key.
	raw, ok, err := env.kv.Get(context.Background(), persist.KeyCart)
	if err != nil || !ok || raw != "[]" {
		t.Errorf("stored cart = (%q, %v, %v), want []", raw, ok, err)
	}
}

func TestAPI_AddCartItem_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{"unknown product", addItemRequest{ProductID: 404, Quantity: 1}, http.StatusNotFound},
		{"out of stock", addItemRequest{ProductID: 9, Quantity: 1}, http.StatusConflict},
		{"bad json", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/cart/items", tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
	if n := env.carts.ItemCount(); n != 0 {
		t.Errorf("cart item count = %d after failed adds, want 0", n)
	}
}

func TestAPI_AddCartItem_ClampsToStock(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: 1, Quantity: 1000})
	if got := decode[addItemResponse](t, rec).Item.Quantity; got != 45 {
		t.Errorf("quantity = %d, want clamped to stock 45", got)
	}
}

func TestAPI_UpdateCartItem_ZeroRemoves(t *testing.T) {
	env := newTestEnv(t)

	line, err := env.carts.AddItem(context.Background(), 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	rec := env.do(t, http.MethodPut, "/api/cart/items/"+strconv.FormatInt(line.ID, 10), updateItemRequest{Quantity: 0})
	if view := decode[service.CartView](t, rec); len(view.Items) != 0 {
		t.Errorf("cart = %+v, want line removed", view)
	}

	rec = env.do(t, http.MethodPut, "/api/cart/items/abc", updateItemRequest{Quantity: 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id status = %d, want 400", rec.Code)
	}
}

func TestAPI_CartQuantityLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	line, err := env.carts.AddItem(ctx, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	lineURL := "/api/cart/items/" + strconv.FormatInt(line.ID, 10)

	rec := env.do(t, http.MethodPut, lineURL, updateItemRequest{Quantity: math.MaxInt})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized update status = %d, want 400", rec.Code)
	}
	if n := env.carts.ItemCount(); n != 1 {
		t.Errorf("item count after rejected update = %d, want 1", n)
	}

	rec = env.do(t, http.MethodPut, lineURL, updateItemRequest{Quantity: cart.MaxQuantity})
	if rec.Code != http.StatusOK {
		t.Fatalf("update to limit status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: 1, Quantity: 1})
	if rec.Code != http.StatusConflict {
		t.Errorf("add past limit status = %d, want 409", rec.Code)
	}
	if n := env.carts.ItemCount(); n != cart.MaxQuantity {
		t.Errorf("item count = %d, want %d", n, cart.MaxQuantity)
	}
}

func TestAPI_CartETag(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cart", nil)
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional GET status = %d, want 304", rec.Code)
	}

	if _, err := env.carts.AddItem(context.Background(), 1, 1); err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET after change status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("ETag") == etag {
		t.Error("ETag unchanged after cart mutation")
	}
}

func TestAPI_ClearCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, id := range []int64{1, 3} {
		if _, err := env.carts.AddItem(ctx, id, 1); err != nil {
			t.Fatal(err)
		}
	}

	rec := env.do(t, http.MethodDelete, "/api/cart", nil)
	if view := decode[service.CartView](t, rec); len(view.Items) != 0 {
		t.Errorf("cart after clear = %+v", view)
	}
}

func TestAPI_Checkout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/checkout", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty cart checkout status = %d, want 422", rec.Code)
	}

	if _, err := env.carts.AddItem(context.Background(), 1, 2); err != nil {
		t.Fatal(err)
	}

	rec = env.do(t, http.MethodGet, "/api/checkout/quote?shipping=standard", nil)
	quote := decode[service.Quote](t, rec)
	if quote.Display.Total != "$199.37" {
		t.Errorf("standard total = %q, want $199.37", quote.Display.Total)
	}

	rec = env.do(t, http.MethodGet, "/api/checkout/quote?shipping=drone", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown shipping status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/checkout", placeOrderRequest{Shipping: "express"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	order := decode[service.Order](t, rec)
	if order.ID == "" {
		t.Error("order has no id")
	}
	if order.Display.ShippingCost != "$14.99" {
		t.Errorf("shipping = %q, want $14.99", order.Display.ShippingCost)
	}
	if env.carts.ItemCount() != 2 {
		t.Error("placing an order must not clear the cart")
	}
}

func TestAPI_Orders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/orders", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("orders without journal = %d %s, want 200 []", rec.Code, rec.Body.String())
	}

	for _, bad := range []string{"0", "-3", "ten"} {
		rec = env.do(t, http.MethodGet, "/api/orders?limit="+bad, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", bad, rec.Code)
		}
	}
}

func TestAPI_Auth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/me", nil)
	if s := decode[sessionResponse](t, rec); s.Authenticated || s.User != nil {
		t.Fatalf("me before sign-in = %+v", s)
	}

	signup := map[string]string{"name": "Ana", "email": "Ana@X.com", "password": "secret1"}
	rec = env.do(t, http.MethodPost, "/api/auth/signup", signup)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d (body %s)", rec.Code, rec.Body.String())
	}
	if s := decode[sessionResponse](t, rec); s.User == nil || s.User.Email != "ana@x.com" {
		t.Errorf("signup session = %+v", s)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/signup", signup)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"name": "Bo", "email": "bo@x.com", "password": "abc"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "password must be at least 6 characters") {
		t.Errorf("short password body = %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/auth/signout", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("signout status = %d, want 204", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/signin", signInRequest{Email: "ana@x.com", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/signin", signInRequest{Email: "ana@x.com", Password: "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/auth/me", nil)
	if s := decode[sessionResponse](t, rec); !s.Authenticated || s.User.Name != "Ana" {
		t.Errorf("me after sign-in = %+v", s)
	}
}

func TestAPI_AuthRateLimit(t *testing.T) {
	limiter := memory.NewAttemptLimiter()
	env := newTestEnv(t, WithAuthRateLimit(limiter, ratelimit.PerMinute(2)))

	bad := signInRequest{Email: "nobody@x.com", Password: "wrong1"}
	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodPost, "/api/auth/signin", bad); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}

	rec := env.do(t, http.MethodPost, "/api/auth/signin", bad)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d, want 429", rec.Code)
	}
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 30 {
		t.Errorf("Retry-After = %q, want 1..30 seconds", rec.Header().Get("Retry-After"))
	}

	// Sign-up counts separately.
	signup := map[string]string{"name": "Ana", "email": "ana@x.com", "password": "secret1"}
	if rec := env.do(t, http.MethodPost, "/api/auth/signup", signup); rec.Code != http.StatusCreated {
		t.Errorf("signup status = %d, want 201", rec.Code)
	}
	if n := limiter.Size(); n != 2 {
		t.Errorf("limiter tracks %d keys, want 2", n)
	}
}

func TestAPI_AuthRateLimitDisabled(t *testing.T) {
	env := newTestEnv(t, WithAuthRateLimit(memory.NewAttemptLimiter(), ratelimit.PerMinute(0)))
	bad := signInRequest{Email: "nobody@x.com", Password: "wrong1"}
	for i := 0; i < 20; i++ {
		if rec := env.do(t, http.MethodPost, "/api/auth/signin", bad); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:80", "2001:db8::1"},
		{"pipe", "pipe"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientIP(r); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestAPI_UnconfiguredRoutes(t *testing.T) {
	h := NewAPIHandler(WithAPILogger(discardLogger())).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a cart service", rec.Code)
	}
}

func urlEscape(s string) string {
	return strings.NewReplacer(" ", "%20", "&", "%26", "+", "%2B", "<", "%3C").Replace(s)
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
