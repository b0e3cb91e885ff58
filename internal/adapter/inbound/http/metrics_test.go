package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := MetricsMiddleware(metrics)(mux)

	for _, slug := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/"+slug, nil))
	}

	got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET", "GET /api/products/{slug}", "ok"))
	if got != 2 {
		t.Errorf("requests_total = %v, want 2 under the route pattern", got)
	}
	if n := testutil.CollectAndCount(metrics.RequestDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
	if v := testutil.ToFloat64(metrics.RequestsInFlight); v != 0 {
		t.Errorf("in flight = %v after requests finished, want 0", v)
	}
}

func TestMetricsMiddleware_ErrorAndUnmatched(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	handler := MetricsMiddleware(metrics)(mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/fail", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if v := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("POST", "POST /fail", "error")); v != 1 {
		t.Errorf("error count = %v, want 1", v)
	}
	if v := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET", unmatchedRoute, "error")); v != 1 {
		t.Errorf("unmatched count = %v, want 1", v)
	}
}

func TestMetricsMiddleware_SkipsHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	handler := MetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, path := range []string{"/health", "/metrics"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if n := testutil.CollectAndCount(metrics.RequestsTotal); n != 0 {
		t.Errorf("requests_total series = %d, want 0", n)
	}
}

func TestStatusToLabel(t *testing.T) {
	tests := map[int]string{200: "ok", 201: "ok", 304: "ok", 400: "error", 404: "error", 500: "error"}
	for code, want := range tests {
		if got := statusToLabel(code); got != want {
			t.Errorf("statusToLabel(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/api/products", nil)
	env.do(t, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: 1, Quantity: 1})

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`storefront_http_requests_total{method="GET",route="GET /api/products",status="ok"} 1`,
		`storefront_cart_mutations_total{op="add"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestMetricsMiddleware_ObservesDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cart", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := MetricsMiddleware(metrics)(mux)
	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	}

	observer, err := metrics.RequestDuration.GetMetricWithLabelValues("GET", "GET /api/cart")
	if err != nil {
		t.Fatal(err)
	}
	var m dto.Metric
	if err := observer.(prometheus.Histogram).Write(&m); err != nil {
		t.Fatal(err)
	}
	if got := m.GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("duration sample count = %d, want 3", got)
	}
}
