package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/lumenshop/storefront/internal/domain/catalog"
	"github.com/lumenshop/storefront/internal/port/outbound"
)

// healthTimeout bounds each component probe.
const healthTimeout = 2 * time.Second

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"` // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// HealthChecker verifies component health.
type HealthChecker struct {
	store   outbound.KeyValueStore
	catalog catalog.Catalog
	version string
}

// NewHealthChecker creates a HealthChecker. Pass nil for components that
// aren't available.
func NewHealthChecker(store outbound.KeyValueStore, cat catalog.Catalog, version string) *HealthChecker {
	return &HealthChecker{store: store, catalog: cat, version: version}
}

// Check probes the state store and the catalog.
func (h *HealthChecker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.store != nil {
		probeCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		keys, err := h.store.Keys(probeCtx)
		cancel()
		if err != nil {
			checks["state_store"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["state_store"] = fmt.Sprintf("ok: %d keys", len(keys))
		}
	} else {
		checks["state_store"] = "not configured"
	}

	if h.catalog != nil {
		probeCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		cats, err := h.catalog.ListCategories(probeCtx)
		cancel()
		if err != nil {
			checks["catalog"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["catalog"] = fmt.Sprintf("ok: %d categories", len(cats))
		}
	} else {
		checks["catalog"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthResponse{Status: status, Checks: checks, Version: h.version}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(health)
	})
}
