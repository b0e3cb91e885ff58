package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the service-level Prometheus metrics.
// Pass to the services that record them; a nil *Metrics records nothing.
type Metrics struct {
	CartMutations   *prometheus.CounterVec
	CartLines       prometheus.Gauge
	StateRecoveries *prometheus.CounterVec
	AuthAttempts    *prometheus.CounterVec
	OrdersPlaced    prometheus.Counter

	// orderTotal is exported through OpenTelemetry when telemetry is enabled.
	orderTotal metric.Float64Histogram
}

// NewMetrics creates and registers all service metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CartMutations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Name:      "cart_mutations_total",
				Help:      "Total cart mutations committed to storage",
			},
			[]string{"op"}, // op=add/remove/update/clear
		),
		CartLines: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "storefront",
				Name:      "cart_lines",
				Help:      "Number of lines in the current cart",
			},
		),
		StateRecoveries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Name:      "state_recoveries_total",
				Help:      "Stored values discarded because they could not be decoded",
			},
			[]string{"key"},
		),
		AuthAttempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Name:      "auth_attempts_total",
				Help:      "Sign-up and sign-in attempts",
			},
			[]string{"op", "result"}, // op=signup/signin, result=ok/invalid/exists/error
		),
		OrdersPlaced: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "storefront",
				Name:      "orders_placed_total",
				Help:      "Total orders placed",
			},
		),
	}

	hist, err := otel.Meter(instrumentationName).Float64Histogram(
		"storefront.order.total",
		metric.WithDescription("Order totals including shipping and tax"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		otel.Handle(err)
	} else {
		m.orderTotal = hist
	}
	return m
}

func (m *Metrics) cartMutation(op string, lines int) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op).Inc()
	m.CartLines.Set(float64(lines))
}

func (m *Metrics) cartLoaded(lines int) {
	if m == nil {
		return
	}
	m.CartLines.Set(float64(lines))
}

func (m *Metrics) recovered(key string) {
	if m == nil {
		return
	}
	m.StateRecoveries.WithLabelValues(key).Inc()
}

func (m *Metrics) auth(op, result string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(op, result).Inc()
}
