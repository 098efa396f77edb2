// Package metrics exposes Prometheus collectors for cart and catalog activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the storefront collectors on a dedicated registry.
// All methods are safe on a nil receiver, which disables recording.
type Metrics struct {
	Registry        *prometheus.Registry
	CartMutations   *prometheus.CounterVec
	StorageErrors   *prometheus.CounterVec
	StorageDuration *prometheus.HistogramVec
	Listings        *prometheus.CounterVec
	Checkouts       prometheus.Counter
	CartItems       prometheus.Gauge
	CartValue       prometheus.Gauge
}

// New constructs and registers all metrics, plus the Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	mutations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart changes by operation.",
		},
		[]string{"op"},
	)
	storageErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_storage_errors_total",
			Help: "Failed cart storage calls by operation.",
		},
		[]string{"op"},
	)
	storageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_cart_storage_duration_seconds",
			Help:    "Latency of cart storage calls.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"op"},
	)
	listings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_catalog_listings_total",
			Help: "Catalog listings served, labelled by cache outcome.",
		},
		[]string{"cache"},
	)
	checkouts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Checkout requests accepted.",
		},
	)
	cartItems := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cart_items",
			Help: "Units currently in the cart.",
		},
	)
	cartValue := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cart_value",
			Help: "Total price of the cart.",
		},
	)

	registry.MustRegister(
		mutations, storageErrors, storageDuration, listings, checkouts, cartItems, cartValue,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry:        registry,
		CartMutations:   mutations,
		StorageErrors:   storageErrors,
		StorageDuration: storageDuration,
		Listings:        listings,
		Checkouts:       checkouts,
		CartItems:       cartItems,
		CartValue:       cartValue,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// IncMutation counts a cart change.
func (m *Metrics) IncMutation(op string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op).Inc()
}

// ObserveStorage records a storage call and counts it as an error when err is set.
func (m *Metrics) ObserveStorage(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StorageDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.StorageErrors.WithLabelValues(op).Inc()
	}
}

// IncListing counts a listing request as a cache "hit" or "miss".
func (m *Metrics) IncListing(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.Listings.WithLabelValues(label).Inc()
}

// IncCheckout counts an accepted checkout.
func (m *Metrics) IncCheckout() {
	if m == nil {
		return
	}
	m.Checkouts.Inc()
}

// ObserveCart updates the cart gauges. It has the cart.Observer signature.
func (m *Metrics) ObserveCart(state cart.State) {
	if m == nil {
		return
	}
	m.CartItems.Set(float64(state.TotalItems))
	m.CartValue.Set(state.TotalPrice)
}
