// Package app contains the application setup for the storefront.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/metrics"
	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/internal/transport/rest"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/go-chi/chi/v5"
)

// ServiceName labels logs, traces and the environment variable prefix.
const ServiceName = "storefront"

type Dependencies struct {
	CatalogService service.CatalogService
	CartService    service.CartService
	Metrics        *metrics.Metrics
	// MetricsPath is where the registry is served. Empty disables the endpoint.
	MetricsPath string
	Logger      *slog.Logger
}

// LoadCatalog reads the configured catalog file, or the bundled one when none is set.
func LoadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.File == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.File)
}

// SummaryPolicy maps the checkout block onto the cart pricing rules.
func SummaryPolicy(cfg config.CheckoutConfig) cart.SummaryPolicy {
	return cart.SummaryPolicy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFee:           cfg.ShippingFee,
		TaxRate:               cfg.TaxRate,
	}
}

// SetupDependencies restores the cart from storage and builds the services on top of it.
func SetupDependencies(ctx context.Context, cfg *config.Config, storage cart.Storage,
	publisher messaging.Publisher, logger *slog.Logger) (*Dependencies, error) {

	products, err := LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	metricsPath := ""
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsPath = cfg.Metrics.Path
	}

	cartStore := cart.NewStore(ctx, metrics.InstrumentStorage(storage, m), logger)
	m.ObserveCart(cartStore.Snapshot())
	if m != nil {
		cartStore.Subscribe(m.ObserveCart)
	}

	catalogService, err := service.NewCatalogService(products, cfg.Catalog.CacheSize, m, logger)
	if err != nil {
		return nil, err
	}
	cartService := service.NewCartService(cartStore, products, SummaryPolicy(cfg.Checkout), publisher, m, logger)

	return &Dependencies{
		CatalogService: catalogService,
		CartService:    cartService,
		Metrics:        m,
		MetricsPath:    metricsPath,
		Logger:         logger,
	}, nil
}

// SetupHttpHandler initializes the routes and middleware for the storefront.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux, _ := newRouter(deps)
	return mux
}

// newRouter also returns the handler so the server can end its event streams on shutdown.
func newRouter(deps *Dependencies) (*chi.Mux, *rest.Handler) {
	mux := server.NewChiRouter(deps.Logger)
	handler := rest.NewHandler(deps.CatalogService, deps.CartService, deps.Logger)
	handler.RegisterRoutes(mux)
	if deps.MetricsPath != "" {
		mux.Method(http.MethodGet, deps.MetricsPath, deps.Metrics.Handler())
	}
	return mux, handler
}

// SetupHttpServer creates and configures an HTTP server for the storefront.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux, handler := newRouter(deps)

	var h http.Handler = mux
	if cfg.Telemetry.Enabled {
		h = server.Traced(mux, ServiceName)
	}

	srv := server.NewHTTPServer(server.FromConfig(cfg.HTTPServer), h)
	srv.RegisterOnShutdown(handler.Close)
	return srv
}
