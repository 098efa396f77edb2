// Package rest provides HTTP handlers for the catalog and cart.
package rest

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/abgdnv/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

type Handler struct {
	catalog  service.CatalogService
	cart     service.CartService
	validate *validator.Validate
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// quit is closed on server shutdown to end open cart event streams.
	quit      chan struct{}
	closeOnce sync.Once
}

// NewHandler creates a new Handler with the provided services.
func NewHandler(catalog service.CatalogService, cart service.CartService, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		cart:     cart,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger.With("component", "rest"),
		quit:   make(chan struct{}),
	}
}

// RegisterRoutes registers the HTTP routes for the storefront.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Listing)
			r.Get("/{id}", h.FindByID)
		})
		r.Get("/categories", h.Categories)

		r.Route("/filters", func(r chi.Router) {
			r.Post("/", h.UpdateFilters)
			r.Post("/price", h.EditPrice)
			r.Post("/reset", h.ResetFilters)
		})
		r.Post("/search", h.SubmitSearch)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Route("/items/{id}", func(r chi.Router) {
				r.Put("/", h.UpdateQuantity)
				r.Delete("/", h.RemoveItem)
			})
			r.Post("/checkout", h.Checkout)
			r.Get("/events", h.CartEvents)
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// Close ends all open cart event streams. Safe to call more than once.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
