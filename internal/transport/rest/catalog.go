package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/pkg/web"
)

// Listing returns the products matching the category, minPrice, maxPrice and search parameters.
func (h *Handler) Listing(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	mLogger.DebugContext(r.Context(), "Received request for product listing", "query", r.URL.RawQuery)
	listing, err := h.catalog.Listing(r.Context(), r.URL.Query())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error building product listing", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully built product listing", "shown", listing.Shown, "total", listing.Total)
	web.RespondJSON(w, mLogger, http.StatusOK, listing)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.catalog.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storeerrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve product with ID %s", id))
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product", "ID", found.ID, "Title", found.Title)
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Categories returns the filter sidebar options.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.catalog.Categories(r.Context()))
}

// UpdateFilters applies a category and price change to the current query.
func (h *Handler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req service.FilterUpdateDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &req) {
		return
	}
	state, err := h.catalog.UpdateFilters(r.Context(), req)
	h.respondFilterState(w, r, mLogger, state, err)
}

// EditPrice edits one bound of the price range.
func (h *Handler) EditPrice(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req service.PriceEditDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &req) {
		return
	}
	state, err := h.catalog.EditPrice(r.Context(), req)
	h.respondFilterState(w, r, mLogger, state, err)
}

// ResetFilters restores the default category and price range.
func (h *Handler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req service.QueryDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &req) {
		return
	}
	state, err := h.catalog.ResetFilters(r.Context(), req)
	h.respondFilterState(w, r, mLogger, state, err)
}

// SubmitSearch applies a search box submission.
func (h *Handler) SubmitSearch(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req service.SearchDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &req) {
		return
	}
	state, err := h.catalog.SubmitSearch(r.Context(), req)
	h.respondFilterState(w, r, mLogger, state, err)
}

func (h *Handler) respondFilterState(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, state *service.FilterStateDto, err error) {
	if err != nil {
		if errors.Is(err, storeerrors.ErrInvalidQuery) {
			mLogger.WarnContext(r.Context(), "Invalid listing query", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid query")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error updating filters", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to update filters")
		return
	}
	mLogger.DebugContext(r.Context(), "Filters updated", "query", state.Query)
	web.RespondJSON(w, mLogger, http.StatusOK, state)
}
