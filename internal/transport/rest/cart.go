package rest

import (
	"errors"
	"fmt"
	"net/http"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/pkg/web"
)

// GetCart returns the cart with its order summary.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.Get(r.Context()))
}

// AddItem adds a catalog product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req service.AddItemDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &req) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to add cart item", "productID", req.ProductID, "quantity", req.Quantity)
	updated, err := h.cart.AddItem(r.Context(), req)
	if err != nil {
		if errors.Is(err, storeerrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", req.ProductID)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", req.ProductID))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error adding cart item", "ID", req.ProductID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to add item to cart")
		return
	}
	mLogger.InfoContext(r.Context(), "Cart item added", "ID", req.ProductID, "totalItems", updated.TotalItems)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// UpdateQuantity sets a line quantity. Quantities below 1 remove the line.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var req service.UpdateQuantityDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &req) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update cart item", "ID", id, "quantity", *req.Quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.UpdateQuantity(r.Context(), id, req))
}

// RemoveItem removes a line from the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to remove cart item", "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.RemoveItem(r.Context(), id))
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	mLogger.InfoContext(r.Context(), "Received request to clear cart")
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.Clear(r.Context()))
}

// Checkout acknowledges a checkout request. The cart is kept.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	result, err := h.cart.Checkout(r.Context())
	if err != nil {
		if errors.Is(err, storeerrors.ErrEmptyCart) {
			mLogger.WarnContext(r.Context(), "Checkout of empty cart")
			web.RespondError(w, mLogger, http.StatusConflict, "Cart is empty")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error during checkout", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to check out")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusAccepted, result)
}
