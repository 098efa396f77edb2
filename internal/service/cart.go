package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/metrics"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/google/uuid"
)

// CheckoutMessage is shown to the shopper until payment is implemented.
const CheckoutMessage = "Checkout functionality coming soon!"

// CartService defines the cart page operations.
type CartService interface {
	// Get returns the cart with its priced summary.
	Get(ctx context.Context) CartDto

	// AddItem adds quantity units of a catalog product.
	// Returns ErrProductNotFound if the product is not in the catalog.
	AddItem(ctx context.Context, req AddItemDto) (*CartDto, error)

	// UpdateQuantity sets the quantity of a cart line. A quantity below 1 removes the line.
	UpdateQuantity(ctx context.Context, productID string, req UpdateQuantityDto) CartDto

	// RemoveItem removes a cart line. Unknown ids are ignored.
	RemoveItem(ctx context.Context, productID string) CartDto

	// Clear empties the cart.
	Clear(ctx context.Context) CartDto

	// Checkout announces the cart for checkout. The cart is left untouched.
	// Returns ErrEmptyCart if there is nothing to check out.
	Checkout(ctx context.Context) (*CheckoutDto, error)

	// Subscribe registers fn for cart changes and returns the function that removes it.
	Subscribe(fn func(CartDto)) (unsubscribe func())
}

// CartDto is the cart page model.
type CartDto struct {
	cart.State
	Summary cart.OrderSummary `json:"summary"`
}

// AddItemDto adds a product to the cart. Quantity defaults to 1.
type AddItemDto struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=999"`
}

// UpdateQuantityDto sets a line quantity. Zero or negative values remove the line.
type UpdateQuantityDto struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CheckoutDto acknowledges a checkout request.
type CheckoutDto struct {
	CheckoutID uuid.UUID         `json:"checkoutId"`
	Message    string            `json:"message"`
	Summary    cart.OrderSummary `json:"summary"`
}

// ProductFinder resolves catalog products by id.
type ProductFinder interface {
	FindByID(id string) (catalog.Product, error)
}

// Cart implements CartService over the process cart store.
type Cart struct {
	store     *cart.Store
	products  ProductFinder
	policy    cart.SummaryPolicy
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewCartService creates a CartService. A nil publisher disables checkout events.
func NewCartService(store *cart.Store, products ProductFinder, policy cart.SummaryPolicy,
	publisher messaging.Publisher, m *metrics.Metrics, logger *slog.Logger) *Cart {
	store.OnChange(m.IncMutation)
	return &Cart{
		store:     store,
		products:  products,
		policy:    policy,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With("component", "cart_service"),
		now:       time.Now,
	}
}

func (s *Cart) Get(_ context.Context) CartDto {
	return s.toDto(s.store.Snapshot())
}

func (s *Cart) AddItem(ctx context.Context, req AddItemDto) (*CartDto, error) {
	product, err := s.products.FindByID(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to add product %s: %w", req.ProductID, err)
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	dto := s.toDto(s.store.AddItems(ctx, product, quantity))
	return &dto, nil
}

func (s *Cart) UpdateQuantity(ctx context.Context, productID string, req UpdateQuantityDto) CartDto {
	return s.toDto(s.store.UpdateQuantity(ctx, productID, *req.Quantity))
}

func (s *Cart) RemoveItem(ctx context.Context, productID string) CartDto {
	return s.toDto(s.store.RemoveItem(ctx, productID))
}

func (s *Cart) Clear(ctx context.Context) CartDto {
	return s.toDto(s.store.ClearCart(ctx))
}

func (s *Cart) Checkout(ctx context.Context) (*CheckoutDto, error) {
	state := s.store.Snapshot()
	if len(state.Items) == 0 {
		return nil, storeerrors.ErrEmptyCart
	}
	summary := cart.Summarize(state, s.policy)
	event := events.CartCheckoutRequested{
		CheckoutID: uuid.New(),
		Lines:      make([]events.CartLine, 0, len(state.Items)),
		TotalItems: state.TotalItems,
		Subtotal:   summary.Subtotal,
		Shipping:   summary.Shipping,
		Tax:        summary.Tax,
		Total:      summary.Total,
		CreatedAt:  s.now().UTC(),
	}
	for _, e := range state.Items {
		event.Lines = append(event.Lines, events.CartLine{
			ProductID: e.Product.ID,
			Title:     e.Product.Title,
			Price:     e.Product.Price,
			Quantity:  e.Quantity,
		})
	}

	if s.publisher != nil {
		// the shopper still gets the acknowledgement when the broker is down
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish checkout event", "checkout_id", event.CheckoutID, "error", err)
		}
	}
	s.metrics.IncCheckout()
	s.logger.InfoContext(ctx, "Checkout requested", "checkout_id", event.CheckoutID, "total", summary.Total)

	return &CheckoutDto{
		CheckoutID: event.CheckoutID,
		Message:    CheckoutMessage,
		Summary:    summary,
	}, nil
}

func (s *Cart) Subscribe(fn func(CartDto)) (unsubscribe func()) {
	return s.store.Subscribe(func(state cart.State) {
		fn(s.toDto(state))
	})
}

func (s *Cart) toDto(state cart.State) CartDto {
	return CartDto{
		State:   state,
		Summary: cart.Summarize(state, s.policy),
	}
}
