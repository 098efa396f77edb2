package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/google/uuid"
)

// CartLine is a product line captured at checkout time.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// CartCheckoutRequested carries the cart contents and its priced summary.
type CartCheckoutRequested struct {
	CheckoutID uuid.UUID  `json:"checkout_id"`
	Lines      []CartLine `json:"lines"`
	TotalItems int        `json:"total_items"`
	Subtotal   float64    `json:"subtotal"`
	Shipping   float64    `json:"shipping"`
	Tax        float64    `json:"tax"`
	Total      float64    `json:"total"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (e CartCheckoutRequested) Subject() string {
	return messaging.CartCheckoutRequestedSubject
}

func (e CartCheckoutRequested) Payload() ([]byte, error) {
	return json.Marshal(e)
}
