// Package store provides the backends that persist the serialized cart.
package store

import (
	"context"
)

// DefaultKey is the storage key the cart is saved under.
const DefaultKey = "cart"

// CartStore persists the serialized cart under a single fixed key.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type CartStore interface {
	// Load returns the last saved payload.
	// Returns ErrCartNotFound if nothing has been saved under the key.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the payload stored under the key.
	Save(ctx context.Context, data []byte) error
}
