// Package cart keeps the shopper's cart in memory, persists every change through a
// Storage backend and notifies subscribers with a snapshot after each change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abgdnv/storefront/internal/catalog"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/shopspring/decimal"
)

// Entry is one product line of the cart. Quantity is always >= 1.
type Entry struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// State is an immutable snapshot of the cart with its derived totals.
type State struct {
	Items      []Entry `json:"items"`
	TotalItems int     `json:"totalItems"`
	TotalPrice float64 `json:"totalPrice"`
}

// Observer receives the cart state after every change. Observers run synchronously
// on the mutating goroutine and must not mutate the Store.
type Observer func(State)

// Storage persists the serialized cart under a fixed key.
// Load returns ErrCartNotFound when nothing has been saved yet.
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type subscription struct {
	id uint64
	fn Observer
}

// Store is the single cart of the process.
type Store struct {
	// mutateMu serializes apply, persist and notify so observers see changes in order.
	mutateMu sync.Mutex
	mu       sync.RWMutex
	items    []Entry

	obsMu     sync.Mutex
	observers []subscription
	nextObsID uint64

	onChange func(op string)

	storage Storage
	logger  *slog.Logger
}

// NewStore loads the persisted cart. Missing, unreadable or malformed data yields an empty cart.
func NewStore(ctx context.Context, storage Storage, logger *slog.Logger) *Store {
	s := &Store{
		items:   []Entry{},
		storage: storage,
		logger:  logger.With("component", "cart"),
	}
	data, err := storage.Load(ctx)
	switch {
	case errors.Is(err, storeerrors.ErrCartNotFound):
		s.logger.DebugContext(ctx, "No saved cart, starting empty")
	case err != nil:
		s.logger.WarnContext(ctx, "Failed to load saved cart, starting empty", "error", err)
	default:
		items, decodeErr := decode(data)
		if decodeErr != nil {
			s.logger.WarnContext(ctx, "Discarding malformed saved cart", "error", decodeErr)
			break
		}
		s.items = items
		s.logger.DebugContext(ctx, "Saved cart restored", "entries", len(items))
	}
	return s
}

// Items returns a copy of the entries in insertion order.
func (s *Store) Items() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// TotalItems is the sum of all quantities.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalItems(s.items)
}

// TotalPrice is the sum of price times quantity over all entries.
func (s *Store) TotalPrice() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalPrice(s.items)
}

// Snapshot returns the entries together with their totals.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.items)
}

// AddItem adds one unit of the product, appending a new entry when it is not in the cart yet.
func (s *Store) AddItem(ctx context.Context, product catalog.Product) State {
	return s.AddItems(ctx, product, 1)
}

// AddItems adds n units at once. n <= 0 changes nothing.
func (s *Store) AddItems(ctx context.Context, product catalog.Product, n int) State {
	return s.mutate(ctx, "add", func(items []Entry) ([]Entry, bool) {
		if n <= 0 {
			return items, false
		}
		if i := indexOf(items, product.ID); i >= 0 {
			items[i].Quantity += n
			return items, true
		}
		return append(items, Entry{Product: product, Quantity: n}), true
	})
}

// RemoveItem deletes the entry for productID. Unknown ids are ignored.
func (s *Store) RemoveItem(ctx context.Context, productID string) State {
	return s.mutate(ctx, "remove", func(items []Entry) ([]Entry, bool) {
		return removeEntry(items, productID)
	})
}

// UpdateQuantity sets the quantity of an existing entry. A quantity <= 0 removes it.
// Unknown ids are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) State {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}
	return s.mutate(ctx, "update", func(items []Entry) ([]Entry, bool) {
		i := indexOf(items, productID)
		if i < 0 || items[i].Quantity == quantity {
			return items, false
		}
		items[i].Quantity = quantity
		return items, true
	})
}

// ClearCart removes every entry.
func (s *Store) ClearCart(ctx context.Context) State {
	return s.mutate(ctx, "clear", func(items []Entry) ([]Entry, bool) {
		if len(items) == 0 {
			return items, false
		}
		return []Entry{}, true
	})
}

// OnChange sets a hook called with the operation name ("add", "update", "remove",
// "clear") after every mutation that changed the cart. Calls that change nothing are
// not reported. A later call replaces the hook.
func (s *Store) OnChange(fn func(op string)) {
	s.mutateMu.Lock()
	defer s.mutateMu.Unlock()
	s.onChange = fn
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, subscription{id: id, fn: fn})
	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			defer s.obsMu.Unlock()
			for i, sub := range s.observers {
				if sub.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// mutate applies change to a copy of the entries. When it reports a change the new
// entries are published, persisted and announced to observers, in that order.
func (s *Store) mutate(ctx context.Context, op string, change func([]Entry) ([]Entry, bool)) State {
	s.mutateMu.Lock()
	defer s.mutateMu.Unlock()

	s.mu.Lock()
	next, changed := change(cloneItems(s.items))
	if !changed {
		state := snapshot(s.items)
		s.mu.Unlock()
		return state
	}
	s.items = next
	state := snapshot(next)
	s.mu.Unlock()

	s.persist(ctx, op, next)
	if s.onChange != nil {
		s.onChange(op)
	}
	s.notify(state)
	return state
}

func (s *Store) persist(ctx context.Context, op string, items []Entry) {
	data, err := json.Marshal(items)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode cart", "op", op, "error", err)
		return
	}
	if err := s.storage.Save(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist cart", "op", op, "error", err)
		return
	}
	s.logger.DebugContext(ctx, "Cart persisted", "op", op, "entries", len(items))
}

func (s *Store) notify(state State) {
	s.obsMu.Lock()
	observers := make([]subscription, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.Unlock()

	for _, sub := range observers {
		sub.fn(state)
	}
}

// decode parses a persisted cart and rejects entries that break the cart invariants.
func decode(data []byte) ([]Entry, error) {
	var items []Entry
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(items))
	for i, e := range items {
		if err := catalog.Validate(e.Product); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if e.Quantity < 1 {
			return nil, fmt.Errorf("entry %d (%s) has quantity %d", i, e.Product.ID, e.Quantity)
		}
		if _, dup := seen[e.Product.ID]; dup {
			return nil, fmt.Errorf("entry %d duplicates product %s", i, e.Product.ID)
		}
		seen[e.Product.ID] = struct{}{}
	}
	if items == nil {
		items = []Entry{}
	}
	return items, nil
}

func snapshot(items []Entry) State {
	return State{
		Items:      cloneItems(items),
		TotalItems: totalItems(items),
		TotalPrice: totalPrice(items),
	}
}

func totalItems(items []Entry) int {
	total := 0
	for _, e := range items {
		total += e.Quantity
	}
	return total
}

func totalPrice(items []Entry) float64 {
	total := decimal.Zero
	for _, e := range items {
		total = total.Add(decimal.NewFromFloat(e.Product.Price).Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	f, _ := total.Float64()
	return f
}

func indexOf(items []Entry, productID string) int {
	for i, e := range items {
		if e.Product.ID == productID {
			return i
		}
	}
	return -1
}

func removeEntry(items []Entry, productID string) ([]Entry, bool) {
	i := indexOf(items, productID)
	if i < 0 {
		return items, false
	}
	return append(items[:i], items[i+1:]...), true
}

func cloneItems(items []Entry) []Entry {
	out := make([]Entry, len(items))
	copy(out, items)
	return out
}
