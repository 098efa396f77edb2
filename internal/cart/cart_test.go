package cart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/abgdnv/storefront/internal/catalog"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStorage is an in-memory Storage that records every save.
type mockStorage struct {
	mu      sync.Mutex
	data    []byte
	loadErr error
	saveErr error
	saves   [][]byte
}

func (m *mockStorage) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.data == nil {
		return nil, storeerrors.ErrCartNotFound
	}
	return m.data, nil
}

func (m *mockStorage) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, data)
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = data
	return nil
}

func (m *mockStorage) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	phone    = catalog.Product{ID: "1", Title: "Smartphone X", Price: 799, Category: "Electronics"}
	backpack = catalog.Product{ID: "6", Title: "Backpack", Price: 59, Category: "Fashion"}
	shoes    = catalog.Product{ID: "3", Title: "Running Shoes", Price: 129, Category: "Fashion"}
)

func newStore(t *testing.T, storage *mockStorage) *Store {
	t.Helper()
	return NewStore(context.Background(), storage, discardLogger())
}

func Test_Store_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("new product appends an entry with quantity 1", func(t *testing.T) {
		// given
		s := newStore(t, &mockStorage{})

		// when
		state := s.AddItem(ctx, backpack)

		// then
		assert.Equal(t, []Entry{{Product: backpack, Quantity: 1}}, state.Items)
		assert.Equal(t, 1, s.TotalItems())
		assert.Equal(t, 59.0, s.TotalPrice())
	})

	t.Run("existing product increments quantity", func(t *testing.T) {
		// given
		s := newStore(t, &mockStorage{})
		s.AddItem(ctx, phone)
		s.AddItem(ctx, backpack)

		// when
		s.AddItem(ctx, phone)

		// then
		assert.Equal(t, []Entry{{Product: phone, Quantity: 2}, {Product: backpack, Quantity: 1}}, s.Items())
		assert.Equal(t, 3, s.TotalItems())
		assert.Equal(t, 1657.0, s.TotalPrice())
	})

	t.Run("existing entry keeps its stored product", func(t *testing.T) {
		// given
		s := newStore(t, &mockStorage{})
		s.AddItem(ctx, backpack)
		repriced := backpack
		repriced.Price = 1

		// when
		s.AddItem(ctx, repriced)

		// then
		assert.Equal(t, 118.0, s.TotalPrice())
	})
}

func Test_Store_AddItems(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name          string
		n             int
		expectedItems int
		expectedSaves int
	}{
		{name: "adds n units", n: 3, expectedItems: 3, expectedSaves: 1},
		{name: "zero is a no-op", n: 0, expectedItems: 0, expectedSaves: 0},
		{name: "negative is a no-op", n: -2, expectedItems: 0, expectedSaves: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			storage := &mockStorage{}
			s := newStore(t, storage)

			// when
			s.AddItems(ctx, shoes, tc.n)

			// then
			assert.Equal(t, tc.expectedItems, s.TotalItems())
			assert.Equal(t, tc.expectedSaves, storage.saveCount())
		})
	}
}

func Test_Store_RemoveItem(t *testing.T) {
	ctx := context.Background()

	// given
	storage := &mockStorage{}
	s := newStore(t, storage)
	s.AddItem(ctx, phone)
	s.AddItem(ctx, backpack)
	s.AddItem(ctx, shoes)

	// when
	s.RemoveItem(ctx, "6")
	s.RemoveItem(ctx, "404")

	// then
	assert.Equal(t, []Entry{{Product: phone, Quantity: 1}, {Product: shoes, Quantity: 1}}, s.Items())
	assert.Equal(t, 4, storage.saveCount(), "removing an unknown id must not persist")
}

func Test_Store_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		id       string
		quantity int
		expected []Entry
	}{
		{name: "sets quantity", id: "6", quantity: 5, expected: []Entry{{Product: phone, Quantity: 1}, {Product: backpack, Quantity: 5}}},
		{name: "zero removes", id: "6", quantity: 0, expected: []Entry{{Product: phone, Quantity: 1}}},
		{name: "negative removes", id: "1", quantity: -3, expected: []Entry{{Product: backpack, Quantity: 1}}},
		{name: "unknown id is ignored", id: "9", quantity: 4, expected: []Entry{{Product: phone, Quantity: 1}, {Product: backpack, Quantity: 1}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := newStore(t, &mockStorage{})
			s.AddItem(ctx, phone)
			s.AddItem(ctx, backpack)

			// when
			s.UpdateQuantity(ctx, tc.id, tc.quantity)

			// then
			assert.Equal(t, tc.expected, s.Items())
		})
	}
}

func Test_Store_ClearCart(t *testing.T) {
	ctx := context.Background()

	// given
	storage := &mockStorage{}
	s := newStore(t, storage)
	s.AddItems(ctx, phone, 2)

	// when
	state := s.ClearCart(ctx)
	s.ClearCart(ctx)

	// then
	assert.Empty(t, state.Items)
	assert.Equal(t, 0, s.TotalItems())
	assert.Equal(t, 0.0, s.TotalPrice())
	assert.Equal(t, 2, storage.saveCount(), "clearing an empty cart must not persist")
	assert.JSONEq(t, `[]`, string(storage.data))
}

func Test_Store_TotalPrice_NoFloatDrift(t *testing.T) {
	// given
	s := newStore(t, &mockStorage{})
	dime := catalog.Product{ID: "d", Title: "Dime", Price: 0.1, Category: "Misc"}

	// when
	s.AddItems(context.Background(), dime, 3)

	// then
	assert.Equal(t, 0.3, s.TotalPrice())
}

func Test_Store_PersistsFullEntrySequence(t *testing.T) {
	ctx := context.Background()

	// given
	storage := &mockStorage{}
	s := newStore(t, storage)

	// when
	s.AddItem(ctx, backpack)
	s.AddItem(ctx, backpack)

	// then
	var saved []map[string]any
	require.NoError(t, json.Unmarshal(storage.data, &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, 2.0, saved[0]["quantity"])
	product := saved[0]["product"].(map[string]any)
	assert.Equal(t, "6", product["id"])
	assert.Equal(t, 59.0, product["price"])
}

const phoneJSON = `{"id":"1","title":"Smartphone X","price":799,"category":"Electronics"}`

func Test_NewStore_Restore(t *testing.T) {
	valid, err := json.Marshal([]Entry{{Product: phone, Quantity: 2}, {Product: backpack, Quantity: 1}})
	require.NoError(t, err)

	testCases := []struct {
		name     string
		storage  *mockStorage
		expected []Entry
	}{
		{name: "valid data", storage: &mockStorage{data: valid}, expected: []Entry{{Product: phone, Quantity: 2}, {Product: backpack, Quantity: 1}}},
		{name: "nothing saved", storage: &mockStorage{}, expected: []Entry{}},
		{name: "backend error", storage: &mockStorage{loadErr: errors.New("disk on fire")}, expected: []Entry{}},
		{name: "malformed json", storage: &mockStorage{data: []byte(`[{"product":`)}, expected: []Entry{}},
		{name: "not an array", storage: &mockStorage{data: []byte(`{"items":[]}`)}, expected: []Entry{}},
		{name: "json null", storage: &mockStorage{data: []byte(`null`)}, expected: []Entry{}},
		{name: "zero quantity", storage: &mockStorage{data: []byte(`[{"product":` + phoneJSON + `,"quantity":0}]`)}, expected: []Entry{}},
		{name: "missing product id", storage: &mockStorage{data: []byte(`[{"product":{},"quantity":1}]`)}, expected: []Entry{}},
		{
			name:     "duplicate product",
			storage:  &mockStorage{data: []byte(`[{"product":` + phoneJSON + `,"quantity":1},{"product":` + phoneJSON + `,"quantity":2}]`)},
			expected: []Entry{},
		},
		{
			name:     "negative price",
			storage:  &mockStorage{data: []byte(`[{"product":{"id":"1","title":"Smartphone X","price":-50,"category":"Electronics"},"quantity":2}]`)},
			expected: []Entry{},
		},
		{
			name:     "rating above five",
			storage:  &mockStorage{data: []byte(`[{"product":{"id":"1","title":"Smartphone X","price":799,"category":"Electronics","rating":42},"quantity":1}]`)},
			expected: []Entry{},
		},
		{
			name:     "missing title",
			storage:  &mockStorage{data: []byte(`[{"product":{"id":"1","price":799,"category":"Electronics"},"quantity":1}]`)},
			expected: []Entry{},
		},
		{
			name:     "one bad entry discards the whole cart",
			storage:  &mockStorage{data: []byte(`[{"product":` + phoneJSON + `,"quantity":1},{"product":{"id":"6","price":-1},"quantity":1}]`)},
			expected: []Entry{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			s := newStore(t, tc.storage)

			// then
			assert.Equal(t, tc.expected, s.Items())
		})
	}
}

func Test_Store_SaveFailureKeepsState(t *testing.T) {
	// given
	storage := &mockStorage{saveErr: errors.New("read-only")}
	s := newStore(t, storage)
	var notified int
	s.Subscribe(func(State) { notified++ })

	// when
	state := s.AddItem(context.Background(), backpack)

	// then
	assert.Equal(t, 1, state.TotalItems)
	assert.Equal(t, 1, s.TotalItems())
	assert.Equal(t, 1, notified)
}

func Test_Store_Subscribe(t *testing.T) {
	ctx := context.Background()

	// given
	s := newStore(t, &mockStorage{})
	var first, second []State
	unsubscribe := s.Subscribe(func(st State) { first = append(first, st) })
	s.Subscribe(func(st State) { second = append(second, st) })

	// when
	s.AddItem(ctx, phone)
	s.RemoveItem(ctx, "404")
	unsubscribe()
	unsubscribe()
	s.UpdateQuantity(ctx, "1", 4)

	// then
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].TotalItems)
	require.Len(t, second, 2)
	assert.Equal(t, 4, second[1].TotalItems)
	assert.Equal(t, 3196.0, second[1].TotalPrice)
}

func Test_Store_OnChange(t *testing.T) {
	ctx := context.Background()

	// given
	s := newStore(t, &mockStorage{})
	var ops []string
	s.OnChange(func(op string) { ops = append(ops, op) })

	// when
	s.AddItem(ctx, phone)
	s.RemoveItem(ctx, "404")
	s.UpdateQuantity(ctx, "9", 3)
	s.UpdateQuantity(ctx, "1", 2)
	s.UpdateQuantity(ctx, "1", 0)
	s.ClearCart(ctx)
	s.AddItems(ctx, backpack, 0)

	// then
	assert.Equal(t, []string{"add", "update", "remove"}, ops)
}

func Test_Store_ObserverSnapshotIsIsolated(t *testing.T) {
	ctx := context.Background()

	// given
	s := newStore(t, &mockStorage{})
	var got State
	s.Subscribe(func(st State) { got = st })
	s.AddItem(ctx, phone)

	// when
	got.Items[0].Quantity = 99

	// then
	assert.Equal(t, 1, s.TotalItems())
}

func Test_Store_ConcurrentMutations(t *testing.T) {
	ctx := context.Background()

	// given
	storage := &mockStorage{}
	s := newStore(t, storage)
	var observed []int
	s.Subscribe(func(st State) { observed = append(observed, st.TotalItems) })

	// when
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddItem(ctx, backpack)
		}()
	}
	wg.Wait()

	// then
	assert.Equal(t, 50, s.TotalItems())
	assert.Equal(t, 50, storage.saveCount())
	require.Len(t, observed, 50)
	for i, total := range observed {
		assert.Equal(t, i+1, total, "notifications must follow mutation order")
	}
	restored := newStore(t, &mockStorage{data: storage.data})
	assert.Equal(t, 50, restored.TotalItems())
}
