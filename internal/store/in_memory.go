package store

import (
	"context"
	"sync"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
)

var _ CartStore = (*InMemory)(nil)

// InMemory implements CartStore with a process-local buffer.
type InMemory struct {
	mu   sync.RWMutex
	data []byte
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemory {
	return &InMemory{}
}

// Load returns a copy of the saved payload.
func (s *InMemory) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, storeerrors.ErrCartNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// Save keeps a copy of data.
func (s *InMemory) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(make([]byte, 0, len(data)), data...)
	return nil
}
