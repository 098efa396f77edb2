package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/abgdnv/storefront/internal/cart"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
)

// InstrumentedStorage times every call of the wrapped cart storage.
type InstrumentedStorage struct {
	next    cart.Storage
	metrics *Metrics
}

// InstrumentStorage wraps next. A nil m returns next unchanged.
func InstrumentStorage(next cart.Storage, m *Metrics) cart.Storage {
	if m == nil {
		return next
	}
	return &InstrumentedStorage{next: next, metrics: m}
}

func (s *InstrumentedStorage) Load(ctx context.Context) ([]byte, error) {
	start := time.Now()
	data, err := s.next.Load(ctx)
	if errors.Is(err, storeerrors.ErrCartNotFound) {
		s.metrics.ObserveStorage("load", time.Since(start), nil)
		return data, err
	}
	s.metrics.ObserveStorage("load", time.Since(start), err)
	return data, err
}

func (s *InstrumentedStorage) Save(ctx context.Context, data []byte) error {
	start := time.Now()
	err := s.next.Save(ctx, data)
	s.metrics.ObserveStorage("save", time.Since(start), err)
	return err
}
