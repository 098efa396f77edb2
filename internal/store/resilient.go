package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/config"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var _ CartStore = (*Resilient)(nil)

// Resilient guards a remote CartStore with retries and a circuit breaker.
// A missing cart is a normal answer and never counts as a failure.
type Resilient struct {
	next   CartStore
	cb     *gobreaker.CircuitBreaker[[]byte]
	retry  config.RetryConfig
	logger *slog.Logger
}

// NewResilient wraps next. name labels the breaker in logs.
func NewResilient(next CartStore, name string, cfg config.ResilienceConfig, logger *slog.Logger) *Resilient {
	logger = logger.With("component", "storage", "backend", name)
	st := gobreaker.Settings{
		Name:        name + "-cart-store",
		MaxRequests: 1,
		Timeout:     cfg.CircuitBreaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.CircuitBreaker.ConsecutiveFailures ||
				(total >= cfg.CircuitBreaker.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.CircuitBreaker.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, storeerrors.ErrCartNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Resilient{
		next:   next,
		cb:     gobreaker.NewCircuitBreaker[[]byte](st),
		retry:  cfg.Retry,
		logger: logger,
	}
}

// Load reads through the breaker, retrying transient failures.
func (r *Resilient) Load(ctx context.Context) ([]byte, error) {
	return r.do(ctx, "load", func() ([]byte, error) {
		return r.next.Load(ctx)
	})
}

// Save writes through the breaker, retrying transient failures.
func (r *Resilient) Save(ctx context.Context, data []byte) error {
	_, err := r.do(ctx, "save", func() ([]byte, error) {
		return nil, r.next.Save(ctx, data)
	})
	return err
}

func (r *Resilient) do(ctx context.Context, op string, call func() ([]byte, error)) ([]byte, error) {
	var data []byte
	operation := func() error {
		var err error
		data, err = r.cb.Execute(call)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(fmt.Errorf("%w: %v", storeerrors.ErrStorageUnavailable, err))
		case !retryable(err):
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.DebugContext(ctx, "Retrying cart storage call", "op", op, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(operation, r.policy(ctx), notify); err != nil {
		return nil, err
	}
	return data, nil
}

// policy allows MaxAttempts calls in total, doubling the wait from InitialBackoff.
func (r *Resilient) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.retry.InitialBackoff
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	attempts := max(r.retry.MaxAttempts, 1)
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

func retryable(err error) bool {
	return !errors.Is(err, storeerrors.ErrCartNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
