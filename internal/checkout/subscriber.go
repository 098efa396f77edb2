// Package checkout consumes checkout requests published by the cart service.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

// HandleFunc processes one checkout request. A returned error naks the message for redelivery.
type HandleFunc func(ctx context.Context, event events.CartCheckoutRequested) error

type ackableMsg interface {
	Data() []byte
	Ack() error
	Nak() error
}

// Start creates the durable consumer on stream and runs the configured number of workers
// until ctx is cancelled.
func Start(ctx context.Context, js jetstream.JetStream, stream string, cfg config.SubscriberConfig, handle HandleFunc, logger *slog.Logger) error {
	consumer, err := js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		FilterSubject: messaging.CartCheckoutRequestedSubject,
		Durable:       cfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", cfg.Consumer, err)
	}
	logger = logger.With("component", "checkout_subscriber", "consumer", cfg.Consumer)

	g, gCtx := errgroup.WithContext(ctx)
	for range cfg.Workers {
		g.Go(func() error {
			return runWorker(gCtx, consumer, cfg, handle, logger)
		})
	}
	return g.Wait()
}

func runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, handle HandleFunc, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			logger.Error("Failed to fetch messages", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Interval):
			}
			continue
		}
		for msg := range batch.Messages() {
			handleMessage(ctx, msg, handle, logger)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
			logger.Warn("Fetch ended with error", "error", err)
		}
	}
}

func handleMessage(ctx context.Context, msg ackableMsg, handle HandleFunc, logger *slog.Logger) {
	if msg == nil {
		logger.Error("Received nil message")
		return
	}
	var event events.CartCheckoutRequested
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error("Failed to unmarshal checkout request", "error", err)
		// malformed payloads would be redelivered forever
		if err := msg.Ack(); err != nil {
			logger.Error("Failed to ack message", "error", err)
		}
		return
	}

	if err := handle(ctx, event); err != nil {
		logger.Error("Failed to handle checkout request", "checkout_id", event.CheckoutID, "error", err)
		if err := msg.Nak(); err != nil {
			logger.Error("Failed to nak message", "error", err)
		}
		return
	}

	logger.Info("Checkout request processed",
		slog.String("checkout_id", event.CheckoutID.String()),
		slog.Int("total_items", event.TotalItems),
		slog.Float64("total", event.Total))
	if err := msg.Ack(); err != nil {
		logger.Error("Failed to ack message", "error", err)
	}
}
