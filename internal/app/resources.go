package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abgdnv/storefront/internal/config"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/messaging"
	natsclient "github.com/abgdnv/storefront/pkg/nats"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrNatsDisabled is returned when a command needs the broker but nats.enabled is false.
var ErrNatsDisabled = errors.New("nats is disabled in the configuration")

// CloseFunc releases a resource opened by this package.
type CloseFunc func()

func noopClose() {}

// OpenStorage connects the configured cart backend. Remote backends are wrapped
// with retries and a circuit breaker.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (store.CartStore, CloseFunc, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory cart storage, the cart is lost on exit")
		return store.NewInMemoryStore(), noopClose, nil

	case config.DriverBadger:
		db, err := store.OpenBadger(store.BadgerConfig{
			Path:       cfg.Badger.Path,
			SyncWrites: cfg.Badger.SyncWrites,
			Logger:     logger.With("component", "badger"),
		})
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close badger database", "error", err)
			}
		}
		return store.NewBadgerStore(db, cfg.Key), closeDB, nil

	case config.DriverRedis:
		client, err := bootstrap.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Timeout)
		if err != nil {
			return nil, nil, err
		}
		closeClient := func() {
			if err := client.Close(); err != nil {
				logger.Error("Failed to close redis client", "error", err)
			}
		}
		logger.Info("Successfully connected to redis")
		return store.NewResilient(store.NewRedisStore(client, cfg.Key), "redis", cfg.Resilience, logger), closeClient, nil

	case config.DriverPostgres:
		if err := store.Migrate(cfg.Database.URL); err != nil {
			return nil, nil, err
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Successfully connected to the database!")
		return store.NewResilient(store.NewPgStore(dbPool, cfg.Key), "postgres", cfg.Resilience, logger), dbPool.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", storeerrors.ErrUnknownStorageDriver, cfg.Driver)
	}
}

// NewPublisher returns a JetStream publisher when NATS is enabled and a logging one otherwise.
func NewPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) (messaging.Publisher, CloseFunc, error) {
	if !cfg.Nats.Enabled {
		return messaging.NewLogPublisher(logger), noopClose, nil
	}
	js, closeConn, err := OpenJetStream(ctx, cfg.Nats, logger)
	if err != nil {
		return nil, nil, err
	}
	return natsclient.NewNatsPublisher(js), closeConn, nil
}

// OpenJetStream connects to NATS and makes sure the checkout stream exists.
func OpenJetStream(ctx context.Context, cfg pkgconfig.NATSConfig, logger *slog.Logger) (jetstream.JetStream, CloseFunc, error) {
	if !cfg.Enabled {
		return nil, nil, ErrNatsDisabled
	}
	nc, err := natsclient.NewClient(cfg.Url, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := natsclient.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, err
	}
	streamCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := natsclient.EnsureStream(streamCtx, js, cfg.Stream, messaging.CartCheckoutRequestedSubject); err != nil {
		nc.Close()
		return nil, nil, err
	}
	closeConn := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("Failed to drain NATS connection", "error", err)
		}
	}
	logger.Info("Successfully connected to NATS", "stream", cfg.Stream)
	return js, closeConn, nil
}
