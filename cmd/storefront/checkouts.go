package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/checkout"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/spf13/cobra"
)

func newCheckoutsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkouts",
		Short: "Work with checkout requests published on NATS",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Consume checkout requests and print them until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := bootstrap.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log.Level)

			js, closeConn, err := app.OpenJetStream(ctx, cfg.Nats, logger)
			if err != nil {
				return err
			}
			defer closeConn()

			logger.Info("Checkout subscriber started", "workers", cfg.Subscriber.Workers)
			err = checkout.Start(ctx, js, cfg.Nats.Stream, cfg.Subscriber, printCheckoutTo(cmd.OutOrStdout()), logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("checkout subscriber failed: %w", err)
			}
			logger.Info("Checkout subscriber stopped gracefully")
			return nil
		},
	})
	return cmd
}

// printCheckoutTo returns a handler writing one line per checkout request. Workers share w.
func printCheckoutTo(w io.Writer) checkout.HandleFunc {
	var mu sync.Mutex
	return func(_ context.Context, e events.CartCheckoutRequested) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintf(w, "%s  %s  items=%d  subtotal=$%.2f  shipping=$%.2f  tax=$%.2f  total=$%.2f\n",
			e.CreatedAt.Format(time.RFC3339), e.CheckoutID, e.TotalItems, e.Subtotal, e.Shipping, e.Tax, e.Total)
		return err
	}
}
