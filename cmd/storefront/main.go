package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Product catalog and shopping cart service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", configloader.DefaultConfigFile, "path to the yaml config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newProductsCmd(opts),
		newCartCmd(opts),
		newCheckoutsCmd(opts),
	)
	return cmd
}

// loadConfig reads the yaml file, then .env, then STOREFRONT_ prefixed environment variables.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := configloader.LoadFile[*config.Config](app.ServiceName, o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
