package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	"github.com/spf13/cobra"
)

func newCartCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and change the cart kept in the configured storage",
	}

	var quantity int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, root, func(ctx context.Context, carts service.CartService) error {
				if quantity < 1 {
					return fmt.Errorf("quantity must be at least 1, got %d", quantity)
				}
				dto, err := carts.AddItem(ctx, service.AddItemDto{ProductID: args[0], Quantity: quantity})
				if err != nil {
					return err
				}
				return printCart(cmd.OutOrStdout(), *dto)
			})
		},
	}
	add.Flags().IntVarP(&quantity, "quantity", "n", 1, "units to add")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the cart and its order summary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withCart(cmd, root, func(ctx context.Context, carts service.CartService) error {
					return printCart(cmd.OutOrStdout(), carts.Get(ctx))
				})
			},
		},
		add,
		&cobra.Command{
			Use:   "set <product-id> <quantity>",
			Short: "Set the quantity of a cart line, 0 removes it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				q, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid quantity %q: %w", args[1], err)
				}
				return withCart(cmd, root, func(ctx context.Context, carts service.CartService) error {
					return printCart(cmd.OutOrStdout(), carts.UpdateQuantity(ctx, args[0], service.UpdateQuantityDto{Quantity: &q}))
				})
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a product from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCart(cmd, root, func(ctx context.Context, carts service.CartService) error {
					return printCart(cmd.OutOrStdout(), carts.RemoveItem(ctx, args[0]))
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withCart(cmd, root, func(ctx context.Context, carts service.CartService) error {
					return printCart(cmd.OutOrStdout(), carts.Clear(ctx))
				})
			},
		},
		&cobra.Command{
			Use:   "checkout",
			Short: "Request checkout of the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withCart(cmd, root, func(ctx context.Context, carts service.CartService) error {
					result, err := carts.Checkout(ctx)
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					fmt.Fprintln(out, result.Message)
					fmt.Fprintf(out, "checkout id: %s\n", result.CheckoutID)
					_, err = fmt.Fprintf(out, "total: $%.2f\n", result.Summary.Total)
					return err
				})
			},
		},
	)
	return cmd
}

// withCart restores the cart from the configured storage, runs fn and releases the storage.
func withCart(cmd *cobra.Command, root *rootOptions, fn func(ctx context.Context, carts service.CartService) error) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := bootstrap.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log.Level)

	storage, closeStorage, err := app.OpenStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open cart storage: %w", err)
	}
	defer closeStorage()

	publisher, closePublisher, err := app.NewPublisher(ctx, *cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer closePublisher()

	deps, err := app.SetupDependencies(ctx, cfg, storage, publisher, logger)
	if err != nil {
		return err
	}
	return fn(ctx, deps.CartService)
}

func printCart(w io.Writer, dto service.CartDto) error {
	if len(dto.Items) == 0 {
		_, err := fmt.Fprintln(w, "Your cart is empty")
		return err
	}
	fmt.Fprintf(w, "Cart (%d items)\n", dto.TotalItems)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQTY\tPRICE\tLINE TOTAL")
	for _, e := range dto.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t$%.2f\t$%.2f\n",
			e.Product.ID, e.Product.Title, e.Quantity, e.Product.Price, e.Product.Price*float64(e.Quantity))
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Subtotal\t$%.2f\n", dto.Summary.Subtotal)
	if dto.Summary.Shipping == 0 {
		fmt.Fprintln(tw, "Shipping\tFree")
	} else {
		fmt.Fprintf(tw, "Shipping\t$%.2f\n", dto.Summary.Shipping)
	}
	fmt.Fprintf(tw, "Tax\t$%.2f\n", dto.Summary.Tax)
	fmt.Fprintf(tw, "Total\t$%.2f\n", dto.Summary.Total)
	if err := tw.Flush(); err != nil {
		return err
	}
	if dto.Summary.FreeShippingRemaining > 0 {
		_, err := fmt.Fprintf(w, "Add $%.2f more for free shipping\n", dto.Summary.FreeShippingRemaining)
		return err
	}
	return nil
}
