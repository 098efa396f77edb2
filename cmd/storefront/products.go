package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/abgdnv/storefront/internal/app"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/filter"
	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	"github.com/spf13/cobra"
)

type productsOptions struct {
	query    string
	category string
	minPrice float64
	maxPrice float64
	search   string
}

func newProductsCmd(root *rootOptions) *cobra.Command {
	opts := &productsOptions{}
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog, optionally filtered",
		Example: `  storefront products --category Fashion
  storefront products --query "maxPrice=200&search=wireless"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			logger := bootstrap.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log.Level)

			products, err := app.LoadCatalog(cfg.Catalog)
			if err != nil {
				return err
			}
			catalogService, err := service.NewCatalogService(products, 0, nil, logger)
			if err != nil {
				return err
			}
			q, err := opts.values(cmd)
			if err != nil {
				return err
			}
			listing, err := catalogService.Listing(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printListing(cmd.OutOrStdout(), listing)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.query, "query", "", "listing query string, e.g. category=Home&search=mug")
	f.StringVar(&opts.category, "category", "", "category to show, All for every category")
	f.Float64Var(&opts.minPrice, "min", 0, "minimum price")
	f.Float64Var(&opts.maxPrice, "max", 0, "maximum price")
	f.StringVar(&opts.search, "search", "", "text to find in titles and descriptions")
	return cmd
}

// values merges explicit flags over the --query string.
func (o *productsOptions) values(cmd *cobra.Command) (url.Values, error) {
	q, err := url.ParseQuery(o.query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storeerrors.ErrInvalidQuery, err)
	}
	f := cmd.Flags()
	if f.Changed("category") {
		q.Set(filter.KeyCategory, o.category)
	}
	if f.Changed("min") {
		q.Set(filter.KeyMinPrice, strconv.FormatFloat(o.minPrice, 'f', -1, 64))
	}
	if f.Changed("max") {
		q.Set(filter.KeyMaxPrice, strconv.FormatFloat(o.maxPrice, 'f', -1, 64))
	}
	if f.Changed("search") {
		q = filter.SubmitSearch(q, o.search)
	}
	return q, nil
}

func printListing(w io.Writer, listing *service.ListingDto) error {
	fmt.Fprintln(w, listing.Summary)
	if len(listing.Products) == 0 {
		fmt.Fprintln(w, "No products found")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tCATEGORY\tRATING")
		for _, p := range listing.Products {
			fmt.Fprintf(tw, "%s\t%s\t$%.2f\t%s\t%.1f\n", p.ID, p.Title, p.Price, p.Category, p.Rating)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "query: %s\n", listing.Query)
	return err
}
