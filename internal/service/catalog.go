// Package service provides the storefront use cases on top of the catalog, filter and cart packages.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/abgdnv/storefront/internal/catalog"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/filter"
	"github.com/abgdnv/storefront/internal/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CatalogService defines the product listing and filter operations.
type CatalogService interface {
	// Listing filters the catalog with the criteria encoded in query.
	Listing(ctx context.Context, query url.Values) (*ListingDto, error)

	// FindByID retrieves a single product by its identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*catalog.Product, error)

	// Categories returns the distinct categories and the price ceiling of the catalog.
	Categories(ctx context.Context) CategoriesDto

	// UpdateFilters applies a sidebar change. The current search text is kept.
	UpdateFilters(ctx context.Context, req FilterUpdateDto) (*FilterStateDto, error)

	// EditPrice edits one bound of the price range, dragging the other along when they cross.
	EditPrice(ctx context.Context, req PriceEditDto) (*FilterStateDto, error)

	// ResetFilters restores category and price defaults, keeping the search text.
	ResetFilters(ctx context.Context, req QueryDto) (*FilterStateDto, error)

	// SubmitSearch applies a search box submission, keeping the other parameters.
	SubmitSearch(ctx context.Context, req SearchDto) (*FilterStateDto, error)
}

// ListingDto is the product listing page model. Treat it as read-only: listings are cached.
type ListingDto struct {
	Products   []catalog.Product `json:"products"`
	Featured   *catalog.Product  `json:"featured,omitempty"`
	Shown      int               `json:"shown"`
	Total      int               `json:"total"`
	Summary    string            `json:"summary"`
	Categories []string          `json:"categories"`
	MaxPrice   float64           `json:"maxPrice"`
	Criteria   filter.Criteria   `json:"criteria"`
	Query      string            `json:"query"`
}

// CategoriesDto feeds the filter sidebar.
type CategoriesDto struct {
	Categories []string `json:"categories"`
	MaxPrice   float64  `json:"maxPrice"`
}

// FilterStateDto is the filter state after a change, with its canonical query string.
type FilterStateDto struct {
	Query    string          `json:"query"`
	Criteria filter.Criteria `json:"criteria"`
}

// QueryDto carries the current listing query string, e.g. "category=Home&search=mug".
type QueryDto struct {
	Query string `json:"query"`
}

// FilterUpdateDto sets the category and, when given, the price bounds.
type FilterUpdateDto struct {
	Query    string   `json:"query"`
	Category string   `json:"category" validate:"required"`
	MinPrice *float64 `json:"minPrice"`
	MaxPrice *float64 `json:"maxPrice"`
}

// PriceEditDto edits bound Index (0 = min, 1 = max). A missing value
// means 0 for the minimum and the catalog maximum for the maximum.
type PriceEditDto struct {
	Query string   `json:"query"`
	Index *int     `json:"index" validate:"required,oneof=0 1"`
	Value *float64 `json:"value"`
}

// SearchDto is a search box submission.
type SearchDto struct {
	Query string `json:"query"`
	Text  string `json:"text"`
}

// Catalog implements CatalogService over an immutable catalog.
type Catalog struct {
	catalog    *catalog.Catalog
	products   []catalog.Product
	categories []string
	maxPrice   float64
	cache      *lru.Cache[string, *ListingDto]
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewCatalogService precomputes categories and the price ceiling. Listings are
// memoized in an LRU of cacheSize entries; cacheSize <= 0 disables the cache.
func NewCatalogService(c *catalog.Catalog, cacheSize int, m *metrics.Metrics, logger *slog.Logger) (*Catalog, error) {
	products := c.Products()
	s := &Catalog{
		catalog:    c,
		products:   products,
		categories: filter.ComputeCategories(products),
		maxPrice:   filter.ComputeMaxPrice(products),
		metrics:    m,
		logger:     logger.With("component", "catalog"),
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, *ListingDto](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create listing cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// MaxPrice is the default upper price bound.
func (s *Catalog) MaxPrice() float64 {
	return s.maxPrice
}

// Listing returns the filtered products. Results are cached by canonical query.
func (s *Catalog) Listing(ctx context.Context, query url.Values) (*ListingDto, error) {
	criteria := filter.ParseCriteria(query, s.maxPrice)
	key := filter.EncodeQuery(criteria, s.maxPrice)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.IncListing(true)
			s.logger.DebugContext(ctx, "Listing served from cache", "query", key)
			return cached, nil
		}
	}
	s.metrics.IncListing(false)

	filtered := filter.ApplyFilters(s.products, criteria)
	listing := &ListingDto{
		Products:   filtered,
		Shown:      len(filtered),
		Total:      len(s.products),
		Summary:    filter.Summarize(len(filtered), len(s.products), criteria),
		Categories: s.categories,
		MaxPrice:   s.maxPrice,
		Criteria:   criteria,
		Query:      key,
	}
	if len(filtered) > 0 {
		featured := filtered[0]
		listing.Featured = &featured
	}
	if s.cache != nil {
		s.cache.Add(key, listing)
	}
	s.logger.DebugContext(ctx, "Listing computed", "query", key, "shown", listing.Shown)
	return listing, nil
}

// FindByID returns ErrProductNotFound if no product exists with the given ID.
func (s *Catalog) FindByID(_ context.Context, id string) (*catalog.Product, error) {
	p, err := s.catalog.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	return &p, nil
}

// Categories returns a copy of the category list.
func (s *Catalog) Categories(_ context.Context) CategoriesDto {
	return CategoriesDto{
		Categories: append([]string(nil), s.categories...),
		MaxPrice:   s.maxPrice,
	}
}

// UpdateFilters sets the category and any given bounds on top of the current query.
// Bounds are applied min first, each through ClampPriceEdit, so min <= max holds.
func (s *Catalog) UpdateFilters(_ context.Context, req FilterUpdateDto) (*FilterStateDto, error) {
	criteria, err := s.parse(req.Query)
	if err != nil {
		return nil, err
	}
	criteria.Category = req.Category
	if req.MinPrice != nil {
		criteria.PriceRange = filter.ClampPriceEdit(criteria.PriceRange, 0, *req.MinPrice)
	}
	if req.MaxPrice != nil {
		criteria.PriceRange = filter.ClampPriceEdit(criteria.PriceRange, 1, *req.MaxPrice)
	}
	return s.state(criteria), nil
}

// EditPrice applies filter.ClampPriceEdit to the current range.
func (s *Catalog) EditPrice(_ context.Context, req PriceEditDto) (*FilterStateDto, error) {
	criteria, err := s.parse(req.Query)
	if err != nil {
		return nil, err
	}
	index := *req.Index
	var value float64
	switch {
	case req.Value != nil:
		value = *req.Value
	case index == 1:
		value = s.maxPrice
	}
	criteria.PriceRange = filter.ClampPriceEdit(criteria.PriceRange, index, value)
	return s.state(criteria), nil
}

// ResetFilters keeps only the search text of the current query.
func (s *Catalog) ResetFilters(_ context.Context, req QueryDto) (*FilterStateDto, error) {
	criteria, err := s.parse(req.Query)
	if err != nil {
		return nil, err
	}
	return s.state(filter.ResetCriteria(criteria, s.maxPrice)), nil
}

// SubmitSearch sets or clears the search parameter and keeps everything else.
func (s *Catalog) SubmitSearch(_ context.Context, req SearchDto) (*FilterStateDto, error) {
	current, err := url.ParseQuery(req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storeerrors.ErrInvalidQuery, err)
	}
	next := filter.SubmitSearch(current, req.Text)
	return s.state(filter.ParseCriteria(next, s.maxPrice)), nil
}

func (s *Catalog) parse(rawQuery string) (filter.Criteria, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return filter.Criteria{}, fmt.Errorf("%w: %v", storeerrors.ErrInvalidQuery, err)
	}
	return filter.ParseCriteria(q, s.maxPrice), nil
}

func (s *Catalog) state(c filter.Criteria) *FilterStateDto {
	return &FilterStateDto{
		Query:    filter.EncodeQuery(c, s.maxPrice),
		Criteria: c,
	}
}
