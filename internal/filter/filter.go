// Package filter narrows the catalog by category, price range and free-text search,
// and round-trips the filter state through URL query parameters.
package filter

import (
	"fmt"
	"strings"

	"github.com/abgdnv/storefront/internal/catalog"
)

// AllCategories disables category filtering.
const AllCategories = "All"

// FallbackMaxPrice is the upper bound used when the catalog is empty.
const FallbackMaxPrice = 1000.0

// PriceRange is an inclusive [min, max] bound. min <= max is expected but not enforced.
type PriceRange [2]float64

func (r PriceRange) Min() float64 { return r[0] }
func (r PriceRange) Max() float64 { return r[1] }

// Criteria is the active filter state of a listing.
type Criteria struct {
	Category   string     `json:"category"`
	PriceRange PriceRange `json:"priceRange"`
	SearchText string     `json:"searchText"`
}

// DefaultCriteria matches every product priced within [0, maxPrice].
func DefaultCriteria(maxPrice float64) Criteria {
	return Criteria{
		Category:   AllCategories,
		PriceRange: PriceRange{0, maxPrice},
	}
}

// ComputeCategories returns the distinct categories in order of first appearance.
func ComputeCategories(products []catalog.Product) []string {
	seen := make(map[string]struct{}, len(products))
	categories := make([]string, 0)
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories
}

// ComputeMaxPrice returns the highest price, or FallbackMaxPrice for an empty catalog.
func ComputeMaxPrice(products []catalog.Product) float64 {
	if len(products) == 0 {
		return FallbackMaxPrice
	}
	maxPrice := products[0].Price
	for _, p := range products[1:] {
		if p.Price > maxPrice {
			maxPrice = p.Price
		}
	}
	return maxPrice
}

// ApplyFilters keeps the products matching every criterion, in catalog order.
// Category must match exactly unless it is AllCategories, price bounds are inclusive,
// and the search text is a case-insensitive substring of the title or description.
func ApplyFilters(products []catalog.Product, c Criteria) []catalog.Product {
	needle := strings.ToLower(c.SearchText)
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if c.Category != AllCategories && p.Category != c.Category {
			continue
		}
		if p.Price < c.PriceRange[0] || p.Price > c.PriceRange[1] {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ClampPriceEdit sets one bound of the range and drags the other along when they cross.
// Index 0 edits the minimum, index 1 the maximum; any other index leaves r unchanged.
// Negative values are accepted as-is.
func ClampPriceEdit(r PriceRange, editedIndex int, newValue float64) PriceRange {
	switch editedIndex {
	case 0:
		r[0] = newValue
		if newValue > r[1] {
			r[1] = newValue
		}
	case 1:
		r[1] = newValue
		if newValue < r[0] {
			r[0] = newValue
		}
	}
	return r
}

// ResetCriteria restores the category and price range defaults. The search text survives.
func ResetCriteria(c Criteria, maxPrice float64) Criteria {
	reset := DefaultCriteria(maxPrice)
	reset.SearchText = c.SearchText
	return reset
}

// Summarize renders the listing headline, e.g. `Showing 2 of 6 products in Fashion matching "back"`.
func Summarize(shown, total int, c Criteria) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d of %d products", shown, total)
	if c.Category != "" && c.Category != AllCategories {
		fmt.Fprintf(&b, " in %s", c.Category)
	}
	if c.SearchText != "" {
		fmt.Fprintf(&b, " matching %q", c.SearchText)
	}
	return b.String()
}
