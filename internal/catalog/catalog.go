// Package catalog holds the immutable product list the storefront sells.
package catalog

import (
	"errors"
	"fmt"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/go-playground/validator/v10"
)

// Product is a sellable catalog item. Products are never mutated after load.
type Product struct {
	ID          string  `json:"id"          yaml:"id"          validate:"required"`
	Title       string  `json:"title"       yaml:"title"       validate:"required"`
	Price       float64 `json:"price"       yaml:"price"       validate:"gte=0"`
	Description string  `json:"description" yaml:"description"`
	Category    string  `json:"category"    yaml:"category"    validate:"required"`
	Image       string  `json:"image"       yaml:"image"`
	Rating      float64 `json:"rating"      yaml:"rating"      validate:"gte=0,lte=5"`
}

// Catalog is a static, ordered product list indexed by id.
type Catalog struct {
	products []Product
	byID     map[string]int
}

var validate = validator.New()

// Validate checks p against the product field rules.
func Validate(p Product) error {
	if err := validate.Struct(p); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return fmt.Errorf("%w: product %q: field %s failed on rule %s",
				storeerrors.ErrInvalidCatalog, p.ID, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: product %q: %v", storeerrors.ErrInvalidCatalog, p.ID, err)
	}
	return nil
}

// New validates the products and builds a catalog preserving their order.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("product #%d: %w", i, err)
		}
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", storeerrors.ErrDuplicateProduct, p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Products returns a copy of the catalog in its original order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// FindByID returns ErrProductNotFound for unknown ids.
func (c *Catalog) FindByID(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", storeerrors.ErrProductNotFound, id)
	}
	return c.products[i], nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}
