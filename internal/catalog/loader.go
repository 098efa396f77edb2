package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var defaultProducts []byte

type document struct {
	Products []Product `json:"products" yaml:"products"`
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultProducts, "yaml")
}

// Load reads a catalog file. The format is picked by extension: .json or .yaml/.yml.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a {"products": [...]} document in the given format.
func Parse(data []byte, format string) (*Catalog, error) {
	var doc document
	switch format {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", storeerrors.ErrInvalidCatalog, err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", storeerrors.ErrInvalidCatalog, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", storeerrors.ErrInvalidCatalog, format)
	}
	return New(doc.Products)
}
