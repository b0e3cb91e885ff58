// Package seed loads catalog data from YAML, either the embedded default
// catalog or an operator-supplied file.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lumenshop/storefront/internal/domain/catalog"
)

//go:embed products.yaml
var defaultCatalog []byte

// Data is the decoded contents of a catalog file.
type Data struct {
	Products   []catalog.Product  `yaml:"products"`
	Categories []catalog.Category `yaml:"categories"`
}

// Default returns the built-in catalog.
func Default() (*Data, error) {
	d, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return d, nil
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return d, nil
}

// Load returns the catalog at path, or the built-in catalog when path is empty.
func Load(path string) (*Data, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Parse decodes and checks catalog YAML. Unknown fields are rejected.
func Parse(raw []byte) (*Data, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var d Data
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return &Data{}, nil
		}
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := d.check(); err != nil {
		return nil, err
	}
	return &d, nil
}

// check enforces unique IDs and slugs and non-negative price and stock.
func (d *Data) check() error {
	var problems []string
	ids := make(map[int64]bool, len(d.Products))
	slugs := make(map[string]bool, len(d.Products))
	for i, p := range d.Products {
		switch {
		case p.ID <= 0:
			problems = append(problems, fmt.Sprintf("products[%d]: id must be positive", i))
		case ids[p.ID]:
			problems = append(problems, fmt.Sprintf("products[%d]: duplicate id %d", i, p.ID))
		}
		ids[p.ID] = true

		if p.Slug == "" {
			problems = append(problems, fmt.Sprintf("products[%d]: slug is required", i))
		} else if slugs[p.Slug] {
			problems = append(problems, fmt.Sprintf("products[%d]: duplicate slug %q", i, p.Slug))
		}
		slugs[p.Slug] = true

		if p.Name == "" {
			problems = append(problems, fmt.Sprintf("products[%d]: name is required", i))
		}
		if !validPrice(p.Price) {
			problems = append(problems, fmt.Sprintf("products[%d]: price must be a finite non-negative number", i))
		}
		if p.CompareAtPrice != nil && !validPrice(*p.CompareAtPrice) {
			problems = append(problems, fmt.Sprintf("products[%d]: compare_at_price must be a finite non-negative number", i))
		}
		if p.Stock < 0 {
			problems = append(problems, fmt.Sprintf("products[%d]: stock must not be negative", i))
		}
	}

	catSlugs := make(map[string]bool, len(d.Categories))
	for i, c := range d.Categories {
		if c.Slug == "" {
			problems = append(problems, fmt.Sprintf("categories[%d]: slug is required", i))
		} else if catSlugs[c.Slug] {
			problems = append(problems, fmt.Sprintf("categories[%d]: duplicate slug %q", i, c.Slug))
		}
		catSlugs[c.Slug] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid catalog:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func validPrice(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
