// Package catalog contains the read-only product catalog domain types.
package catalog

import (
	"time"
)

// Product is a catalog entry. Products are immutable for the lifetime of a
// session from the cart's point of view.
type Product struct {
	ID             int64     `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Slug           string    `json:"slug" yaml:"slug"`
	Description    string    `json:"description" yaml:"description"`
	Price          float64   `json:"price" yaml:"price"`
	CompareAtPrice *float64  `json:"compareAtPrice,omitempty" yaml:"compare_at_price,omitempty"`
	Images         []string  `json:"images" yaml:"images"`
	Category       string    `json:"category" yaml:"category"`
	Tags           []string  `json:"tags" yaml:"tags"`
	Stock          int       `json:"stock" yaml:"stock"`
	Ratings        *Ratings  `json:"ratings,omitempty" yaml:"ratings,omitempty"`
	IsFeatured     bool      `json:"isFeatured" yaml:"featured"`
	IsNew          bool      `json:"isNew" yaml:"new"`
	CreatedAt      time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" yaml:"updated_at"`
}

// Ratings is the aggregate review score of a product.
type Ratings struct {
	Average float64 `json:"average" yaml:"average"`
	Count   int     `json:"count" yaml:"count"`
}

// Category groups products for browsing.
type Category struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Slug        string `json:"slug" yaml:"slug"`
	Image       string `json:"image" yaml:"image"`
	Description string `json:"description" yaml:"description"`
}

// PrimaryImage returns the first image reference, or "" if the product has none.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// ClampQuantity bounds a requested quantity to [1, Stock].
// Returns 0 when the product is out of stock.
func (p *Product) ClampQuantity(q int) int {
	if p.Stock <= 0 {
		return 0
	}
	if q < 1 {
		return 1
	}
	if q > p.Stock {
		return p.Stock
	}
	return q
}
