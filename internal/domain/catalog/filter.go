package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// PriceBand is one of the fixed price ranges offered on the product listing.
type PriceBand string

const (
	PriceAny      PriceBand = ""
	PriceUnder50  PriceBand = "under-50"
	Price50To100  PriceBand = "50-100"
	Price100To200 PriceBand = "100-200"
	PriceOver200  PriceBand = "over-200"
)

// Contains reports whether price falls inside the band.
// Lower bounds are inclusive, upper bounds exclusive.
func (b PriceBand) Contains(price float64) bool {
	switch b {
	case PriceUnder50:
		return price < 50
	case Price50To100:
		return price >= 50 && price < 100
	case Price100To200:
		return price >= 100 && price < 200
	case PriceOver200:
		return price >= 200
	default:
		return true
	}
}

// SortOrder controls the ordering of ListProducts results.
type SortOrder string

const (
	SortFeatured     SortOrder = "featured"
	SortNewest       SortOrder = "newest"
	SortPriceLowHigh SortOrder = "price-low-high"
	SortPriceHighLow SortOrder = "price-high-low"
)

// ParsePriceBand validates a price band query value. Empty means any price.
func ParsePriceBand(s string) (PriceBand, error) {
	b := PriceBand(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case PriceAny, PriceUnder50, Price50To100, Price100To200, PriceOver200:
		return b, nil
	}
	return PriceAny, fmt.Errorf("unknown price band %q", s)
}

// ParseSortOrder validates a sort query value. Empty means SortFeatured.
func ParseSortOrder(s string) (SortOrder, error) {
	o := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case "":
		return SortFeatured, nil
	case SortFeatured, SortNewest, SortPriceLowHigh, SortPriceHighLow:
		return o, nil
	}
	return SortFeatured, fmt.Errorf("unknown sort order %q", s)
}

// Filter selects and orders products for ListProducts.
type Filter struct {
	// Category matches Product.Category case-insensitively. Empty matches all.
	Category string
	// Price restricts results to a price band.
	Price PriceBand
	// FeaturedOnly keeps only featured products.
	FeaturedOnly bool
	// Sort orders the results. Empty means SortFeatured.
	Sort SortOrder
	// Match is an optional extra predicate (e.g. a compiled query expression).
	Match func(Product) (bool, error)
}

// Apply filters and sorts products. The input slice is not modified.
func (f Filter) Apply(products []Product) ([]Product, error) {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if !f.Price.Contains(p.Price) {
			continue
		}
		if f.FeaturedOnly && !p.IsFeatured {
			continue
		}
		if f.Match != nil {
			ok, err := f.Match(p)
			if err != nil {
				return nil, fmt.Errorf("product %d: %w", p.ID, err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, p)
	}

	switch f.Sort {
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	case SortPriceLowHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceHighLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	default:
		// Featured first, otherwise catalog order.
		sort.SliceStable(out, func(i, j int) bool { return out[i].IsFeatured && !out[j].IsFeatured })
	}
	return out, nil
}
