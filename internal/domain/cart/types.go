// Package cart contains the shopping cart domain: line items, the pure state
// transitions applied to them, and line identifier generation.
package cart

import (
	"errors"
	"fmt"
)

// MaxQuantity is the largest quantity a single line can hold.
const MaxQuantity = 9999

var (
	// ErrInvalidQuantity is returned by AddItem when the requested quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrQuantityLimit is returned by AddItem when a line would exceed MaxQuantity.
	ErrQuantityLimit = fmt.Errorf("quantity exceeds the per-line limit of %d", MaxQuantity)
)

// LineItem is one distinct product entry in the cart.
// Name, UnitPrice and Image are a snapshot of the product taken when the line
// was created and are never refreshed from the catalog.
type LineItem struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image"`
}

// LineTotal returns UnitPrice × Quantity.
func (l LineItem) LineTotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Cart is the ordered list of line items. Insertion order is display order.
// At most one line exists per ProductID or line ID, and every Quantity is
// in [1, MaxQuantity].
//
// Transition functions treat a Cart as a value: they never write through to
// the receiver's backing array.
type Cart struct {
	Items []LineItem
}

// Empty returns a cart with no lines.
func Empty() Cart {
	return Cart{Items: []LineItem{}}
}

// Len returns the number of lines.
func (c Cart) Len() int {
	return len(c.Items)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the sum of all line quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Subtotal returns the sum of UnitPrice × Quantity over all lines.
// No rounding is applied.
func (c Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.LineTotal()
	}
	return total
}

// Find returns the line with the given ID.
func (c Cart) Find(lineID int64) (LineItem, bool) {
	if i := c.indexOf(lineID); i >= 0 {
		return c.Items[i], true
	}
	return LineItem{}, false
}

// FindByProduct returns the line for the given product.
func (c Cart) FindByProduct(productID int64) (LineItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return LineItem{}, false
}

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}

func (c Cart) indexOf(lineID int64) int {
	for i, item := range c.Items {
		if item.ID == lineID {
			return i
		}
	}
	return -1
}
