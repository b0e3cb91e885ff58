package cart

import (
	"github.com/lumenshop/storefront/internal/domain/catalog"
)

// AddItem merges quantity into the line for product, or appends a new line
// with id and a snapshot of the product's current name, price and first image.
// A merge leaves the existing snapshot untouched.
//
// Returns ErrInvalidQuantity and c unchanged when quantity <= 0, and
// ErrQuantityLimit and c unchanged when the line would exceed MaxQuantity.
func AddItem(c Cart, product catalog.Product, quantity int, id int64) (Cart, error) {
	if quantity <= 0 {
		return c, ErrInvalidQuantity
	}
	if quantity > MaxQuantity {
		return c, ErrQuantityLimit
	}

	next := c.Clone()
	for i := range next.Items {
		if next.Items[i].ProductID == product.ID {
			if next.Items[i].Quantity > MaxQuantity-quantity {
				return c, ErrQuantityLimit
			}
			next.Items[i].Quantity += quantity
			return next, nil
		}
	}

	next.Items = append(next.Items, LineItem{
		ID:        id,
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		Image:     product.PrimaryImage(),
	})
	return next, nil
}

// RemoveItem deletes the line with lineID. Unknown IDs are a no-op.
func RemoveItem(c Cart, lineID int64) Cart {
	i := c.indexOf(lineID)
	if i < 0 {
		return c
	}
	items := make([]LineItem, 0, len(c.Items)-1)
	items = append(items, c.Items[:i]...)
	items = append(items, c.Items[i+1:]...)
	return Cart{Items: items}
}

// UpdateQuantity sets the quantity of lineID to exactly quantity.
// A quantity <= 0 removes the line and one above MaxQuantity is capped.
// Unknown IDs are a no-op.
func UpdateQuantity(c Cart, lineID int64, quantity int) Cart {
	if quantity <= 0 {
		return RemoveItem(c, lineID)
	}
	quantity = min(quantity, MaxQuantity)
	i := c.indexOf(lineID)
	if i < 0 {
		return c
	}
	next := c.Clone()
	next.Items[i].Quantity = quantity
	return next
}

// Clear returns an empty cart.
func Clear(Cart) Cart {
	return Empty()
}

// Normalize drops invalid lines from a cart read from storage: lines with a
// non-positive quantity, and any line repeating an earlier line's product or
// line ID. Quantities above MaxQuantity are capped.
// Returns the cleaned cart and the number of lines dropped.
func Normalize(c Cart) (Cart, int) {
	products := make(map[int64]struct{}, len(c.Items))
	lines := make(map[int64]struct{}, len(c.Items))
	items := make([]LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.Quantity <= 0 {
			continue
		}
		_, dupProduct := products[item.ProductID]
		_, dupLine := lines[item.ID]
		if dupProduct || dupLine {
			continue
		}
		products[item.ProductID] = struct{}{}
		lines[item.ID] = struct{}{}
		item.Quantity = min(item.Quantity, MaxQuantity)
		items = append(items, item)
	}
	return Cart{Items: items}, len(c.Items) - len(items)
}
