package cart

import "github.com/google/uuid"

// MaxLineQuantity bounds every line; larger results are clamped.
const MaxLineQuantity = 99

// Add increments the line for p by qty, or appends a new line. The snapshot of
// an existing line is kept. qty must be positive; the resulting line is clamped
// to MaxLineQuantity.
func (c Cart) Add(p ProductSnapshot, qty int) (Cart, error) {
	if qty <= 0 {
		return c, ErrInvalidQuantity.WithDetails(map[string]any{"quantity": qty})
	}
	items := c.cloneItems()
	if i := c.index(p.ID); i >= 0 {
		items[i].Quantity = clampQuantity(items[i].Quantity + qty)
	} else {
		items = append(items, Line{Product: p, Quantity: clampQuantity(qty)})
	}
	return FromLines(items), nil
}

// SetQuantity replaces the quantity of an existing line. qty <= 0 removes the
// line. Unknown products leave the cart unchanged.
func (c Cart) SetQuantity(productID uuid.UUID, qty int) Cart {
	if qty <= 0 {
		return c.Remove(productID)
	}
	i := c.index(productID)
	if i < 0 {
		return c
	}
	items := c.cloneItems()
	items[i].Quantity = clampQuantity(qty)
	return FromLines(items)
}

// Remove drops the line for productID. Removing an absent product is a no-op.
func (c Cart) Remove(productID uuid.UUID) Cart {
	i := c.index(productID)
	if i < 0 {
		return c
	}
	items := make([]Line, 0, len(c.Items)-1)
	items = append(items, c.Items[:i]...)
	items = append(items, c.Items[i+1:]...)
	return FromLines(items)
}

// Clear returns an empty cart.
func (c Cart) Clear() Cart {
	return Empty()
}

// Merge combines two carts by product id, summing quantities up to
// MaxLineQuantity. Lines of c come first and keep their snapshot when both
// carts hold the same product.
func (c Cart) Merge(other Cart) Cart {
	items := c.cloneItems()
	for _, l := range other.Items {
		if i := indexIn(items, l.Product.ID); i >= 0 {
			items[i].Quantity = clampQuantity(items[i].Quantity + l.Quantity)
			continue
		}
		l.Quantity = clampQuantity(l.Quantity)
		items = append(items, l)
	}
	return FromLines(items)
}

func clampQuantity(qty int) int {
	if qty > MaxLineQuantity {
		return MaxLineQuantity
	}
	return qty
}

func (c Cart) cloneItems() []Line {
	items := make([]Line, len(c.Items), len(c.Items)+1)
	copy(items, c.Items)
	return items
}

func indexIn(items []Line, productID uuid.UUID) int {
	for i, l := range items {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}
