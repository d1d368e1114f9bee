package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the copy of catalog fields taken when a product first
// enters a cart. It is never refreshed from the catalog afterwards, so a cart
// keeps showing the price the customer saw when adding the product.
type ProductSnapshot struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	Image          string           `json:"image"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	InStock        bool             `json:"in_stock"`
}

// Line pairs a product snapshot with a positive quantity.
type Line struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an immutable value. Every transition returns a new Cart whose Total
// has been recomputed from Items.
type Cart struct {
	Items []Line
	Total decimal.Decimal
}

// Empty returns a cart with no lines and a zero total.
func Empty() Cart {
	return Cart{Items: []Line{}, Total: decimal.Zero}
}

// FromLines builds a cart from lines, copying the slice.
func FromLines(lines []Line) Cart {
	items := make([]Line, len(lines))
	copy(items, lines)
	return Cart{Items: items, Total: Total(items)}
}

// ItemCount is the sum of quantities across lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Items {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Find returns the line for productID.
func (c Cart) Find(productID uuid.UUID) (Line, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Items[i], true
	}
	return Line{}, false
}

func (c Cart) index(productID uuid.UUID) int {
	return indexIn(c.Items, productID)
}

// Ref identifies the cart a request operates on: the device session and,
// when signed in, the customer.
type Ref struct {
	SessionID string
	UserID    *uuid.UUID
}

// Authenticated reports whether the ref carries a customer identity.
func (r Ref) Authenticated() bool {
	return r.UserID != nil
}
