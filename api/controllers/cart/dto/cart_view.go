package cartdto

import "github.com/google/uuid"

// CartView is the cart exposed through the API. Money is rendered with two
// decimals.
type CartView struct {
	Items     []CartViewItem `json:"items"`
	Total     string         `json:"total"`
	ItemCount int            `json:"item_count"`
}

// CartViewItem is one line: the product snapshot taken when it was first added
// plus the quantity.
type CartViewItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Price          string    `json:"price"`
	CompareAtPrice *string   `json:"compare_at_price,omitempty"`
	Image          string    `json:"image"`
	Category       string    `json:"category"`
	InStock        bool      `json:"in_stock"`
	Quantity       int       `json:"quantity"`
	LineTotal      string    `json:"line_total"`
}
