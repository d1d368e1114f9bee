package cartdto

import "github.com/google/uuid"

// DefaultAddQuantity applies when an add request omits quantity.
const DefaultAddQuantity = 1

type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity" validate:"omitempty,gte=1,lte=99"`
}

func (r AddItemRequest) QuantityOrDefault() int {
	if r.Quantity == nil {
		return DefaultAddQuantity
	}
	return *r.Quantity
}

// SetQuantityRequest sets an absolute quantity; zero removes the line.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=99"`
}
