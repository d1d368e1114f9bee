package checkout

import (
	"net/mail"
	"strings"

	"github.com/peersenco/storefront-backend/pkg/enums"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
)

// Customer is who pays for the order.
type Customer struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// ShippingAddress is where the order ships.
type ShippingAddress struct {
	AddressLine1 string `json:"address_line1" validate:"required,max=200"`
	PostalCode   string `json:"postal_code" validate:"required,max=10"`
	City         string `json:"city" validate:"required,max=100"`
}

// Input is the checkout form.
type Input struct {
	Customer        Customer            `json:"customer" validate:"required"`
	ShippingAddress ShippingAddress     `json:"shipping_address" validate:"required"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method" validate:"required"`
}

func normalize(input Input) (Input, error) {
	out := Input{
		Customer: Customer{
			FirstName: strings.TrimSpace(input.Customer.FirstName),
			LastName:  strings.TrimSpace(input.Customer.LastName),
			Email:     strings.ToLower(strings.TrimSpace(input.Customer.Email)),
			Phone:     strings.TrimSpace(input.Customer.Phone),
		},
		ShippingAddress: ShippingAddress{
			AddressLine1: strings.TrimSpace(input.ShippingAddress.AddressLine1),
			PostalCode:   strings.TrimSpace(input.ShippingAddress.PostalCode),
			City:         strings.TrimSpace(input.ShippingAddress.City),
		},
		PaymentMethod: input.PaymentMethod,
	}

	required := [][2]string{
		{"customer.first_name", out.Customer.FirstName},
		{"customer.last_name", out.Customer.LastName},
		{"customer.email", out.Customer.Email},
		{"shipping_address.address_line1", out.ShippingAddress.AddressLine1},
		{"shipping_address.postal_code", out.ShippingAddress.PostalCode},
		{"shipping_address.city", out.ShippingAddress.City},
	}
	for _, field := range required {
		if field[1] == "" {
			return Input{}, pkgerrors.New(pkgerrors.CodeValidation, field[0]+" is required")
		}
	}
	if _, err := mail.ParseAddress(out.Customer.Email); err != nil {
		return Input{}, pkgerrors.New(pkgerrors.CodeValidation, "customer.email is invalid")
	}
	if !out.PaymentMethod.IsValid() {
		return Input{}, pkgerrors.New(pkgerrors.CodeValidation, "payment_method must be vipps, card or klarna")
	}
	return out, nil
}
