package enums

import "fmt"

// PaymentMethod is the option the customer picked at checkout.
type PaymentMethod string

const (
	PaymentMethodVipps  PaymentMethod = "vipps"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodKlarna PaymentMethod = "klarna"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodVipps,
	PaymentMethodCard,
	PaymentMethodKlarna,
}

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
