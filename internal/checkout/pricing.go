package checkout

import (
	"fmt"

	"github.com/peersenco/storefront-backend/pkg/config"
	"github.com/shopspring/decimal"
)

// ShippingRule charges a flat fee below the free shipping threshold.
type ShippingRule struct {
	FreeThreshold decimal.Decimal
	Fee           decimal.Decimal
}

// ShippingRuleFromConfig parses the configured amounts.
func ShippingRuleFromConfig(cfg config.CheckoutConfig) (ShippingRule, error) {
	threshold, err := decimal.NewFromString(cfg.FreeShippingThreshold)
	if err != nil {
		return ShippingRule{}, fmt.Errorf("parse free shipping threshold: %w", err)
	}
	fee, err := decimal.NewFromString(cfg.ShippingFee)
	if err != nil {
		return ShippingRule{}, fmt.Errorf("parse shipping fee: %w", err)
	}
	if threshold.IsNegative() || fee.IsNegative() {
		return ShippingRule{}, fmt.Errorf("shipping amounts must not be negative")
	}
	return ShippingRule{FreeThreshold: threshold, Fee: fee}, nil
}

// Totals are the amounts charged for an order.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Apply prices shipping for subtotal. Subtotals at or above the threshold ship free.
func (r ShippingRule) Apply(subtotal decimal.Decimal) Totals {
	shipping := r.Fee
	if subtotal.GreaterThanOrEqual(r.FreeThreshold) {
		shipping = decimal.Zero
	}
	return Totals{Subtotal: subtotal, Shipping: shipping, Total: subtotal.Add(shipping)}
}
