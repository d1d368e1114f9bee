package controllers

import (
	"strings"

	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// parseAmount reads a kroner amount such as "329" or "329.50".
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount").
			WithDetails(map[string]any{"field": "amount"})
	}
	if amount.Exponent() < -2 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount has more than two decimals").
			WithDetails(map[string]any{"field": "amount"})
	}
	return amount, nil
}

func parseOptionalAmount(raw *string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	amount, err := parseAmount(*raw)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}
