package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
)

// PaymentIntentRequest describes a charge in major currency units.
type PaymentIntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Metadata       map[string]string
	Description    string
	ReceiptEmail   string
	IdempotencyKey string
}

// PaymentIntent is the subset of Stripe's intent the storefront uses.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountMinor  int64
}

// PaymentIntentCreator is what checkout depends on.
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
}

// ToMinorUnits converts kroner to øre, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreatePaymentIntent creates an intent with automatic payment methods.
func (c *Client) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	params, err := buildPaymentIntentParams(req)
	if err != nil {
		return nil, err
	}
	pi, err := c.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
	}, nil
}

func buildPaymentIntentParams(req PaymentIntentRequest) (*stripe.PaymentIntentCreateParams, error) {
	amount := ToMinorUnits(req.Amount)
	if amount <= 0 {
		return nil, errors.New("payment amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		return nil, errors.New("currency is required")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	return params, nil
}
