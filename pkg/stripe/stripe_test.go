package stripe

import (
	"context"
	"testing"

	"github.com/peersenco/storefront-backend/pkg/config"
	"github.com/shopspring/decimal"
)

func TestNewClientValidatesKeys(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  config.StripeConfig
		ok   bool
	}{
		{"test key", config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "test"}, true},
		{"restricted live key", config.StripeConfig{APIKey: "rk_live_123", Secret: "whsec_1", Env: "live"}, true},
		{"live key in test", config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_1", Env: "test"}, false},
		{"missing secret", config.StripeConfig{APIKey: "sk_test_123", Env: "test"}, false},
		{"unknown env", config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "staging"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(ctx, tc.cfg, nil)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
			if tc.ok && client.SigningSecret() != "whsec_1" {
				t.Fatalf("signing secret not kept")
			}
		})
	}
}

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"250":     25000,
		"579.00":  57900,
		"99.995":  10000,
		"0.01":    1,
		"1299.49": 129949,
	}
	for in, want := range cases {
		if got := ToMinorUnits(decimal.RequireFromString(in)); got != want {
			t.Fatalf("ToMinorUnits(%s) = %d, want %d", in, got, want)
		}
	}
}

func TestBuildPaymentIntentParams(t *testing.T) {
	params, err := buildPaymentIntentParams(PaymentIntentRequest{
		Amount:         decimal.RequireFromString("329"),
		Currency:       "NOK",
		Metadata:       map[string]string{"orderId": "o-1", "orderNumber": "ORD-1-AAAAAAAAA"},
		IdempotencyKey: "checkout-o-1",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if *params.Amount != 32900 || *params.Currency != "nok" {
		t.Fatalf("unexpected amount/currency %d %s", *params.Amount, *params.Currency)
	}
	if params.AutomaticPaymentMethods == nil || !*params.AutomaticPaymentMethods.Enabled {
		t.Fatal("automatic payment methods must be enabled")
	}
	if params.Metadata["orderId"] != "o-1" || params.Metadata["orderNumber"] != "ORD-1-AAAAAAAAA" {
		t.Fatalf("metadata not set: %v", params.Metadata)
	}
	if params.IdempotencyKey == nil || *params.IdempotencyKey != "checkout-o-1" {
		t.Fatal("idempotency key not set")
	}

	if _, err := buildPaymentIntentParams(PaymentIntentRequest{Amount: decimal.Zero, Currency: "nok"}); err == nil {
		t.Fatal("expected zero amount error")
	}
}
