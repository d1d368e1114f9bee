package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/internal/cart"
	"github.com/peersenco/storefront-backend/internal/orders"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
)

type paymentRecorder interface {
	RecordPayment(ctx context.Context, outcome orders.PaymentOutcome) (*orders.PaymentResult, error)
}

type cartClearer interface {
	ClearAfterCheckout(ctx context.Context, ref cart.Ref) error
}

type ServiceParams struct {
	Orders paymentRecorder
	Carts  cartClearer
	Logger *logger.Logger
}

// Service applies payment_intent events to orders.
type Service struct {
	orders paymentRecorder
	carts  cartClearer
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{orders: params.Orders, carts: params.Carts, logg: logg}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "stripe_event_type": string(event.Type)})

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.handleSucceeded(ctx, intent)
	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.handleFailed(ctx, intent)
	default:
		s.logg.Info(ctx, "stripe.webhook.ignored")
		return nil
	}
}

func (s *Service) handleSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	outcome, err := outcomeFor(intent, true)
	if err != nil {
		return err
	}
	result, err := s.orders.RecordPayment(ctx, outcome)
	if err != nil {
		return err
	}
	if !result.Changed {
		return nil
	}

	ref := cart.Ref{UserID: result.Order.UserID}
	if result.Order.CartSessionID != nil {
		ref.SessionID = *result.Order.CartSessionID
	} else {
		ref.SessionID = intent.Metadata["cartSessionId"]
	}
	if strings.TrimSpace(ref.SessionID) == "" {
		return nil
	}
	// the payment is recorded either way; a stale cart is not worth a redelivery
	if err := s.carts.ClearAfterCheckout(ctx, ref); err != nil {
		s.logg.Error(s.logg.WithCartSession(ctx, ref.SessionID), "stripe.webhook.cart_clear_failed", err)
	}
	return nil
}

func (s *Service) handleFailed(ctx context.Context, intent *stripe.PaymentIntent) error {
	outcome, err := outcomeFor(intent, false)
	if err != nil {
		return err
	}
	if intent.LastPaymentError != nil {
		outcome.FailureMessage = intent.LastPaymentError.Msg
	}
	_, err = s.orders.RecordPayment(ctx, outcome)
	return err
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

func outcomeFor(intent *stripe.PaymentIntent, succeeded bool) (orders.PaymentOutcome, error) {
	outcome := orders.PaymentOutcome{
		IntentID:  intent.ID,
		Succeeded: succeeded,
		Amount:    decimal.New(intent.Amount, -2),
	}
	if raw := strings.TrimSpace(intent.Metadata["orderId"]); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return orders.PaymentOutcome{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid orderId metadata")
		}
		outcome.OrderID = &id
	}
	return outcome, nil
}
