package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/internal/cart"
	"github.com/peersenco/storefront-backend/internal/orders"
	"github.com/peersenco/storefront-backend/pkg/db"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	"github.com/peersenco/storefront-backend/pkg/enums"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/outbox"
	"github.com/peersenco/storefront-backend/pkg/stripe"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderNumberAttempts = 3

type cartReader interface {
	Get(ctx context.Context, ref cart.Ref) (cart.Cart, error)
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, ref cart.Ref, input Input) (*Result, error)
	CreatePaymentIntent(ctx context.Context, input IntentInput) (*IntentResult, error)
}

// Result is what the storefront needs to confirm payment.
type Result struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	Subtotal     string    `json:"subtotal"`
	Shipping     string    `json:"shipping"`
	Total        string    `json:"total"`
	ClientSecret string    `json:"client_secret"`
}

// IntentInput creates a PaymentIntent for an amount in kroner.
type IntentInput struct {
	Amount        decimal.Decimal `json:"amount"`
	OrderID       string          `json:"order_id,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
}

type IntentResult struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	Carts    cartReader
	Orders   orders.Repository
	Tx       db.TxRunner
	Outbox   outbox.Emitter
	Payments stripe.PaymentIntentCreator
	Shipping ShippingRule
	Currency string
	Country  string
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	carts    cartReader
	orders   orders.Repository
	tx       db.TxRunner
	outbox   outbox.Emitter
	payments stripe.PaymentIntentCreator
	shipping ShippingRule
	currency string
	country  string
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment intent creator required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "nok"
	}
	country := strings.TrimSpace(params.Country)
	if country == "" {
		country = "Norge"
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		carts:    params.Carts,
		orders:   params.Orders,
		tx:       params.Tx,
		outbox:   params.Outbox,
		payments: params.Payments,
		shipping: params.Shipping,
		currency: currency,
		country:  country,
		logg:     logg,
		now:      now,
	}, nil
}

// Execute turns the cart of ref into a pending order and opens a
// PaymentIntent for it. The cart itself is cleared later, when the payment
// succeeds.
func (s *service) Execute(ctx context.Context, ref cart.Ref, input Input) (*Result, error) {
	if strings.TrimSpace(ref.SessionID) == "" {
		return nil, cart.ErrMissingSession
	}
	input, err := normalize(input)
	if err != nil {
		return nil, err
	}

	current, err := s.carts.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	totals := s.shipping.Apply(current.Total)

	order, err := s.placeOrder(ctx, ref, input, current, totals)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "order_number": order.OrderNumber})

	intent, err := s.payments.CreatePaymentIntent(ctx, stripe.PaymentIntentRequest{
		Amount:   totals.Total,
		Currency: s.currency,
		Metadata: map[string]string{
			"orderId":       order.ID.String(),
			"orderNumber":   order.OrderNumber,
			"customerEmail": input.Customer.Email,
			"cartSessionId": ref.SessionID,
		},
		Description:    "Peersen & Co " + order.OrderNumber,
		ReceiptEmail:   input.Customer.Email,
		IdempotencyKey: "checkout-" + order.ID.String(),
	})
	if err != nil {
		s.logg.Error(ctx, "checkout.payment_intent_failed", err)
		if markErr := s.orders.UpdateFields(ctx, order.ID, map[string]any{"payment_status": enums.PaymentStatusFailed}); markErr != nil {
			s.logg.Error(ctx, "checkout.mark_failed_failed", markErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	if err := s.orders.UpdateFields(ctx, order.ID, map[string]any{"payment_intent_id": intent.ID}); err != nil {
		// the webhook can still find the order through the orderId metadata
		s.logg.Error(ctx, "checkout.store_intent_failed", err)
	}
	s.logg.Info(ctx, "checkout completed")

	return &Result{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		Subtotal:     cart.FormatAmount(totals.Subtotal),
		Shipping:     cart.FormatAmount(totals.Shipping),
		Total:        cart.FormatAmount(totals.Total),
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (s *service) placeOrder(ctx context.Context, ref cart.Ref, input Input, current cart.Cart, totals Totals) (*models.Order, error) {
	for attempt := 1; ; attempt++ {
		order, err := s.buildOrder(ref, input, current, totals)
		if err != nil {
			return nil, err
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorFor(ref),
				Data:          createdData(order),
			})
		})
		if err == nil {
			return order, nil
		}
		if db.IsUniqueViolation(err, "") && attempt < orderNumberAttempts {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
}

func (s *service) buildOrder(ref cart.Ref, input Input, current cart.Cart, totals Totals) (*models.Order, error) {
	number, err := NewOrderNumber(s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}
	items := make([]models.OrderItem, 0, len(current.Items))
	for _, line := range current.Items {
		items = append(items, models.OrderItem{
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			UnitPrice:   line.Product.Price,
			Quantity:    line.Quantity,
			TotalPrice:  line.LineTotal(),
		})
	}
	var phone *string
	if input.Customer.Phone != "" {
		p := input.Customer.Phone
		phone = &p
	}
	sessionID := ref.SessionID
	return &models.Order{
		ID:                   uuid.New(),
		OrderNumber:          number,
		UserID:               ref.UserID,
		Email:                input.Customer.Email,
		Status:               enums.OrderStatusPending,
		CustomerName:         input.Customer.FirstName + " " + input.Customer.LastName,
		CustomerEmail:        input.Customer.Email,
		CustomerPhone:        phone,
		Subtotal:             totals.Subtotal,
		ShippingCost:         totals.Shipping,
		Total:                totals.Total,
		PaymentMethod:        input.PaymentMethod,
		PaymentStatus:        enums.PaymentStatusPending,
		CartSessionID:        &sessionID,
		ShippingFirstName:    input.Customer.FirstName,
		ShippingLastName:     input.Customer.LastName,
		ShippingAddressLine1: input.ShippingAddress.AddressLine1,
		ShippingPostalCode:   input.ShippingAddress.PostalCode,
		ShippingCity:         input.ShippingAddress.City,
		ShippingCountry:      s.country,
		Items:                items,
	}, nil
}

// CreatePaymentIntent opens an intent that is not tied to a stored order.
func (s *service) CreatePaymentIntent(ctx context.Context, input IntentInput) (*IntentResult, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	metadata := map[string]string{}
	if input.OrderID != "" {
		metadata["orderId"] = input.OrderID
	}
	if input.CustomerEmail != "" {
		metadata["customerEmail"] = input.CustomerEmail
	}
	intent, err := s.payments.CreatePaymentIntent(ctx, stripe.PaymentIntentRequest{
		Amount:   input.Amount,
		Currency: s.currency,
		Metadata: metadata,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return &IntentResult{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID}, nil
}

func actorFor(ref cart.Ref) *outbox.ActorRef {
	if ref.UserID == nil {
		return nil
	}
	id := *ref.UserID
	return &outbox.ActorRef{UserID: &id, Role: enums.UserRoleCustomer.String()}
}

func createdData(order *models.Order) outbox.OrderCreatedData {
	items := make([]outbox.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, outbox.OrderItemData{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return outbox.OrderCreatedData{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		CustomerEmail: order.CustomerEmail,
		PaymentMethod: order.PaymentMethod.String(),
		Subtotal:      order.Subtotal,
		ShippingCost:  order.ShippingCost,
		Total:         order.Total,
		Items:         items,
	}
}
