package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderItemData is one order line inside order events.
type OrderItemData struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// OrderCreatedData is the payload of order.created.
type OrderCreatedData struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	CustomerEmail string          `json:"customer_email"`
	PaymentMethod string          `json:"payment_method"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
	Items         []OrderItemData `json:"items"`
}

// OrderPaymentData is the payload of order.paid and order.payment_failed.
type OrderPaymentData struct {
	OrderID         uuid.UUID       `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Amount          decimal.Decimal `json:"amount"`
	FailureMessage  string          `json:"failure_message,omitempty"`
}

// OrderExpiredData is the payload of order.expired, emitted when an order
// never received a successful payment.
type OrderExpiredData struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time           `json:"created_at"`
	ExpiredAt     time.Time           `json:"expired_at"`
}
