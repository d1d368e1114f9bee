package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a placed storefront order. Guest orders have no UserID.
type Order struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber          string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID               *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	Email                string              `gorm:"column:email;not null"`
	Status               enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	CustomerName         string              `gorm:"column:customer_name;not null"`
	CustomerEmail        string              `gorm:"column:customer_email;not null"`
	CustomerPhone        *string             `gorm:"column:customer_phone"`
	Subtotal             decimal.Decimal     `gorm:"column:subtotal;type:numeric(10,2);not null"`
	ShippingCost         decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(10,2);not null"`
	Total                decimal.Decimal     `gorm:"column:total;type:numeric(10,2);not null"`
	PaymentMethod        enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus        enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentIntentID      *string             `gorm:"column:payment_intent_id"`
	CartSessionID        *string             `gorm:"column:cart_session_id"`
	ShippingFirstName    string              `gorm:"column:shipping_first_name;not null"`
	ShippingLastName     string              `gorm:"column:shipping_last_name;not null"`
	ShippingAddressLine1 string              `gorm:"column:shipping_address_line1;not null"`
	ShippingPostalCode   string              `gorm:"column:shipping_postal_code;not null"`
	ShippingCity         string              `gorm:"column:shipping_city;not null"`
	ShippingCountry      string              `gorm:"column:shipping_country;not null"`
	Items                []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:numeric(10,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
