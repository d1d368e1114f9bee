package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserCart is one persisted cart line for a signed-in customer. The product
// columns are a snapshot taken when the line was first added.
type UserCart struct {
	UserID         uuid.UUID        `gorm:"column:user_id;type:uuid;primaryKey"`
	ProductID      uuid.UUID        `gorm:"column:product_id;type:uuid;primaryKey"`
	Quantity       int              `gorm:"column:quantity;not null"`
	ProductName    string           `gorm:"column:product_name;not null"`
	Slug           string           `gorm:"column:slug;not null;default:''"`
	Price          decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	CompareAtPrice *decimal.Decimal `gorm:"column:compare_at_price;type:numeric(10,2)"`
	Image          string           `gorm:"column:image;not null;default:''"`
	Description    string           `gorm:"column:description;not null;default:''"`
	Category       string           `gorm:"column:category;not null;default:''"`
	InStock        bool             `gorm:"column:in_stock;not null;default:true"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserCart) TableName() string { return "user_carts" }
