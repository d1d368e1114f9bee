package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Category holds the category slug.
type Product struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string           `gorm:"column:name;not null"`
	Slug           string           `gorm:"column:slug;not null;uniqueIndex"`
	Description    string           `gorm:"column:description;not null;default:''"`
	Price          decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	CompareAtPrice *decimal.Decimal `gorm:"column:compare_at_price;type:numeric(10,2)"`
	Category       string           `gorm:"column:category;not null"`
	Brand          *string          `gorm:"column:brand"`
	Images         pq.StringArray   `gorm:"column:images;type:text[];not null;default:'{}'"`
	Ingredients    *string          `gorm:"column:ingredients"`
	Usage          *string          `gorm:"column:usage"`
	Tags           pq.StringArray   `gorm:"column:tags;type:text[];not null;default:'{}'"`
	InStock        bool             `gorm:"column:in_stock;not null;default:true"`
	StockQuantity  int              `gorm:"column:stock_quantity;not null;default:0"`
	Featured       bool             `gorm:"column:featured;not null;default:false"`
	Rating         decimal.Decimal  `gorm:"column:rating;type:numeric(2,1);not null;default:0"`
	ReviewCount    int              `gorm:"column:review_count;not null;default:0"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PrimaryImage returns the first image URL or "".
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
