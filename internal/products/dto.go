package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/internal/cart"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// ProductDTO is the public representation of a catalog product.
type ProductDTO struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Description    string           `json:"description"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	Category       string           `json:"category"`
	Brand          *string          `json:"brand,omitempty"`
	Images         []string         `json:"images"`
	Ingredients    *string          `json:"ingredients,omitempty"`
	Usage          *string          `json:"usage,omitempty"`
	Tags           []string         `json:"tags"`
	InStock        bool             `json:"in_stock"`
	StockQuantity  int              `json:"stock_quantity"`
	Featured       bool             `json:"featured"`
	Rating         decimal.Decimal  `json:"rating"`
	ReviewCount    int              `json:"review_count"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewProductDTO maps the model into its public shape.
func NewProductDTO(p models.Product) ProductDTO {
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	return ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Category:       p.Category,
		Brand:          p.Brand,
		Images:         images,
		Ingredients:    p.Ingredients,
		Usage:          p.Usage,
		Tags:           tags,
		InStock:        p.InStock,
		StockQuantity:  p.StockQuantity,
		Featured:       p.Featured,
		Rating:         p.Rating,
		ReviewCount:    p.ReviewCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// Snapshot copies the fields a cart line keeps. The first image becomes the
// cart image.
func Snapshot(p models.Product) cart.ProductSnapshot {
	return cart.ProductSnapshot{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Image:          p.PrimaryImage(),
		Description:    p.Description,
		Category:       p.Category,
		InStock:        p.InStock,
	}
}
