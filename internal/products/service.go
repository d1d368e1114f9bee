package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/peersenco/storefront-backend/internal/cart"
	"github.com/peersenco/storefront-backend/pkg/db"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// Service exposes catalog reads and admin product management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	SnapshotByID(ctx context.Context, productID uuid.UUID) (cart.ProductSnapshot, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name           string
	Slug           string
	Description    string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Category       string
	Brand          *string
	Images         []string
	Ingredients    *string
	Usage          *string
	Tags           []string
	InStock        *bool
	StockQuantity  int
	Featured       bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name           *string
	Slug           *string
	Description    *string
	Price          *decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Category       *string
	Brand          *string
	Images         *[]string
	Ingredients    *string
	Usage          *string
	Tags           *[]string
	InStock        *bool
	StockQuantity  *int
	Featured       *bool
}

type imageRemover interface {
	DeleteByURL(ctx context.Context, publicURL string) error
}

type service struct {
	repo   *Repository
	images imageRemover
	logg   *logger.Logger
}

// NewService constructs a product service instance. images may be nil when
// object storage is not configured.
func NewService(repo *Repository, images imageRemover, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, images: images, logg: logg}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, listQuery(input))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, NewProductDTO(p))
	}
	return &ProductListResult{Products: out, NextCursor: next}, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	dto := NewProductDTO(*p)
	return &dto, nil
}

// SnapshotByID resolves a product for the cart.
func (s *service) SnapshotByID(ctx context.Context, productID uuid.UUID) (cart.ProductSnapshot, error) {
	p, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return cart.ProductSnapshot{}, cart.ErrProductNotFound
		}
		return cart.ProductSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return Snapshot(*p), nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if err := validatePrices(input.Price, input.CompareAtPrice); err != nil {
		return nil, err
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity cannot be negative")
	}
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}

	inStock := input.StockQuantity > 0
	if input.InStock != nil {
		inStock = *input.InStock
	}
	product := &models.Product{
		Name:           name,
		Slug:           slug,
		Description:    input.Description,
		Price:          input.Price,
		CompareAtPrice: input.CompareAtPrice,
		Category:       category,
		Brand:          input.Brand,
		Images:         pq.StringArray(nonNil(input.Images)),
		Ingredients:    input.Ingredients,
		Usage:          input.Usage,
		Tags:           pq.StringArray(nonNil(input.Tags)),
		InStock:        inStock,
		StockQuantity:  input.StockQuantity,
		Featured:       input.Featured,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product with this slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product created")
	dto := NewProductDTO(*product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Slug != nil {
		slug := Slugify(*input.Slug)
		if slug == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug cannot be empty")
		}
		product.Slug = slug
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.CompareAtPrice != nil {
		product.CompareAtPrice = input.CompareAtPrice
	}
	if err := validatePrices(product.Price, product.CompareAtPrice); err != nil {
		return nil, err
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		product.Category = category
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.Images != nil {
		product.Images = pq.StringArray(nonNil(*input.Images))
	}
	if input.Ingredients != nil {
		product.Ingredients = input.Ingredients
	}
	if input.Usage != nil {
		product.Usage = input.Usage
	}
	if input.Tags != nil {
		product.Tags = pq.StringArray(nonNil(*input.Tags))
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity cannot be negative")
		}
		product.StockQuantity = *input.StockQuantity
	}
	if input.InStock != nil {
		product.InStock = *input.InStock
	}
	if input.Featured != nil {
		product.Featured = *input.Featured
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product with this slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto := NewProductDTO(*product)
	return &dto, nil
}

// DeleteProduct removes the row, then removes its images. Image removal
// failures are logged and never fail the call.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if _, err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}

	if s.images == nil {
		return nil
	}
	ctx = s.logg.WithField(ctx, "product_id", productID.String())
	for _, url := range product.Images {
		if err := s.images.DeleteByURL(ctx, url); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "image_url", url), "product.image_cleanup_failed")
		}
	}
	return nil
}

func validatePrices(price decimal.Decimal, compareAt *decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if compareAt != nil && compareAt.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "compare_at_price cannot be negative")
	}
	return nil
}

// Slugify lower-cases value and joins runs of letters and digits with '-'.
// Norwegian letters are transliterated.
func Slugify(value string) string {
	replacer := strings.NewReplacer("æ", "ae", "ø", "o", "å", "a", "Æ", "ae", "Ø", "o", "Å", "a")
	value = strings.ToLower(replacer.Replace(strings.TrimSpace(value)))

	var b strings.Builder
	dash := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
