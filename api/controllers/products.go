package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/peersenco/storefront-backend/api/responses"
	"github.com/peersenco/storefront-backend/api/validators"
	productsvc "github.com/peersenco/storefront-backend/internal/products"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
)

// ProductList serves the public catalog with category, featured, in_stock and
// q filters.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		featured, err := validators.ParseQueryBool(r, "featured")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inStock, err := validators.ParseQueryBool(r, "in_stock")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.ListProducts(r.Context(), productsvc.ListProductsInput{
			Filters: productsvc.ListFilters{
				Category: strings.TrimSpace(query.Get("category")),
				Featured: featured,
				InStock:  inStock,
				Query:    validators.SanitizeString(query.Get("q"), 100),
			},
			Pagination: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		product, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// AdminCreateProduct handles product creation from the admin panel.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteCreated(w, product)
	}
}

func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteNoContent(w)
	}
}

type createProductRequest struct {
	Name           string   `json:"name" validate:"required,max=200"`
	Slug           string   `json:"slug,omitempty" validate:"omitempty,max=200"`
	Description    string   `json:"description" validate:"max=5000"`
	Price          string   `json:"price" validate:"required"`
	CompareAtPrice *string  `json:"compare_at_price,omitempty"`
	Category       string   `json:"category" validate:"required,max=100"`
	Brand          *string  `json:"brand,omitempty" validate:"omitempty,max=100"`
	Images         []string `json:"images,omitempty" validate:"omitempty,max=10,dive,url"`
	Ingredients    *string  `json:"ingredients,omitempty"`
	Usage          *string  `json:"usage,omitempty"`
	Tags           []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,required,max=50"`
	InStock        *bool    `json:"in_stock,omitempty"`
	StockQuantity  int      `json:"stock_quantity" validate:"gte=0"`
	Featured       bool     `json:"featured"`
}

func (r createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	price, err := parseAmount(r.Price)
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}
	compareAt, err := parseOptionalAmount(r.CompareAtPrice)
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}

	return productsvc.CreateProductInput{
		Name:           validators.SanitizeString(r.Name, 200),
		Slug:           strings.TrimSpace(r.Slug),
		Description:    strings.TrimSpace(r.Description),
		Price:          price,
		CompareAtPrice: compareAt,
		Category:       strings.TrimSpace(r.Category),
		Brand:          r.Brand,
		Images:         r.Images,
		Ingredients:    r.Ingredients,
		Usage:          r.Usage,
		Tags:           r.Tags,
		InStock:        r.InStock,
		StockQuantity:  r.StockQuantity,
		Featured:       r.Featured,
	}, nil
}

type updateProductRequest struct {
	Name           *string   `json:"name,omitempty" validate:"omitempty,max=200"`
	Slug           *string   `json:"slug,omitempty" validate:"omitempty,max=200"`
	Description    *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price          *string   `json:"price,omitempty"`
	CompareAtPrice *string   `json:"compare_at_price,omitempty"`
	Category       *string   `json:"category,omitempty" validate:"omitempty,max=100"`
	Brand          *string   `json:"brand,omitempty" validate:"omitempty,max=100"`
	Images         *[]string `json:"images,omitempty" validate:"omitempty,max=10,dive,url"`
	Ingredients    *string   `json:"ingredients,omitempty"`
	Usage          *string   `json:"usage,omitempty"`
	Tags           *[]string `json:"tags,omitempty" validate:"omitempty,max=20,dive,required,max=50"`
	InStock        *bool     `json:"in_stock,omitempty"`
	StockQuantity  *int      `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
	Featured       *bool     `json:"featured,omitempty"`
}

func (r updateProductRequest) toUpdateInput() (productsvc.UpdateProductInput, error) {
	price, err := parseOptionalAmount(r.Price)
	if err != nil {
		return productsvc.UpdateProductInput{}, err
	}
	compareAt, err := parseOptionalAmount(r.CompareAtPrice)
	if err != nil {
		return productsvc.UpdateProductInput{}, err
	}

	return productsvc.UpdateProductInput{
		Name:           r.Name,
		Slug:           r.Slug,
		Description:    r.Description,
		Price:          price,
		CompareAtPrice: compareAt,
		Category:       r.Category,
		Brand:          r.Brand,
		Images:         r.Images,
		Ingredients:    r.Ingredients,
		Usage:          r.Usage,
		Tags:           r.Tags,
		InStock:        r.InStock,
		StockQuantity:  r.StockQuantity,
		Featured:       r.Featured,
	}, nil
}
