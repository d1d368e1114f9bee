package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/internal/cart"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const productsDDL = `
CREATE TABLE products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	price NUMERIC NOT NULL,
	compare_at_price NUMERIC,
	category TEXT NOT NULL,
	brand TEXT,
	images TEXT NOT NULL DEFAULT '{}',
	ingredients TEXT,
	usage TEXT,
	tags TEXT NOT NULL DEFAULT '{}',
	in_stock BOOLEAN NOT NULL DEFAULT 1,
	stock_quantity INTEGER NOT NULL DEFAULT 0,
	featured BOOLEAN NOT NULL DEFAULT 0,
	rating NUMERIC NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME
)`

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(productsDDL).Error)
	return conn
}

type recordingRemover struct {
	urls []string
	err  error
}

func (r *recordingRemover) DeleteByURL(_ context.Context, url string) error {
	r.urls = append(r.urls, url)
	return r.err
}

func newTestService(t *testing.T, images imageRemover) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(openTestDB(t))
	svc, err := NewService(repo, images, nil)
	require.NoError(t, err)
	return svc, repo
}

func TestCreateProductDerivesSlugAndStock(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:          "Fuktighetskrem Rødalge",
		Price:         decimal.RequireFromString("329.00"),
		Category:      "ansiktspleie",
		Images:        []string{"https://cdn/a.webp", "https://cdn/b.webp"},
		StockQuantity: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, "fuktighetskrem-rodalge", dto.Slug)
	assert.True(t, dto.InStock)
	assert.Equal(t, []string{}, dto.Tags)

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name:     "Another",
		Slug:     "fuktighetskrem-rodalge",
		Price:    decimal.NewFromInt(10),
		Category: "ansiktspleie",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateProductRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	cases := map[string]CreateProductInput{
		"missing name":     {Price: decimal.NewFromInt(1), Category: "x"},
		"missing category": {Name: "A", Price: decimal.NewFromInt(1)},
		"negative price":   {Name: "A", Category: "x", Price: decimal.NewFromInt(-1)},
		"negative stock":   {Name: "A", Category: "x", Price: decimal.NewFromInt(1), StockQuantity: -2},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestSnapshotByIDUsesFirstImage(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	compare := decimal.RequireFromString("399.00")
	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:           "Serum",
		Price:          decimal.RequireFromString("299.00"),
		CompareAtPrice: &compare,
		Category:       "serum",
		Images:         []string{"https://cdn/first.webp", "https://cdn/second.webp"},
		StockQuantity:  1,
	})
	require.NoError(t, err)

	snap, err := svc.SnapshotByID(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/first.webp", snap.Image)
	assert.Equal(t, "299", snap.Price.String())
	require.NotNil(t, snap.CompareAtPrice)

	_, err = svc.SnapshotByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, cart.ErrProductNotFound))
}

func TestListProductsFiltersAndPages(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"Rens", "Toner", "Serum", "Krem", "Maske"} {
		p := &models.Product{
			Name:      name,
			Slug:      Slugify(name),
			Price:     decimal.NewFromInt(int64(100 + i)),
			Category:  "ansiktspleie",
			InStock:   true,
			Featured:  i%2 == 0,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, p))
	}

	first, err := svc.ListProducts(ctx, ListProductsInput{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Products, 2)
	assert.Equal(t, "Maske", first.Products[0].Name)
	assert.Equal(t, "Krem", first.Products[1].Name)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListProducts(ctx, ListProductsInput{Pagination: pagination.Params{Limit: 2, Cursor: first.NextCursor}})
	require.NoError(t, err)
	require.Len(t, second.Products, 2)
	assert.Equal(t, "Serum", second.Products[0].Name)

	featured := true
	filtered, err := svc.ListProducts(ctx, ListProductsInput{Filters: ListFilters{Featured: &featured}})
	require.NoError(t, err)
	assert.Len(t, filtered.Products, 3)

	search, err := svc.ListProducts(ctx, ListProductsInput{Filters: ListFilters{Query: "ton"}})
	require.NoError(t, err)
	require.Len(t, search.Products, 1)
	assert.Equal(t, "Toner", search.Products[0].Name)

	_, err = svc.ListProducts(ctx, ListProductsInput{Pagination: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateProduct(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Olje", Price: decimal.NewFromInt(199), Category: "kropp"})
	require.NoError(t, err)

	price := decimal.RequireFromString("179.00")
	inStock := false
	updated, err := svc.UpdateProduct(ctx, dto.ID, UpdateProductInput{Price: &price, InStock: &inStock})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.False(t, updated.InStock)

	_, err = svc.UpdateProduct(ctx, uuid.New(), UpdateProductInput{Price: &price})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteProductCleansImagesBestEffort(t *testing.T) {
	remover := &recordingRemover{err: errors.New("gcs down")}
	svc, repo := newTestService(t, remover)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "Såpe",
		Price:    decimal.NewFromInt(89),
		Category: "kropp",
		Images:   []string{"https://storage.googleapis.com/product-images/products/a.png"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, dto.ID))
	assert.Equal(t, []string{"https://storage.googleapis.com/product-images/products/a.png"}, remover.urls)

	_, err = repo.FindByID(ctx, dto.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = svc.DeleteProduct(ctx, dto.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"  Hello World ":          "hello-world",
		"Blåbær & Ørkensand":      "blabaer-orkensand",
		"--already-slug--":        "already-slug",
		"Vitamin C 15% serum!!":   "vitamin-c-15-serum",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
