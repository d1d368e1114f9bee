package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/db"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	"github.com/peersenco/storefront-backend/pkg/enums"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/outbox"
	"github.com/peersenco/storefront-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const ordersDDL = `
CREATE TABLE orders (
	id TEXT PRIMARY KEY,
	order_number TEXT NOT NULL UNIQUE,
	user_id TEXT,
	email TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	customer_name TEXT NOT NULL,
	customer_email TEXT NOT NULL,
	customer_phone TEXT,
	subtotal NUMERIC NOT NULL,
	shipping_cost NUMERIC NOT NULL,
	total NUMERIC NOT NULL,
	payment_method TEXT NOT NULL,
	payment_status TEXT NOT NULL DEFAULT 'pending',
	payment_intent_id TEXT,
	cart_session_id TEXT,
	shipping_first_name TEXT NOT NULL,
	shipping_last_name TEXT NOT NULL,
	shipping_address_line1 TEXT NOT NULL,
	shipping_postal_code TEXT NOT NULL,
	shipping_city TEXT NOT NULL,
	shipping_country TEXT NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE order_items (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	product_name TEXT NOT NULL,
	unit_price NUMERIC NOT NULL,
	quantity INTEGER NOT NULL,
	total_price NUMERIC NOT NULL,
	created_at DATETIME
);`

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	svc     Service
	repo    Repository
	emitter *recordingEmitter
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range splitStatements(ordersDDL) {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	repo := NewRepository(conn)
	emitter := &recordingEmitter{}
	svc, err := NewService(repo, db.NewFromConn(conn), emitter, nil)
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, emitter: emitter}
}

func splitStatements(ddl string) []string {
	var out []string
	start := 0
	for i, r := range ddl {
		if r == ';' {
			out = append(out, ddl[start:i])
			start = i + 1
		}
	}
	return out
}

func seedOrder(t *testing.T, repo Repository, userID *uuid.UUID, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:          "ORD-" + uuid.NewString()[:8],
		UserID:               userID,
		Email:                "kari@example.no",
		Status:               enums.OrderStatusPending,
		CustomerName:         "Kari Nordmann",
		CustomerEmail:        "kari@example.no",
		Subtotal:             decimal.RequireFromString("250.00"),
		ShippingCost:         decimal.RequireFromString("79.00"),
		Total:                decimal.RequireFromString("329.00"),
		PaymentMethod:        enums.PaymentMethodCard,
		PaymentStatus:        enums.PaymentStatusPending,
		ShippingFirstName:    "Kari",
		ShippingLastName:     "Nordmann",
		ShippingAddressLine1: "Karl Johans gate 1",
		ShippingPostalCode:   "0150",
		ShippingCity:         "Oslo",
		ShippingCountry:      "Norge",
		CreatedAt:            createdAt,
		Items: []models.OrderItem{{
			ProductID:   uuid.New(),
			ProductName: "Serum",
			UnitPrice:   decimal.RequireFromString("125.00"),
			Quantity:    2,
			TotalPrice:  decimal.RequireFromString("250.00"),
		}},
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestListMineAndGetMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	older := seedOrder(t, f.repo, &user, base)
	newer := seedOrder(t, f.repo, &user, base.Add(time.Hour))
	seedOrder(t, f.repo, nil, base.Add(2*time.Hour))

	list, err := f.svc.ListMine(ctx, user, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, newer.ID, list.Orders[0].ID)
	require.NotEmpty(t, list.NextCursor)

	rest, err := f.svc.ListMine(ctx, user, pagination.Params{Limit: 1, Cursor: list.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Equal(t, older.ID, rest.Orders[0].ID)

	got, err := f.svc.GetMine(ctx, user, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "329.00", got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "125.00", got.Items[0].UnitPrice)

	_, err = f.svc.GetMine(ctx, uuid.New(), older.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAdminUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f.repo, nil, time.Now().UTC())

	dto, err := f.svc.AdminUpdateStatus(ctx, order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, dto.Status)

	_, err = f.svc.AdminUpdateStatus(ctx, order.ID, enums.OrderStatus("lost"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AdminUpdateStatus(ctx, uuid.New(), enums.OrderStatusShipped)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	shipped := enums.OrderStatusShipped
	list, err := f.svc.AdminList(ctx, pagination.Params{}, AdminFilters{Status: &shipped})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)
}

func TestRecordPaymentSucceeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f.repo, nil, time.Now().UTC())

	res, err := f.svc.RecordPayment(ctx, PaymentOutcome{
		OrderID:   &order.ID,
		IntentID:  "pi_123",
		Succeeded: true,
		Amount:    decimal.RequireFromString("329.00"),
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, enums.PaymentStatusPaid, res.Order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusProcessing, res.Order.Status)
	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.EventOrderPaid, f.emitter.events[0].EventType)

	stored, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	require.NotNil(t, stored.PaymentIntentID)
	assert.Equal(t, "pi_123", *stored.PaymentIntentID)

	// paid is terminal; a late failure is ignored
	again, err := f.svc.RecordPayment(ctx, PaymentOutcome{IntentID: "pi_123", Succeeded: false})
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Len(t, f.emitter.events, 1)
}

func TestRecordPaymentFailedThenRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f.repo, nil, time.Now().UTC())

	res, err := f.svc.RecordPayment(ctx, PaymentOutcome{OrderID: &order.ID, IntentID: "pi_9", FailureMessage: "card_declined"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, enums.PaymentStatusFailed, res.Order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, res.Order.Status)

	dup, err := f.svc.RecordPayment(ctx, PaymentOutcome{OrderID: &order.ID, IntentID: "pi_9"})
	require.NoError(t, err)
	assert.False(t, dup.Changed)

	paid, err := f.svc.RecordPayment(ctx, PaymentOutcome{OrderID: &order.ID, IntentID: "pi_9", Succeeded: true})
	require.NoError(t, err)
	assert.True(t, paid.Changed)
	require.Len(t, f.emitter.events, 2)
	assert.Equal(t, enums.EventOrderPaymentFailed, f.emitter.events[0].EventType)
	assert.Equal(t, enums.EventOrderPaid, f.emitter.events[1].EventType)

	_, err = f.svc.RecordPayment(ctx, PaymentOutcome{IntentID: "pi_unknown", Succeeded: true})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListStalePendingSkipsPaidAndRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := seedOrder(t, f.repo, nil, now.Add(-72*time.Hour))
	failed := seedOrder(t, f.repo, nil, now.Add(-60*time.Hour))
	require.NoError(t, f.repo.UpdateFields(ctx, failed.ID, map[string]any{"payment_status": enums.PaymentStatusFailed}))
	paid := seedOrder(t, f.repo, nil, now.Add(-72*time.Hour))
	require.NoError(t, f.repo.UpdateFields(ctx, paid.ID, map[string]any{"payment_status": enums.PaymentStatusPaid}))
	seedOrder(t, f.repo, nil, now.Add(-time.Hour))

	rows, err := f.repo.ListStalePending(ctx, now.Add(-48*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, stale.ID, rows[0].ID)
	assert.Equal(t, failed.ID, rows[1].ID)
}
