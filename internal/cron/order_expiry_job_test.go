package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/internal/orders"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	"github.com/peersenco/storefront-backend/pkg/enums"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/outbox"
	"gorm.io/gorm"
)

// fakeOrders keeps orders in memory. Unused Repository methods panic via the
// nil embedded interface.
type fakeOrders struct {
	orders.Repository
	rows    map[uuid.UUID]*models.Order
	cutoff  time.Time
	failIDs map[uuid.UUID]bool
}

func (f *fakeOrders) WithTx(*gorm.DB) orders.Repository { return f }

func (f *fakeOrders) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	f.cutoff = cutoff
	var out []models.Order
	for _, o := range f.rows {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrders) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if f.failIDs[id] {
		return errors.New("write failed")
	}
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		f.rows[id].Status = status
	}
	return nil
}

type capturingEmitter struct {
	events []outbox.DomainEvent
}

func (c *capturingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func newExpiryFixture(t *testing.T, rows ...models.Order) (*orderExpiryJob, *fakeOrders, *capturingEmitter) {
	t.Helper()
	repo := &fakeOrders{rows: map[uuid.UUID]*models.Order{}, failIDs: map[uuid.UUID]bool{}}
	for i := range rows {
		repo.rows[rows[i].ID] = &rows[i]
	}
	emitter := &capturingEmitter{}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: logger.Nop(),
		DB:     passthroughTx{},
		Orders: repo,
		Outbox: emitter,
		TTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewOrderExpiryJob: %v", err)
	}
	return job.(*orderExpiryJob), repo, emitter
}

func TestOrderExpiryCancelsUnpaidOrders(t *testing.T) {
	now := time.Date(2026, 4, 2, 3, 0, 0, 0, time.UTC)
	pending := models.Order{ID: uuid.New(), OrderNumber: "ORD-1", Status: enums.OrderStatusPending, PaymentStatus: enums.PaymentStatusFailed, CreatedAt: now.Add(-30 * time.Hour)}
	job, repo, emitter := newExpiryFixture(t, pending)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-24 * time.Hour); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
	if repo.rows[pending.ID].Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", repo.rows[pending.ID].Status)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventOrderExpired {
		t.Fatalf("expected one order.expired event, got %+v", emitter.events)
	}
	data, ok := emitter.events[0].Data.(outbox.OrderExpiredData)
	if !ok || data.OrderNumber != "ORD-1" || data.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("unexpected payload %+v", emitter.events[0].Data)
	}
}

func TestOrderExpirySkipsOrdersPaidMeanwhile(t *testing.T) {
	paid := models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, PaymentStatus: enums.PaymentStatusPaid}
	job, repo, emitter := newExpiryFixture(t, paid)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.rows[paid.ID].Status != enums.OrderStatusPending {
		t.Fatalf("paid order must stay pending for fulfilment, got %s", repo.rows[paid.ID].Status)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("expected no events, got %d", len(emitter.events))
	}
}

func TestOrderExpiryContinuesPastFailures(t *testing.T) {
	broken := models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, PaymentStatus: enums.PaymentStatusPending}
	healthy := models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, PaymentStatus: enums.PaymentStatusPending}
	job, repo, emitter := newExpiryFixture(t, broken, healthy)
	repo.failIDs[broken.ID] = true

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected the failed order to surface an error")
	}
	if repo.rows[healthy.ID].Status != enums.OrderStatusCancelled {
		t.Fatalf("expected healthy order cancelled")
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
}
