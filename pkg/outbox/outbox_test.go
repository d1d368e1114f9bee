package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	"github.com/peersenco/storefront-backend/pkg/enums"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:outbox_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`).Error)
	return conn
}

func TestEmitStoresEnvelope(t *testing.T) {
	conn := newOutboxDB(t)
	svc := NewService(NewRepository(conn), logger.Nop())
	orderID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          OrderCreatedData{OrderID: orderID, OrderNumber: "ORD-1-ABCDEFGHI", Total: decimal.NewFromInt(250)},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)

	env, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.Equal(t, enums.EventOrderCreated, env.EventType)
	assert.Equal(t, orderID, env.AggregateID)
	assert.NotEmpty(t, env.EventID)
	assert.Contains(t, string(env.Data), "ORD-1-ABCDEFGHI")
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := newOutboxDB(t)
	svc := NewService(NewRepository(conn), logger.Nop())

	_ = conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
		}))
		return errors.New("boom")
	})

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRejectsUnknownType(t *testing.T) {
	conn := newOutboxDB(t)
	svc := NewService(NewRepository(conn), logger.Nop())
	err := svc.Emit(context.Background(), conn, DomainEvent{EventType: "order.shipped", AggregateType: enums.AggregateOrder})
	assert.Error(t, err)
	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)

	ids := make([]uuid.UUID, 3)
	for range ids {
		row := models.OutboxEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{}`),
		}
		require.NoError(t, repo.Insert(conn, row))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		ids[i] = r.ID
	}

	require.NoError(t, repo.MarkPublishedTx(conn, ids[0]))
	require.NoError(t, repo.MarkFailedTx(conn, ids[1], errors.New("broker down")))
	require.NoError(t, repo.MarkDeadTx(conn, ids[2], errors.New("bad payload"), 3))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[1], rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "broker down", *rows[0].LastError)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	published := now.Add(-39 * 24 * time.Hour)

	insert := func(createdAt time.Time, publishedAt *time.Time, attempts int) uuid.UUID {
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{}`),
			CreatedAt:     createdAt,
			PublishedAt:   publishedAt,
			AttemptCount:  attempts,
		}
		require.NoError(t, repo.Insert(conn, row))
		return row.ID
	}
	insert(old, &published, 0)
	insert(old, nil, 10)
	pendingID := insert(old, nil, 2)
	recentID := insert(now, &now, 0)

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, now.Add(-30*24*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Order("created_at ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, pendingID, remaining[0].ID)
	assert.Equal(t, recentID, remaining[1].ID)
}

func TestMessageForUsesAggregateKey(t *testing.T) {
	event := models.OutboxEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
	}
	msg := MessageFor(event, PayloadEnvelope{EventID: "evt-1"})
	assert.Equal(t, event.AggregateID.String(), msg.Key)
	assert.Equal(t, "order.paid", msg.Attributes["event_type"])
	assert.Equal(t, "evt-1", msg.Attributes["event_id"])
}
