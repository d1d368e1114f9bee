package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/peersenco/storefront-backend/internal/orders"
	"github.com/peersenco/storefront-backend/pkg/enums"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/outbox"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	defaultPendingOrderTTL = 48 * time.Hour
	orderExpiryBatchSize   = 100
)

type OrderExpiryJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Orders orders.Repository
	Outbox outbox.Emitter
	TTL    time.Duration
}

// orderExpiryJob cancels orders still waiting for payment after the TTL.
// Each order is re-read under lock so a webhook that lands mid-run wins.
type orderExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	orders orders.Repository
	outbox outbox.Emitter
	ttl    time.Duration
	now    func() time.Time
}

func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	stale, err := j.orders.ListStalePending(ctx, now.Add(-j.ttl), orderExpiryBatchSize)
	if err != nil {
		return fmt.Errorf("list stale orders: %w", err)
	}

	var errs error
	expired := 0
	for _, candidate := range stale {
		ok, err := j.expire(ctx, candidate.ID.String(), func(tx *gorm.DB) (bool, error) {
			repo := j.orders.WithTx(tx)
			order, err := repo.FindByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return false, err
			}
			if order.Status != enums.OrderStatusPending || order.PaymentStatus == enums.PaymentStatusPaid {
				return false, nil
			}
			if err := repo.UpdateFields(ctx, order.ID, map[string]any{"status": enums.OrderStatusCancelled}); err != nil {
				return false, err
			}
			return true, j.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderExpired,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				OccurredAt:    now,
				Data: outbox.OrderExpiredData{
					OrderID:       order.ID,
					OrderNumber:   order.OrderNumber,
					PaymentStatus: order.PaymentStatus,
					CreatedAt:     order.CreatedAt,
					ExpiredAt:     now,
				},
			})
		})
		errs = multierr.Append(errs, err)
		if ok {
			expired++
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"expired":    expired,
	}), "cron.orders_expired")
	return errs
}

func (j *orderExpiryJob) expire(ctx context.Context, orderID string, fn func(tx *gorm.DB) (bool, error)) (bool, error) {
	var changed bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		changed, err = fn(tx)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("expire order %s: %w", orderID, err)
	}
	return changed, nil
}
