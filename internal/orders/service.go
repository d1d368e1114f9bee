package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/db"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	"github.com/peersenco/storefront-backend/pkg/enums"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/outbox"
	"github.com/peersenco/storefront-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service defines order reads for customers and admins plus the payment
// transitions driven by the payment provider.
type Service interface {
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	GetMine(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	AdminList(ctx context.Context, params pagination.Params, filters AdminFilters) (*OrderList, error)
	AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
	RecordPayment(ctx context.Context, outcome PaymentOutcome) (*PaymentResult, error)
}

// PaymentOutcome is what the payment provider reported for an intent.
// OrderID comes from intent metadata; when nil the order is found by IntentID.
type PaymentOutcome struct {
	OrderID        *uuid.UUID
	IntentID       string
	Succeeded      bool
	Amount         decimal.Decimal
	FailureMessage string
}

// PaymentResult reports the order after the transition and whether anything
// changed.
type PaymentResult struct {
	Order   models.Order
	Changed bool
}

type service struct {
	repo   Repository
	tx     db.TxRunner
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewService(repo Repository, tx db.TxRunner, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, outbox: emitter, logg: logg}, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return newOrderList(rows, next), nil
}

// GetMine hides other customers' orders behind NOT_FOUND.
func (s *service) GetMine(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

func (s *service) AdminList(ctx context.Context, params pagination.Params, filters AdminFilters) (*OrderList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return newOrderList(rows, next), nil
}

func (s *service) AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	found, err := s.repo.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"order_id": orderID.String(), "status": status}), "order status updated")
	dto := NewOrderDTO(*order)
	return &dto, nil
}

// RecordPayment moves payment_status from pending to paid or failed and emits
// the matching outbox event in the same transaction. A paid order never moves
// again; a failed order may still become paid when the customer retries.
func (s *service) RecordPayment(ctx context.Context, outcome PaymentOutcome) (*PaymentResult, error) {
	if outcome.OrderID == nil && strings.TrimSpace(outcome.IntentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id or payment intent id required")
	}

	var result PaymentResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, outcome)
		if err != nil {
			return err
		}

		target := enums.PaymentStatusFailed
		eventType := enums.EventOrderPaymentFailed
		if outcome.Succeeded {
			target = enums.PaymentStatusPaid
			eventType = enums.EventOrderPaid
		}
		if order.PaymentStatus.IsTerminal() || order.PaymentStatus == target {
			result = PaymentResult{Order: *order}
			return nil
		}

		updates := map[string]any{"payment_status": target}
		order.PaymentStatus = target
		if outcome.Succeeded && order.Status == enums.OrderStatusPending {
			updates["status"] = enums.OrderStatusProcessing
			order.Status = enums.OrderStatusProcessing
		}
		if outcome.IntentID != "" && (order.PaymentIntentID == nil || *order.PaymentIntentID == "") {
			intentID := outcome.IntentID
			updates["payment_intent_id"] = intentID
			order.PaymentIntentID = &intentID
		}
		if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: outbox.OrderPaymentData{
				OrderID:         order.ID,
				OrderNumber:     order.OrderNumber,
				PaymentIntentID: outcome.IntentID,
				Amount:          outcome.Amount,
				FailureMessage:  outcome.FailureMessage,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment event")
		}
		result = PaymentResult{Order: *order, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":       result.Order.ID.String(),
		"payment_status": result.Order.PaymentStatus,
		"changed":        result.Changed,
	})
	s.logg.Info(logCtx, "order payment recorded")
	return &result, nil
}

func (s *service) lockOrder(ctx context.Context, repo Repository, outcome PaymentOutcome) (*models.Order, error) {
	id := uuid.Nil
	if outcome.OrderID != nil {
		id = *outcome.OrderID
	} else {
		found, err := repo.FindByPaymentIntentID(ctx, outcome.IntentID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment intent")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		id = found.ID
	}
	order, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
