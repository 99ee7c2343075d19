package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/internal/wallet"
	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/errors"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox/payloads"
)

// TxRunner opens a transaction scope. Satisfied by pkg/db.Client.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// transitions is the line item status machine. Cancellation is reachable from
// every non-terminal state; the happy path only moves forward.
var transitions = map[enums.LineItemStatus][]enums.LineItemStatus{
	enums.LineItemStatusPlaced:    {enums.LineItemStatusConfirmed, enums.LineItemStatusCancelled},
	enums.LineItemStatusConfirmed: {enums.LineItemStatusShipped, enums.LineItemStatusCancelled},
	enums.LineItemStatusShipped:   {enums.LineItemStatusDelivered, enums.LineItemStatusCancelled},
}

// CanTransition reports whether from may move to next.
func CanTransition(from, next enums.LineItemStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionResult reports what a status transition did.
type TransitionResult struct {
	Item         *models.OrderLineItem
	RefundIssued bool
	RefundTxnID  *uuid.UUID
}

// Service drives post-creation order state: line item transitions, shipment
// mirroring, and cancellation refunds.
type Service struct {
	runner TxRunner
	repo   Repository
	wallet *wallet.Service
	outbox *outbox.Service
	logg   *logger.Logger
}

// NewService builds the orders service.
func NewService(runner TxRunner, repo Repository, walletSvc *wallet.Service, outboxSvc *outbox.Service, logg *logger.Logger) (*Service, error) {
	if runner == nil {
		return nil, errors.New(errors.CodeInternal, "tx runner is required")
	}
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "orders repository is required")
	}
	if walletSvc == nil {
		return nil, errors.New(errors.CodeInternal, "wallet service is required")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "logger is required")
	}
	return &Service{
		runner: runner,
		repo:   repo,
		wallet: walletSvc,
		outbox: outboxSvc,
		logg:   logg,
	}, nil
}

// GetOrder loads the full order aggregate.
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindOrderByID(ctx, orderID)
}

// TransitionLineItem moves one line item to next. Transition to shipped also
// moves the linked shipment; transition to cancelled refunds wallet-paid
// orders exactly once. Event emission is best effort and never fails the
// transition.
func (s *Service) TransitionLineItem(ctx context.Context, lineItemID uuid.UUID, next enums.LineItemStatus, cancelReason *string) (*TransitionResult, error) {
	if !next.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown line item status")
	}

	result := &TransitionResult{}
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindLineItemByID(ctx, lineItemID)
		if err != nil {
			return err
		}
		if !CanTransition(item.Status, next) {
			return errors.New(errors.CodeStateConflict, "illegal status transition").
				WithDetails(map[string]string{"from": string(item.Status), "to": string(next)})
		}

		var reason *string
		if next == enums.LineItemStatusCancelled {
			reason = cancelReason
		}
		if err := repo.UpdateLineItemStatus(ctx, item.ID, next, reason); err != nil {
			return err
		}
		item.Status = next
		if reason != nil {
			item.CancelReason = reason
		}

		if next == enums.LineItemStatusShipped && item.ShipmentID != nil {
			if err := repo.UpdateShipmentStatus(ctx, *item.ShipmentID, enums.ShipmentStatusShipped); err != nil {
				return err
			}
		}

		order, err := repo.FindOrderByID(ctx, item.OrderID)
		if err != nil {
			return err
		}

		if next == enums.LineItemStatusCancelled && order.PaymentMethod == enums.PaymentMethodWallet {
			txn, issued, err := s.wallet.Refund(ctx, tx, order.BuyerID, order.ID, item.BuyerPay)
			if err != nil {
				return err
			}
			result.RefundIssued = issued
			if txn != nil {
				result.RefundTxnID = &txn.ID
			}
			if issued {
				s.emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventOrderLineItemRefunded,
					AggregateType: enums.AggregateOrder,
					AggregateID:   order.ID,
					Data: payloads.LineItemRefundedEvent{
						OrderID:       order.ID,
						LineItemID:    item.ID,
						BuyerID:       order.BuyerID,
						Amount:        txn.Amount,
						TransactionID: txn.ID,
					},
					Version: 1,
				})
			}
		}

		s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderLineItemUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.LineItemUpdatedEvent{
				OrderID:    order.ID,
				LineItemID: item.ID,
				BuyerID:    order.BuyerID,
				SellerID:   item.SellerID,
				Status:     next,
			},
			Version: 1,
		})

		result.Item = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// emit queues a domain event; failures are logged and swallowed so a dropped
// notification never fails the transition.
func (s *Service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "event_type", event.EventType), "emitting domain event failed")
	}
}
