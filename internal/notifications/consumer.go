package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox/idempotency"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer turns published order events into stored notifications. It runs
// independently of order creation; a consumer outage delays notifications but
// never blocks checkout or status transitions.
type Consumer struct {
	repo         creator
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the order notification consumer.
func NewConsumer(repo creator, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked. Malformed messages are
// acked; they will never become processable. Handler and infrastructure
// failures nack for redelivery.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	handler := c.handlerFor(eventType)
	if handler == nil {
		c.logg.Info(logCtx, "skipping unhandled event type")
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return true
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	if err := handler(ctx, envelope.Data); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return false
	}
	return true
}

func (c *Consumer) handlerFor(eventType enums.OutboxEventType) func(context.Context, json.RawMessage) error {
	switch eventType {
	case enums.EventOrderCreated:
		return c.handleOrderCreated
	case enums.EventOrderLineItemUpdated:
		return c.handleLineItemUpdated
	case enums.EventOrderLineItemRefunded:
		return c.handleLineItemRefunded
	case enums.EventGroupBuyConfirmed:
		return c.handleGroupBuyConfirmed
	default:
		return nil
	}
}

// handleOrderCreated notifies the buyer once and every distinct seller once.
func (c *Consumer) handleOrderCreated(ctx context.Context, data json.RawMessage) error {
	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parsing order created payload: %w", err)
	}
	if payload.BuyerID == uuid.Nil {
		return fmt.Errorf("buyer id missing")
	}

	if err := c.create(ctx, payload.BuyerID, enums.NotificationKindOrderPlaced, data); err != nil {
		return err
	}
	for _, sellerID := range payload.SellerIDs {
		if sellerID == uuid.Nil {
			continue
		}
		if err := c.create(ctx, sellerID, enums.NotificationKindOrderReceived, data); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) handleLineItemUpdated(ctx context.Context, data json.RawMessage) error {
	var payload payloads.LineItemUpdatedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parsing line item updated payload: %w", err)
	}
	if payload.BuyerID == uuid.Nil {
		return fmt.Errorf("buyer id missing")
	}
	return c.create(ctx, payload.BuyerID, enums.NotificationKindLineItemStatus, data)
}

func (c *Consumer) handleLineItemRefunded(ctx context.Context, data json.RawMessage) error {
	var payload payloads.LineItemRefundedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parsing refund payload: %w", err)
	}
	if payload.BuyerID == uuid.Nil {
		return fmt.Errorf("buyer id missing")
	}
	return c.create(ctx, payload.BuyerID, enums.NotificationKindRefundIssued, data)
}

func (c *Consumer) handleGroupBuyConfirmed(ctx context.Context, data json.RawMessage) error {
	var payload payloads.GroupBuyConfirmedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parsing group-buy payload: %w", err)
	}
	if payload.SellerID == uuid.Nil {
		return fmt.Errorf("seller id missing")
	}
	return c.create(ctx, payload.SellerID, enums.NotificationKindGroupBuyLocked, data)
}

func (c *Consumer) create(ctx context.Context, accountID uuid.UUID, kind enums.NotificationKind, payload json.RawMessage) error {
	return c.repo.Create(ctx, &models.Notification{
		AccountID: accountID,
		Kind:      kind,
		Payload:   payload,
	})
}
