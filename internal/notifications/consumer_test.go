package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox/idempotency"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox/payloads"
)

type memoryCreator struct {
	rows []models.Notification
	err  error
}

func (m *memoryCreator) Create(_ context.Context, notification *models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, *notification)
	return nil
}

type memoryStore struct {
	keys map[string]bool
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(consumer, id string) string {
	return "tp:idempotency:" + consumer + ":" + id
}

func newTestConsumer(t *testing.T, repo creator) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(&memoryStore{}, time.Hour)
	require.NoError(t, err)
	return &Consumer{
		repo:        repo,
		idempotency: manager,
		logg:        logger.New(logger.Options{ServiceName: "notifications-test"}),
	}
}

func makeMessage(t *testing.T, eventType enums.OutboxEventType, payload any) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestProcessOrderCreatedNotifiesBuyerAndSellers(t *testing.T) {
	t.Parallel()

	repo := &memoryCreator{}
	consumer := newTestConsumer(t, repo)
	buyerID := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()

	msg := makeMessage(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{
		OrderID:   uuid.New(),
		BuyerID:   buyerID,
		SellerIDs: []uuid.UUID{sellerA, sellerB},
	})

	assert.True(t, consumer.process(context.Background(), msg))
	require.Len(t, repo.rows, 3)
	assert.Equal(t, buyerID, repo.rows[0].AccountID)
	assert.Equal(t, enums.NotificationKindOrderPlaced, repo.rows[0].Kind)
	assert.Equal(t, enums.NotificationKindOrderReceived, repo.rows[1].Kind)
	assert.Equal(t, enums.NotificationKindOrderReceived, repo.rows[2].Kind)
}

func TestProcessIsIdempotentPerEvent(t *testing.T) {
	t.Parallel()

	repo := &memoryCreator{}
	consumer := newTestConsumer(t, repo)
	msg := makeMessage(t, enums.EventOrderLineItemUpdated, payloads.LineItemUpdatedEvent{
		OrderID:    uuid.New(),
		LineItemID: uuid.New(),
		BuyerID:    uuid.New(),
		SellerID:   uuid.New(),
		Status:     enums.LineItemStatusConfirmed,
	})

	assert.True(t, consumer.process(context.Background(), msg))
	assert.True(t, consumer.process(context.Background(), msg), "redelivery must still ack")
	assert.Len(t, repo.rows, 1, "redelivery must not duplicate the notification")
}

func TestProcessAcksUnhandledAndMalformed(t *testing.T) {
	t.Parallel()

	repo := &memoryCreator{}
	consumer := newTestConsumer(t, repo)
	ctx := context.Background()

	unhandled := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       []byte("{}"),
		Attributes: map[string]string{"event_type": "something.else"},
	}
	assert.True(t, consumer.process(ctx, unhandled))

	malformed := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       []byte("not json"),
		Attributes: map[string]string{"event_type": string(enums.EventOrderCreated)},
	}
	assert.True(t, consumer.process(ctx, malformed), "a malformed message can never succeed; drop it")

	assert.Empty(t, repo.rows)
}

func TestProcessNacksOnRepositoryFailure(t *testing.T) {
	t.Parallel()

	repo := &memoryCreator{err: errors.New("db down")}
	consumer := newTestConsumer(t, repo)
	msg := makeMessage(t, enums.EventGroupBuyConfirmed, payloads.GroupBuyConfirmedEvent{
		ListingID:      uuid.New(),
		SellerID:       uuid.New(),
		ConfirmedLines: 3,
		OccurredAt:     time.Now().UTC(),
	})
	ctx := context.Background()

	assert.False(t, consumer.process(ctx, msg), "storage failure must nack for redelivery")

	// the idempotency mark was rolled back, so the retry processes
	repo.err = nil
	assert.True(t, consumer.process(ctx, msg))
	require.Len(t, repo.rows, 1)
	assert.Equal(t, enums.NotificationKindGroupBuyLocked, repo.rows[0].Kind)
}

func TestProcessRefundNotifiesBuyer(t *testing.T) {
	t.Parallel()

	repo := &memoryCreator{}
	consumer := newTestConsumer(t, repo)
	buyerID := uuid.New()
	msg := makeMessage(t, enums.EventOrderLineItemRefunded, payloads.LineItemRefundedEvent{
		OrderID:    uuid.New(),
		LineItemID: uuid.New(),
		BuyerID:    buyerID,
	})

	assert.True(t, consumer.process(context.Background(), msg))
	require.Len(t, repo.rows, 1)
	assert.Equal(t, buyerID, repo.rows[0].AccountID)
	assert.Equal(t, enums.NotificationKindRefundIssued, repo.rows[0].Kind)
}
