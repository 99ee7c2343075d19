package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepost-io/tradepost-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per successful checkout.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID   `json:"orderId"`
	BuyerID        uuid.UUID   `json:"buyerId"`
	SellerIDs      []uuid.UUID `json:"sellerIds"`
	SellerOrderIDs []uuid.UUID `json:"sellerOrderIds"`
}

// LineItemUpdatedEvent is emitted on every status transition.
type LineItemUpdatedEvent struct {
	OrderID    uuid.UUID            `json:"orderId"`
	LineItemID uuid.UUID            `json:"lineItemId"`
	BuyerID    uuid.UUID            `json:"buyerId"`
	SellerID   uuid.UUID            `json:"sellerId"`
	Status     enums.LineItemStatus `json:"status"`
}

// LineItemRefundedEvent is emitted when a cancellation triggers a wallet refund.
type LineItemRefundedEvent struct {
	OrderID       uuid.UUID       `json:"orderId"`
	LineItemID    uuid.UUID       `json:"lineItemId"`
	BuyerID       uuid.UUID       `json:"buyerId"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID uuid.UUID       `json:"transactionId"`
}

// GroupBuyConfirmedEvent is emitted when a sweep locks in a group-buy listing.
type GroupBuyConfirmedEvent struct {
	ListingID      uuid.UUID `json:"listingId"`
	SellerID       uuid.UUID `json:"sellerId"`
	ConfirmedLines int       `json:"confirmedLines"`
	OccurredAt     time.Time `json:"occurredAt"`
}
