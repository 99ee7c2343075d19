package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepost-io/tradepost-backend/internal/pricing"
	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/types"
)

// ShippingRequest asks for a shipment from one seller.
type ShippingRequest struct {
	SellerID      uuid.UUID
	Charge        decimal.Decimal
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
}

// Input is one order-creation request built from the buyer's cart.
type Input struct {
	CartLineIDs     []uuid.UUID
	PaymentMethod   enums.PaymentMethod
	SubAccountID    *uuid.UUID
	BillingAddress  types.Address
	ShippingAddress types.Address
	Shipping        []ShippingRequest
}

// LineResult is the computed outcome for one cart line, accepted or rejected.
type LineResult struct {
	CartLineID    uuid.UUID             `json:"cartLineId"`
	Kind          enums.LineKind        `json:"kind"`
	ListingID     *uuid.UUID            `json:"listingId,omitempty"`
	ServiceID     *uuid.UUID            `json:"serviceId,omitempty"`
	SellerID      uuid.UUID             `json:"sellerId"`
	Title         string                `json:"title"`
	Quantity      int                   `json:"quantity"`
	UnitPrice     decimal.Decimal       `json:"unitPrice"`
	PurchasePrice decimal.Decimal       `json:"purchasePrice"`
	BuyerPay      decimal.Decimal       `json:"buyerPay"`
	Status        enums.LineItemStatus  `json:"status"`
	Accepted      bool                  `json:"accepted"`
	Reason        string                `json:"reason,omitempty"`
	Fees          *pricing.FeeBreakdown `json:"fees,omitempty"`
}

// Totals aggregates the accepted lines at full precision.
type Totals struct {
	ListedPrice    decimal.Decimal `json:"listedPrice"`
	Discount       decimal.Decimal `json:"discount"`
	BuyerPay       decimal.Decimal `json:"buyerPay"`
	PlatformMargin decimal.Decimal `json:"platformMargin"`
	Cashback       decimal.Decimal `json:"cashback"`
}

// Result is the structured outcome of one order-creation call.
type Result struct {
	Order                *models.Order `json:"order"`
	Lines                []LineResult  `json:"lines"`
	Totals               Totals        `json:"totals"`
	PendingTransactionID *uuid.UUID    `json:"pendingTransactionId,omitempty"`
}
