package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/enums"
)

// OrderLineItem is the unit of fulfillment. UnitPrice is the listed price,
// PurchasePrice the discount-adjusted unit price, BuyerPay the amount charged
// to the buyer for the whole line. FeeBreakdown is the serialized fee result.
type OrderLineItem struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	SellerOrderID uuid.UUID            `gorm:"column:seller_order_id;type:uuid;not null;index"`
	ShipmentID    *uuid.UUID           `gorm:"column:shipment_id;type:uuid"`
	SellerID      uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	Kind          enums.LineKind       `gorm:"column:kind;type:text;not null"`
	ListingID     *uuid.UUID           `gorm:"column:listing_id;type:uuid;index"`
	ServiceID     *uuid.UUID           `gorm:"column:service_id;type:uuid"`
	Title         string               `gorm:"column:title;not null"`
	Quantity      int                  `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal      `gorm:"column:unit_price;type:numeric(18,4);not null"`
	PurchasePrice decimal.Decimal      `gorm:"column:purchase_price;type:numeric(18,4);not null"`
	BuyerPay      decimal.Decimal      `gorm:"column:buyer_pay;type:numeric(18,4);not null"`
	FeeBreakdown  json.RawMessage      `gorm:"column:fee_breakdown;type:jsonb"`
	Status        enums.LineItemStatus `gorm:"column:status;type:text;not null;default:'placed'"`
	CancelReason  *string              `gorm:"column:cancel_reason"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (i *OrderLineItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
