package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/enums"
)

// Order is the buyer-facing aggregate produced by checkout. It references at
// most one of a wallet transaction or a gateway transaction, never both.
type Order struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber          string              `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	BuyerID              uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	TotalListedPrice     decimal.Decimal     `gorm:"column:total_listed_price;type:numeric(18,4);not null"`
	TotalDiscount        decimal.Decimal     `gorm:"column:total_discount;type:numeric(18,4);not null;default:0"`
	TotalBuyerPay        decimal.Decimal     `gorm:"column:total_buyer_pay;type:numeric(18,4);not null"`
	TotalPlatformMargin  decimal.Decimal     `gorm:"column:total_platform_margin;type:numeric(18,4);not null;default:0"`
	TotalCashback        decimal.Decimal     `gorm:"column:total_cashback;type:numeric(18,4);not null;default:0"`
	PaymentMethod        enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	WalletTransactionID  *uuid.UUID          `gorm:"column:wallet_transaction_id;type:uuid"`
	GatewayTransactionID *uuid.UUID          `gorm:"column:gateway_transaction_id;type:uuid"`
	SellerOrders         []SellerOrder       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Items                []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipments            []Shipment          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Addresses            []OrderAddress      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
