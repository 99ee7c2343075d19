package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SellerOrder is the per-seller rollup of an order's surviving line items.
type SellerOrder struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	SellerID    uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index"`
	OrderNumber string          `gorm:"column:order_number;not null;uniqueIndex:ux_seller_orders_order_number"`
	GrossAmount decimal.Decimal `gorm:"column:gross_amount;type:numeric(18,4);not null"`
	NetAmount   decimal.Decimal `gorm:"column:net_amount;type:numeric(18,4);not null"`
	Items       []OrderLineItem `gorm:"foreignKey:SellerOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (s *SellerOrder) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
