package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/enums"
)

// Shipment is the per (order, seller) shipping record created when the buyer
// requested shipping for that seller's line items.
type Shipment struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	SellerID      uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	Charge        decimal.Decimal      `gorm:"column:charge;type:numeric(18,4);not null;default:0"`
	ScheduledFrom *time.Time           `gorm:"column:scheduled_from"`
	ScheduledTo   *time.Time           `gorm:"column:scheduled_to"`
	Status        enums.ShipmentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (s *Shipment) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
