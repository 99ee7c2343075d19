package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/types"
)

// OrderAddress snapshots the billing or shipping address at checkout time.
type OrderAddress struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	Kind      enums.OrderAddressKind `gorm:"column:kind;type:text;not null"`
	Address   types.Address          `gorm:"column:address;type:jsonb;serializer:json"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (a *OrderAddress) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
