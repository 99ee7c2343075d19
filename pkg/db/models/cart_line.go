package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/enums"
)

// CartLine is a buyer's pending selection. Created by the shopping-cart
// collaborator; consumed and deleted by the order orchestrator.
type CartLine struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID   uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	Kind      enums.LineKind    `gorm:"column:kind;type:text;not null"`
	ListingID *uuid.UUID        `gorm:"column:listing_id;type:uuid"`
	ServiceID *uuid.UUID        `gorm:"column:service_id;type:uuid"`
	Quantity  int               `gorm:"column:quantity;not null"`
	Features  []CartLineFeature `gorm:"foreignKey:CartLineID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *CartLine) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CartLineFeature is a feature selection on a service-type cart line.
type CartLineFeature struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	CartLineID uuid.UUID                `gorm:"column:cart_line_id;type:uuid;not null;index"`
	Name       string                   `gorm:"column:name;not null"`
	Mode       enums.FeaturePricingMode `gorm:"column:mode;type:text;not null"`
	Rate       decimal.Decimal          `gorm:"column:rate;type:numeric(18,4);not null"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (f *CartLineFeature) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
