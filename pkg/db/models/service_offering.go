package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceOffering is a seller's service-type catalog entry. HoursPerCustomer
// feeds hourly feature pricing; AutoConfirm skips the placed state for new
// line items.
type ServiceOffering struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SellerID         uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index"`
	Title            string          `gorm:"column:title;not null"`
	HoursPerCustomer decimal.Decimal `gorm:"column:hours_per_customer;type:numeric(10,2);not null;default:1"`
	AutoConfirm      bool            `gorm:"column:auto_confirm;not null;default:false"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (s *ServiceOffering) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
