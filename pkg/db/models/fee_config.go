package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/enums"
)

// FeeConfig is a fee-category configuration owned by pricing administration.
// Uniform configs carry a single side=both schedule; location-scoped configs
// carry seller-side and buyer-side schedules matched by country/state/city.
type FeeConfig struct {
	ID             uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	Category       string        `gorm:"column:category;not null;uniqueIndex:ux_fee_configs_category"`
	LocationScoped bool          `gorm:"column:location_scoped;not null;default:false"`
	Schedules      []FeeSchedule `gorm:"foreignKey:FeeConfigID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (f *FeeConfig) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// FeeSchedule is one fee schedule row under a FeeConfig. Buyer fields are
// meaningful on side=buyer|both rows, seller fields on side=seller|both rows.
type FeeSchedule struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	FeeConfigID      uuid.UUID       `gorm:"column:fee_config_id;type:uuid;not null;index"`
	Side             enums.FeeSide   `gorm:"column:side;type:text;not null;default:'both'"`
	Country          string          `gorm:"column:country;not null;default:''"`
	State            string          `gorm:"column:state;not null;default:''"`
	City             string          `gorm:"column:city;not null;default:''"`
	BuyerFeePercent  decimal.Decimal `gorm:"column:buyer_fee_percent;type:numeric(8,4);not null;default:0"`
	BuyerFeeCap      decimal.Decimal `gorm:"column:buyer_fee_cap;type:numeric(18,4);not null;default:0"`
	SellerFeePercent decimal.Decimal `gorm:"column:seller_fee_percent;type:numeric(8,4);not null;default:0"`
	SellerFeeCap     decimal.Decimal `gorm:"column:seller_fee_cap;type:numeric(18,4);not null;default:0"`
	VATPercent       decimal.Decimal `gorm:"column:vat_percent;type:numeric(8,4);not null;default:0"`
	GatewayPercent   decimal.Decimal `gorm:"column:gateway_percent;type:numeric(8,4);not null;default:0"`
	FixedFee         decimal.Decimal `gorm:"column:fixed_fee;type:numeric(18,4);not null;default:0"`
	Active           bool            `gorm:"column:active;not null;default:true"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (f *FeeSchedule) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
