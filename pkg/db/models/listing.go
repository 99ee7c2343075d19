package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/enums"
)

// Listing is a seller's price/stock entry for a catalog product. Discount
// configuration is carried per audience; the fee category selects the fee
// schedule applied at checkout.
type Listing struct {
	ID                     uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID               uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductID              uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	Title                  string              `gorm:"column:title;not null"`
	UnitPrice              decimal.Decimal     `gorm:"column:unit_price;type:numeric(18,4);not null"`
	PromoPrice             *decimal.Decimal    `gorm:"column:promo_price;type:numeric(18,4)"`
	Stock                  int                 `gorm:"column:stock;not null;default:0"`
	Audience               enums.Audience      `gorm:"column:audience;type:text;not null;default:'everyone'"`
	VendorDiscountType     *enums.DiscountType `gorm:"column:vendor_discount_type;type:text"`
	VendorDiscountAmount   decimal.Decimal     `gorm:"column:vendor_discount_amount;type:numeric(18,4);not null;default:0"`
	ConsumerDiscountType   *enums.DiscountType `gorm:"column:consumer_discount_type;type:text"`
	ConsumerDiscountAmount decimal.Decimal     `gorm:"column:consumer_discount_amount;type:numeric(18,4);not null;default:0"`
	FeeCategory            string              `gorm:"column:fee_category;not null"`
	GroupBuy               bool                `gorm:"column:group_buy;not null;default:false"`
	SaleEndsAt             *time.Time          `gorm:"column:sale_ends_at"`
	Active                 bool                `gorm:"column:active;not null;default:true"`
	CreatedAt              time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (l *Listing) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
