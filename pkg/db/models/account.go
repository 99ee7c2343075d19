package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/types"
)

// Account is the identity surface this core consumes: trade role for discount
// eligibility, registered address for fee matching, and the parent link used
// to resolve a team member to the owning account.
type Account struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email           string          `gorm:"column:email;not null;uniqueIndex:ux_accounts_email"`
	TradeRole       enums.TradeRole `gorm:"column:trade_role;type:text;not null;default:'buyer'"`
	ParentAccountID *uuid.UUID      `gorm:"column:parent_account_id;type:uuid"`
	Address         types.Address   `gorm:"column:address;type:jsonb;serializer:json"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
