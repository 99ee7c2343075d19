package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/enums"
)

// WalletAccount is a buyer's pre-funded stored balance.
type WalletAccount struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	AccountID uuid.UUID       `gorm:"column:account_id;type:uuid;not null;uniqueIndex:ux_wallet_accounts_account"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(18,4);not null;default:0"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (w *WalletAccount) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// WalletTransaction records a debit, credit, or refund against a stored
// balance. The unique (order_id, type) index backs the one-refund-per-order
// idempotency guard.
type WalletTransaction struct {
	ID           uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	AccountID    uuid.UUID                   `gorm:"column:account_id;type:uuid;not null;index"`
	SubAccountID *uuid.UUID                  `gorm:"column:sub_account_id;type:uuid"`
	OrderID      *uuid.UUID                  `gorm:"column:order_id;type:uuid;uniqueIndex:ux_wallet_transactions_order_type"`
	Type         enums.WalletTransactionType `gorm:"column:type;type:text;not null;uniqueIndex:ux_wallet_transactions_order_type"`
	Amount       decimal.Decimal             `gorm:"column:amount;type:numeric(18,4);not null"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (w *WalletTransaction) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
