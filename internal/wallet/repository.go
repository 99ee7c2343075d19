package wallet

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/errors"
)

// Repository exposes the stored-balance ledger operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccount(ctx context.Context, accountID uuid.UUID) (*models.WalletAccount, error)
	// DebitBalance conditionally decrements the balance; false means the
	// account exists but holds less than amount.
	DebitBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (bool, error)
	CreditBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	FindByOrderAndType(ctx context.Context, orderID uuid.UUID, txnType enums.WalletTransactionType) (*models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallet repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccount(ctx context.Context, accountID uuid.UUID) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&account).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "wallet account not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading wallet account")
	}
	return &account, nil
}

func (r *repository) DebitBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WalletAccount{}).
		Where("account_id = ? AND balance >= ?", accountID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, errors.Wrap(errors.CodeDependency, res.Error, "debiting balance")
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreditBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.WalletAccount{}).
		Where("account_id = ?", accountID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "crediting balance")
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "wallet account not found")
	}
	return nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "recording wallet transaction")
	}
	return nil
}

func (r *repository) FindByOrderAndType(ctx context.Context, orderID uuid.UUID, txnType enums.WalletTransactionType) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND type = ?", orderID, txnType).
		First(&txn).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "wallet transaction not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading wallet transaction")
	}
	return &txn, nil
}
