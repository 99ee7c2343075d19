package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/db"
	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/errors"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
)

// Service is the stored-balance payment coordinator. Debits run synchronously
// inside the caller's checkout transaction; refunds are idempotent per order.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the wallet service.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "wallet repository is required")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "logger is required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Debit charges amount against the buyer's stored balance and records a
// debit transaction tied to the order. Insufficient funds and missing
// accounts both surface as payment failures for the caller to abort on.
func (s *Service) Debit(ctx context.Context, tx *gorm.DB, accountID, orderID uuid.UUID, subAccountID *uuid.UUID, amount decimal.Decimal) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, errors.New(errors.CodeInternal, "transaction required")
	}
	if !amount.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "debit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	ok, err := repo.DebitBalance(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, ferr := repo.FindAccount(ctx, accountID); ferr != nil {
			if errors.IsCode(ferr, errors.CodeNotFound) {
				return nil, errors.New(errors.CodePaymentFailed, "no stored balance account")
			}
			return nil, ferr
		}
		return nil, errors.New(errors.CodePaymentFailed, "insufficient stored balance")
	}

	txn := &models.WalletTransaction{
		AccountID:    accountID,
		SubAccountID: subAccountID,
		OrderID:      &orderID,
		Type:         enums.WalletTransactionTypeDebit,
		Amount:       amount,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(logCtx, "stored balance debited")
	return txn, nil
}

// Credit returns amount to the account's stored balance.
func (s *Service) Credit(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, orderID *uuid.UUID, amount decimal.Decimal) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, errors.New(errors.CodeInternal, "transaction required")
	}
	if !amount.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "credit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	if err := repo.CreditBalance(ctx, accountID, amount); err != nil {
		return nil, err
	}
	txn := &models.WalletTransaction{
		AccountID: accountID,
		OrderID:   orderID,
		Type:      enums.WalletTransactionTypeCredit,
		Amount:    amount,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Refund issues at most one refund per order. The unique (order_id, type)
// index backs the guard under concurrent cancellations: a duplicate insert
// loses the race and the winner's transaction is returned instead. The bool
// reports whether this call issued the refund.
func (s *Service) Refund(ctx context.Context, tx *gorm.DB, accountID, orderID uuid.UUID, amount decimal.Decimal) (*models.WalletTransaction, bool, error) {
	if tx == nil {
		return nil, false, errors.New(errors.CodeInternal, "transaction required")
	}
	if !amount.IsPositive() {
		return nil, false, errors.New(errors.CodeValidation, "refund amount must be positive")
	}

	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByOrderAndType(ctx, orderID, enums.WalletTransactionTypeRefund)
	if err != nil && !errors.IsCode(err, errors.CodeNotFound) {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	txn := &models.WalletTransaction{
		AccountID: accountID,
		OrderID:   &orderID,
		Type:      enums.WalletTransactionTypeRefund,
		Amount:    amount,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		if db.IsUniqueViolation(err, "") {
			winner, ferr := repo.FindByOrderAndType(ctx, orderID, enums.WalletTransactionTypeRefund)
			if ferr != nil {
				return nil, false, ferr
			}
			return winner, false, nil
		}
		return nil, false, err
	}

	if err := repo.CreditBalance(ctx, accountID, amount); err != nil {
		return nil, false, err
	}

	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(logCtx, "refund issued")
	return txn, true, nil
}
