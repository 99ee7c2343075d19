package accounts

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/errors"
)

// Repository loads account rows for role and ownership resolution.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an accounts repository backed by the provided DB.
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

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "account not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading account")
	}
	return &account, nil
}

// ResolveOwning maps a team-member account to the account that owns it. An
// account without a parent owns itself.
func ResolveOwning(ctx context.Context, repo Repository, accountID uuid.UUID) (*models.Account, error) {
	account, err := repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.ParentAccountID == nil {
		return account, nil
	}
	owner, err := repo.FindByID(ctx, *account.ParentAccountID)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return nil, errors.New(errors.CodeConflict, "owning account missing")
		}
		return nil, err
	}
	return owner, nil
}
