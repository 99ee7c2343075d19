package pricing

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/errors"
)

// Repository loads fee configurations for the engine.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindConfigByCategory(ctx context.Context, category string) (*models.FeeConfig, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pricing repository backed by the provided DB.
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

func (r *repository) FindConfigByCategory(ctx context.Context, category string) (*models.FeeConfig, error) {
	var cfg models.FeeConfig
	err := r.db.WithContext(ctx).
		Preload("Schedules").
		Where("category = ?", category).
		First(&cfg).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "fee config not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading fee config")
	}
	return &cfg, nil
}
