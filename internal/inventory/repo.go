package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/errors"
)

// Repository reads catalog entries for checkout and the group-buy sweep.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindListingsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error)
	FindServicesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ServiceOffering, error)
	// FindOpenGroupBuyListings returns active group-buy listings whose sale
	// window has not yet closed at now.
	FindOpenGroupBuyListings(ctx context.Context, now time.Time) ([]models.Listing, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository backed by the provided DB.
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

func (r *repository) FindListingsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var listings []models.Listing
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&listings).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading listings")
	}
	return listings, nil
}

func (r *repository) FindServicesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ServiceOffering, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var services []models.ServiceOffering
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&services).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading service offerings")
	}
	return services, nil
}

func (r *repository) FindOpenGroupBuyListings(ctx context.Context, now time.Time) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.WithContext(ctx).
		Where("group_buy = ? AND active = ?", true, true).
		Where("sale_ends_at IS NULL OR sale_ends_at > ?", now).
		Find(&listings).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading group-buy listings")
	}
	return listings, nil
}
