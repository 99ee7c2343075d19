package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/errors"
)

// Repository reads and clears buyer cart lines. Cart creation belongs to the
// shopping-cart collaborator; checkout only consumes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLines(ctx context.Context, buyerID uuid.UUID, lineIDs []uuid.UUID) ([]models.CartLine, error)
	DeleteAllForBuyer(ctx context.Context, buyerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository backed by the provided DB.
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

// FindLines batch-fetches the buyer's cart lines with feature selections in
// one round trip.
func (r *repository) FindLines(ctx context.Context, buyerID uuid.UUID, lineIDs []uuid.UUID) ([]models.CartLine, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Preload("Features").
		Where("buyer_id = ? AND id IN ?", buyerID, lineIDs).
		Find(&lines).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading cart lines")
	}
	return lines, nil
}

// DeleteAllForBuyer clears every cart line the buyer holds, feature rows
// included, inside the caller's durability boundary.
func (r *repository) DeleteAllForBuyer(ctx context.Context, buyerID uuid.UUID) error {
	lineIDs := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Select("id").
		Where("buyer_id = ?", buyerID)
	err := r.db.WithContext(ctx).
		Where("cart_line_id IN (?)", lineIDs).
		Delete(&models.CartLineFeature{}).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "deleting cart line features")
	}
	if err := r.db.WithContext(ctx).Where("buyer_id = ?", buyerID).Delete(&models.CartLine{}).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "deleting cart lines")
	}
	return nil
}
