package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/errors"
)

// ReservationRequest asks for qty units of one listing.
type ReservationRequest struct {
	CartLineID uuid.UUID
	ListingID  uuid.UUID
	Qty        int
}

// ReservationResult reports the outcome per requested line.
type ReservationResult struct {
	CartLineID uuid.UUID
	ListingID  uuid.UUID
	Reserved   bool
	Reason     string
}

// Reserve conditionally decrements listing stock. The predicate re-validates
// sufficiency at write time so concurrent requests cannot drive stock negative.
func Reserve(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error {
	if tx == nil {
		return errors.New(errors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return errors.New(errors.CodeValidation, "reservation quantity must be positive")
	}

	res := tx.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND stock >= ?", listingID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "reserving stock")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var exists int64
	if err := tx.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", listingID).Count(&exists).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "checking listing")
	}
	if exists == 0 {
		return errors.New(errors.CodeNotFound, "listing not found")
	}
	return errors.New(errors.CodeOutOfStock, "insufficient stock")
}

// Release returns previously reserved units, used when a reserved line is
// later rejected within the same transaction.
func Release(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error {
	if tx == nil {
		return errors.New(errors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return errors.New(errors.CodeValidation, "release quantity must be positive")
	}
	res := tx.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", listingID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "releasing stock")
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "listing not found")
	}
	return nil
}

// ReserveLines reserves each request independently. A refused line is reported
// with a reason instead of failing the batch; only storage faults and invalid
// quantities abort.
func ReserveLines(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) ([]ReservationResult, error) {
	results := make([]ReservationResult, 0, len(requests))
	for _, req := range requests {
		err := Reserve(ctx, tx, req.ListingID, req.Qty)
		if err != nil {
			if refusal(err) {
				results = append(results, ReservationResult{
					CartLineID: req.CartLineID,
					ListingID:  req.ListingID,
					Reason:     errors.As(err).Message(),
				})
				continue
			}
			return nil, err
		}
		results = append(results, ReservationResult{
			CartLineID: req.CartLineID,
			ListingID:  req.ListingID,
			Reserved:   true,
		})
	}
	return results, nil
}

func refusal(err error) bool {
	return errors.IsCode(err, errors.CodeOutOfStock) || errors.IsCode(err, errors.CodeNotFound)
}
