package orders

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/errors"
)

// Repository persists the order aggregate and its line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateSellerOrder(ctx context.Context, sellerOrder *models.SellerOrder) error
	CreateShipment(ctx context.Context, shipment *models.Shipment) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	CreateAddress(ctx context.Context, address *models.OrderAddress) error
	CreatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AttachWalletTransaction(ctx context.Context, orderID, txnID uuid.UUID) error
	AttachGatewayTransaction(ctx context.Context, orderID, txnID uuid.UUID) error
	FindLineItemByID(ctx context.Context, id uuid.UUID) (*models.OrderLineItem, error)
	UpdateLineItemStatus(ctx context.Context, id uuid.UUID, status enums.LineItemStatus, cancelReason *string) error
	UpdateShipmentStatus(ctx context.Context, id uuid.UUID, status enums.ShipmentStatus) error
	// SumOpenQuantityByListing totals ordered quantity across non-terminal
	// line item statuses for one listing.
	SumOpenQuantityByListing(ctx context.Context, listingID uuid.UUID) (int, error)
	// PromotePlacedByListing bulk-moves the listing's placed line items to
	// confirmed and returns how many rows moved.
	PromotePlacedByListing(ctx context.Context, listingID uuid.UUID) (int64, error)
	FindLineItemsByListingAndStatus(ctx context.Context, listingID uuid.UUID, status enums.LineItemStatus) ([]models.OrderLineItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository backed by the provided DB.
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

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "creating order")
	}
	return nil
}

func (r *repository) CreateSellerOrder(ctx context.Context, sellerOrder *models.SellerOrder) error {
	if err := r.db.WithContext(ctx).Create(sellerOrder).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "creating seller order")
	}
	return nil
}

func (r *repository) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	if err := r.db.WithContext(ctx).Create(shipment).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "creating shipment")
	}
	return nil
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "creating order line items")
	}
	return nil
}

func (r *repository) CreateAddress(ctx context.Context, address *models.OrderAddress) error {
	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "creating order address")
	}
	return nil
}

func (r *repository) CreatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "creating payment transaction")
	}
	return nil
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("SellerOrders").
		Preload("Items").
		Preload("Shipments").
		Preload("Addresses").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading order")
	}
	return &order, nil
}

func (r *repository) AttachWalletTransaction(ctx context.Context, orderID, txnID uuid.UUID) error {
	return r.attachPaymentRef(ctx, orderID, "wallet_transaction_id", txnID)
}

func (r *repository) AttachGatewayTransaction(ctx context.Context, orderID, txnID uuid.UUID) error {
	return r.attachPaymentRef(ctx, orderID, "gateway_transaction_id", txnID)
}

// attachPaymentRef stamps one payment reference; an order never carries both.
func (r *repository) attachPaymentRef(ctx context.Context, orderID uuid.UUID, column string, txnID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND wallet_transaction_id IS NULL AND gateway_transaction_id IS NULL", orderID).
		Update(column, txnID)
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "attaching payment reference")
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeConflict, "order already carries a payment reference")
	}
	return nil
}

func (r *repository) FindLineItemByID(ctx context.Context, id uuid.UUID) (*models.OrderLineItem, error) {
	var item models.OrderLineItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order line item not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading order line item")
	}
	return &item, nil
}

func (r *repository) UpdateLineItemStatus(ctx context.Context, id uuid.UUID, status enums.LineItemStatus, cancelReason *string) error {
	updates := map[string]any{"status": status}
	if cancelReason != nil {
		updates["cancel_reason"] = *cancelReason
	}
	res := r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "updating line item status")
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "order line item not found")
	}
	return nil
}

func (r *repository) UpdateShipmentStatus(ctx context.Context, id uuid.UUID, status enums.ShipmentStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "updating shipment status")
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "shipment not found")
	}
	return nil
}

func (r *repository) SumOpenQuantityByListing(ctx context.Context, listingID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("listing_id = ? AND status NOT IN ?", listingID, []enums.LineItemStatus{
			enums.LineItemStatusDelivered,
			enums.LineItemStatusCancelled,
		}).
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(errors.CodeDependency, err, "summing open quantity")
	}
	return int(total), nil
}

func (r *repository) PromotePlacedByListing(ctx context.Context, listingID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("listing_id = ? AND status = ?", listingID, enums.LineItemStatusPlaced).
		Update("status", enums.LineItemStatusConfirmed)
	if res.Error != nil {
		return 0, errors.Wrap(errors.CodeDependency, res.Error, "promoting placed line items")
	}
	return res.RowsAffected, nil
}

func (r *repository) FindLineItemsByListingAndStatus(ctx context.Context, listingID uuid.UUID, status enums.LineItemStatus) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND status = ?", listingID, status).
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading line items")
	}
	return items, nil
}
