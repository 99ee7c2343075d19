package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/internal/accounts"
	"github.com/tradepost-io/tradepost-backend/internal/cart"
	"github.com/tradepost-io/tradepost-backend/internal/inventory"
	"github.com/tradepost-io/tradepost-backend/internal/orders"
	"github.com/tradepost-io/tradepost-backend/internal/pricing"
	"github.com/tradepost-io/tradepost-backend/internal/wallet"
	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-io/tradepost-backend/pkg/errors"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox"
)

type gormRunner struct {
	db *gorm.DB
}

func (r gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	db  *gorm.DB
	svc Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Account{},
		&models.Listing{},
		&models.ServiceOffering{},
		&models.CartLine{},
		&models.CartLineFeature{},
		&models.FeeConfig{},
		&models.FeeSchedule{},
		&models.Order{},
		&models.SellerOrder{},
		&models.OrderLineItem{},
		&models.Shipment{},
		&models.OrderAddress{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.PaymentTransaction{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "checkout-test"})
	walletSvc, err := wallet.NewService(wallet.NewRepository(db), logg)
	require.NoError(t, err)
	engine, err := pricing.NewEngine(pricing.NewRepository(db))
	require.NoError(t, err)
	outboxSvc := outbox.NewService(outbox.NewRepository(db), logg)

	svc, err := NewService(
		gormRunner{db: db},
		cart.NewRepository(db),
		inventory.NewRepository(db),
		accounts.NewRepository(db),
		orders.NewRepository(db),
		engine,
		walletSvc,
		outboxSvc,
		logg,
	)
	require.NoError(t, err)
	return &fixture{db: db, svc: svc}
}

func (f *fixture) seedAccount(t *testing.T, role enums.TradeRole) *models.Account {
	t.Helper()
	account := &models.Account{
		Email:     uuid.NewString() + "@example.com",
		TradeRole: role,
	}
	require.NoError(t, f.db.Create(account).Error)
	return account
}

func (f *fixture) seedWallet(t *testing.T, accountID uuid.UUID, balance string) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.WalletAccount{
		AccountID: accountID,
		Balance:   decimal.RequireFromString(balance),
	}).Error)
}

// seedFeeConfig installs the uniform schedule used across these tests:
// buyer 5% capped at 20, seller 3% capped at 50, VAT 1%, gateway 2%, fixed 1.
func (f *fixture) seedFeeConfig(t *testing.T, category string) {
	t.Helper()
	cfg := &models.FeeConfig{
		Category: category,
		Schedules: []models.FeeSchedule{{
			Side:             enums.FeeSideBoth,
			BuyerFeePercent:  decimal.NewFromInt(5),
			BuyerFeeCap:      decimal.NewFromInt(20),
			SellerFeePercent: decimal.NewFromInt(3),
			SellerFeeCap:     decimal.NewFromInt(50),
			VATPercent:       decimal.NewFromInt(1),
			GatewayPercent:   decimal.NewFromInt(2),
			FixedFee:         decimal.NewFromInt(1),
			Active:           true,
		}},
	}
	require.NoError(t, f.db.Create(cfg).Error)
}

func (f *fixture) seedListing(t *testing.T, sellerID uuid.UUID, price int64, flatDiscount int64, stock int, category string) *models.Listing {
	t.Helper()
	flat := enums.DiscountTypeFlat
	listing := &models.Listing{
		SellerID:               sellerID,
		ProductID:              uuid.New(),
		Title:                  "widget",
		UnitPrice:              decimal.NewFromInt(price),
		Stock:                  stock,
		Audience:               enums.AudienceEveryone,
		ConsumerDiscountType:   &flat,
		ConsumerDiscountAmount: decimal.NewFromInt(flatDiscount),
		FeeCategory:            category,
		Active:                 true,
	}
	require.NoError(t, f.db.Create(listing).Error)
	return listing
}

func (f *fixture) seedCartLine(t *testing.T, buyerID, listingID uuid.UUID, qty int) *models.CartLine {
	t.Helper()
	line := &models.CartLine{
		BuyerID:   buyerID,
		Kind:      enums.LineKindProduct,
		ListingID: &listingID,
		Quantity:  qty,
	}
	require.NoError(t, f.db.Create(line).Error)
	return line
}

func (f *fixture) listingStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var listing models.Listing
	require.NoError(t, f.db.First(&listing, "id = ?", id).Error)
	return listing.Stock
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	return count
}

func TestExecuteWalletHappyPath(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyer := f.seedAccount(t, enums.TradeRoleBuyer)
	seller := f.seedAccount(t, enums.TradeRoleCompany)
	f.seedFeeConfig(t, "general")
	listing := f.seedListing(t, seller.ID, 100, 10, 5, "general")
	line := f.seedCartLine(t, buyer.ID, listing.ID, 1)
	f.seedWallet(t, buyer.ID, "200")
	ctx := context.Background()

	result, err := f.svc.Execute(ctx, buyer.ID, Input{
		CartLineIDs:   []uuid.UUID{line.ID},
		PaymentMethod: enums.PaymentMethodWallet,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Order)

	// 100 listed, 10 flat discount, 5% buyer fee on 90 = 4.50
	assert.True(t, result.Totals.BuyerPay.Equal(decimal.RequireFromString("94.5")),
		"buyer pay %s", result.Totals.BuyerPay)
	assert.True(t, result.Totals.Discount.Equal(decimal.NewFromInt(10)))
	assert.True(t, result.Totals.PlatformMargin.Equal(decimal.RequireFromString("10.9")),
		"margin %s", result.Totals.PlatformMargin)

	require.Len(t, result.Lines, 1)
	assert.True(t, result.Lines[0].Accepted)
	require.NotNil(t, result.Lines[0].Fees)
	assert.True(t, result.Lines[0].Fees.BuyerFee.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, result.Lines[0].Fees.SellerPayout.Equal(decimal.RequireFromString("83.6")))

	assert.Equal(t, 4, f.listingStock(t, listing.ID))
	require.NotNil(t, result.Order.WalletTransactionID)
	assert.Nil(t, result.Order.GatewayTransactionID)

	var account models.WalletAccount
	require.NoError(t, f.db.First(&account, "account_id = ?", buyer.ID).Error)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("105.5")),
		"balance %s", account.Balance)

	var cartLines int64
	require.NoError(t, f.db.Model(&models.CartLine{}).Where("buyer_id = ?", buyer.ID).Count(&cartLines).Error)
	assert.Zero(t, cartLines, "cart must be cleared")

	require.Len(t, result.Order.SellerOrders, 1)
	assert.True(t, result.Order.SellerOrders[0].NetAmount.Equal(decimal.RequireFromString("83.6")))

	var events []models.OutboxEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
}

func TestExecuteTotalsKeepFullFeePrecision(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyer := f.seedAccount(t, enums.TradeRoleBuyer)
	seller := f.seedAccount(t, enums.TradeRoleCompany)
	cfg := &models.FeeConfig{
		Category: "fine-grained",
		Schedules: []models.FeeSchedule{{
			Side:             enums.FeeSideBoth,
			BuyerFeePercent:  decimal.RequireFromString("1.111"),
			SellerFeePercent: decimal.RequireFromString("1.111"),
			Active:           true,
		}},
	}
	require.NoError(t, f.db.Create(cfg).Error)
	listing := f.seedListing(t, seller.ID, 10, 0, 5, "fine-grained")
	line := f.seedCartLine(t, buyer.ID, listing.ID, 1)
	ctx := context.Background()

	result, err := f.svc.Execute(ctx, buyer.ID, Input{
		CartLineIDs:   []uuid.UUID{line.ID},
		PaymentMethod: enums.PaymentMethodGateway,
	})
	require.NoError(t, err)

	// 1.111% buyer and seller fees on 10: margin is 0.2222 exactly, not 0.22
	assert.True(t, result.Totals.PlatformMargin.Equal(decimal.RequireFromString("0.2222")),
		"margin %s", result.Totals.PlatformMargin)
	assert.True(t, result.Totals.BuyerPay.Equal(decimal.RequireFromString("10.1111")),
		"buyer pay %s", result.Totals.BuyerPay)

	assert.True(t, result.Order.TotalPlatformMargin.Equal(decimal.RequireFromString("0.2222")),
		"persisted margin %s", result.Order.TotalPlatformMargin)
	require.Len(t, result.Order.SellerOrders, 1)
	assert.True(t, result.Order.SellerOrders[0].NetAmount.Equal(decimal.RequireFromString("9.8889")),
		"net %s", result.Order.SellerOrders[0].NetAmount)

	// response lines carry the 2dp display form
	require.Len(t, result.Lines, 1)
	require.NotNil(t, result.Lines[0].Fees)
	assert.True(t, result.Lines[0].Fees.PlatformMargin.Equal(decimal.RequireFromString("0.22")),
		"display margin %s", result.Lines[0].Fees.PlatformMargin)
	assert.True(t, result.Lines[0].Fees.BuyerFee.Equal(decimal.RequireFromString("0.11")),
		"display buyer fee %s", result.Lines[0].Fees.BuyerFee)
}

func TestExecutePartialAcceptanceOnStockExhaustion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyer := f.seedAccount(t, enums.TradeRoleBuyer)
	seller := f.seedAccount(t, enums.TradeRoleCompany)
	f.seedFeeConfig(t, "general")
	inStock := f.seedListing(t, seller.ID, 100, 0, 5, "general")
	exhausted := f.seedListing(t, seller.ID, 50, 0, 1, "general")
	lineA := f.seedCartLine(t, buyer.ID, inStock.ID, 2)
	lineB := f.seedCartLine(t, buyer.ID, exhausted.ID, 3)
	ctx := context.Background()

	result, err := f.svc.Execute(ctx, buyer.ID, Input{
		CartLineIDs:   []uuid.UUID{lineA.ID, lineB.ID},
		PaymentMethod: enums.PaymentMethodGateway,
	})
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	byCartLine := map[uuid.UUID]LineResult{}
	for _, lr := range result.Lines {
		byCartLine[lr.CartLineID] = lr
	}
	assert.True(t, byCartLine[lineA.ID].Accepted)
	rejected := byCartLine[lineB.ID]
	assert.False(t, rejected.Accepted)
	assert.Equal(t, "insufficient stock", rejected.Reason)

	assert.Equal(t, 3, f.listingStock(t, inStock.ID))
	assert.Equal(t, 1, f.listingStock(t, exhausted.ID), "refused line must not consume stock")

	require.Len(t, result.Order.Items, 1)
}

func TestExecuteAbortsWhenNothingSurvives(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyer := f.seedAccount(t, enums.TradeRoleBuyer)
	seller := f.seedAccount(t, enums.TradeRoleCompany)
	f.seedFeeConfig(t, "general")
	listing := f.seedListing(t, seller.ID, 100, 0, 1, "general")
	line := f.seedCartLine(t, buyer.ID, listing.ID, 10)
	ctx := context.Background()

	_, err := f.svc.Execute(ctx, buyer.ID, Input{
		CartLineIDs:   []uuid.UUID{line.ID},
		PaymentMethod: enums.PaymentMethodGateway,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Zero(t, f.orderCount(t))
	assert.Equal(t, 1, f.listingStock(t, listing.ID))

	var cartLines int64
	require.NoError(t, f.db.Model(&models.CartLine{}).Count(&cartLines).Error)
	assert.Equal(t, int64(1), cartLines, "cart must survive a failed checkout")
}

func TestExecuteInsufficientWalletRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyer := f.seedAccount(t, enums.TradeRoleBuyer)
	seller := f.seedAccount(t, enums.TradeRoleCompany)
	f.seedFeeConfig(t, "general")
	listing := f.seedListing(t, seller.ID, 100, 10, 5, "general")
	line := f.seedCartLine(t, buyer.ID, listing.ID, 1)
	f.seedWallet(t, buyer.ID, "10")
	ctx := context.Background()

	_, err := f.svc.Execute(ctx, buyer.ID, Input{
		CartLineIDs:   []uuid.UUID{line.ID},
		PaymentMethod: enums.PaymentMethodWallet,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentFailed))

	// the enclosing transaction rolls everything back
	assert.Zero(t, f.orderCount(t))
	assert.Equal(t, 5, f.listingStock(t, listing.ID))

	var account models.WalletAccount
	require.NoError(t, f.db.First(&account, "account_id = ?", buyer.ID).Error)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(10)))
}

func TestExecuteShippingSellerMismatchAborts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyer := f.seedAccount(t, enums.TradeRoleBuyer)
	seller := f.seedAccount(t, enums.TradeRoleCompany)
	f.seedFeeConfig(t, "general")
	listing := f.seedListing(t, seller.ID, 100, 0, 5, "general")
	line := f.seedCartLine(t, buyer.ID, listing.ID, 1)
	ctx := context.Background()

	_, err := f.svc.Execute(ctx, buyer.ID, Input{
		CartLineIDs:   []uuid.UUID{line.ID},
		PaymentMethod: enums.PaymentMethodGateway,
		Shipping:      []ShippingRequest{{SellerID: uuid.New(), Charge: decimal.NewFromInt(5)}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Zero(t, f.orderCount(t))
	assert.Equal(t, 5, f.listingStock(t, listing.ID), "rollback must return reserved stock")
}

func TestExecuteFeeRejectionReleasesStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyer := f.seedAccount(t, enums.TradeRoleBuyer)
	seller := f.seedAccount(t, enums.TradeRoleCompany)
	f.seedFeeConfig(t, "general")
	priced := f.seedListing(t, seller.ID, 100, 0, 5, "general")
	unpriced := f.seedListing(t, seller.ID, 40, 0, 5, "no-such-category")
	lineA := f.seedCartLine(t, buyer.ID, priced.ID, 1)
	lineB := f.seedCartLine(t, buyer.ID, unpriced.ID, 2)
	ctx := context.Background()

	result, err := f.svc.Execute(ctx, buyer.ID, Input{
		CartLineIDs:   []uuid.UUID{lineA.ID, lineB.ID},
		PaymentMethod: enums.PaymentMethodGateway,
	})
	require.NoError(t, err)

	byCartLine := map[uuid.UUID]LineResult{}
	for _, lr := range result.Lines {
		byCartLine[lr.CartLineID] = lr
	}
	rejected := byCartLine[lineB.ID]
	assert.False(t, rejected.Accepted)
	assert.Equal(t, "not applicable", rejected.Reason)

	assert.Equal(t, 5, f.listingStock(t, unpriced.ID), "fee rejection must release the reservation")
	assert.Equal(t, 4, f.listingStock(t, priced.ID))
}

func TestExecuteGatewayCreatesPendingTransaction(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyer := f.seedAccount(t, enums.TradeRoleBuyer)
	seller := f.seedAccount(t, enums.TradeRoleCompany)
	f.seedFeeConfig(t, "general")
	listing := f.seedListing(t, seller.ID, 100, 0, 5, "general")
	line := f.seedCartLine(t, buyer.ID, listing.ID, 1)
	ctx := context.Background()

	result, err := f.svc.Execute(ctx, buyer.ID, Input{
		CartLineIDs:   []uuid.UUID{line.ID},
		PaymentMethod: enums.PaymentMethodGateway,
	})
	require.NoError(t, err)
	require.NotNil(t, result.PendingTransactionID)

	var txn models.PaymentTransaction
	require.NoError(t, f.db.First(&txn, "id = ?", *result.PendingTransactionID).Error)
	assert.Equal(t, enums.PaymentStatusPending, txn.Status)
	assert.Equal(t, result.Order.ID, txn.OrderID)

	require.NotNil(t, result.Order.GatewayTransactionID)
	assert.Nil(t, result.Order.WalletTransactionID)

	var walletRows int64
	require.NoError(t, f.db.Model(&models.WalletTransaction{}).Count(&walletRows).Error)
	assert.Zero(t, walletRows)
}

func TestExecuteServiceLineAutoConfirms(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyer := f.seedAccount(t, enums.TradeRoleBuyer)
	seller := f.seedAccount(t, enums.TradeRoleCompany)

	offering := &models.ServiceOffering{
		SellerID:         seller.ID,
		Title:            "onboarding",
		HoursPerCustomer: decimal.NewFromInt(2),
		AutoConfirm:      true,
	}
	require.NoError(t, f.db.Create(offering).Error)

	line := &models.CartLine{
		BuyerID:   buyer.ID,
		Kind:      enums.LineKindService,
		ServiceID: &offering.ID,
		Quantity:  3,
		Features: []models.CartLineFeature{
			{Name: "setup", Mode: enums.FeaturePricingModeFlat, Rate: decimal.NewFromInt(50)},
			{Name: "training", Mode: enums.FeaturePricingModeHourly, Rate: decimal.NewFromInt(10)},
		},
	}
	require.NoError(t, f.db.Create(line).Error)
	ctx := context.Background()

	result, err := f.svc.Execute(ctx, buyer.ID, Input{
		CartLineIDs:   []uuid.UUID{line.ID},
		PaymentMethod: enums.PaymentMethodGateway,
	})
	require.NoError(t, err)

	// flat 50 once + hourly 10 x 2 hours x qty 3 = 110
	require.Len(t, result.Lines, 1)
	assert.True(t, result.Lines[0].BuyerPay.Equal(decimal.NewFromInt(110)),
		"buyer pay %s", result.Lines[0].BuyerPay)
	assert.Nil(t, result.Lines[0].Fees, "service lines skip fee resolution")

	require.Len(t, result.Order.Items, 1)
	assert.Equal(t, enums.LineItemStatusConfirmed, result.Order.Items[0].Status)
}

func TestExecuteGroupsLineItemsBySeller(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	buyer := f.seedAccount(t, enums.TradeRoleBuyer)
	sellerA := f.seedAccount(t, enums.TradeRoleCompany)
	sellerB := f.seedAccount(t, enums.TradeRoleFreelancer)
	f.seedFeeConfig(t, "general")
	listingA := f.seedListing(t, sellerA.ID, 100, 0, 5, "general")
	listingB := f.seedListing(t, sellerB.ID, 60, 0, 5, "general")
	lineA := f.seedCartLine(t, buyer.ID, listingA.ID, 1)
	lineB := f.seedCartLine(t, buyer.ID, listingB.ID, 1)
	ctx := context.Background()

	result, err := f.svc.Execute(ctx, buyer.ID, Input{
		CartLineIDs:   []uuid.UUID{lineA.ID, lineB.ID},
		PaymentMethod: enums.PaymentMethodGateway,
		Shipping: []ShippingRequest{
			{SellerID: sellerA.ID, Charge: decimal.NewFromInt(7)},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Order.SellerOrders, 2)
	require.Len(t, result.Order.Shipments, 1)
	assert.Equal(t, sellerA.ID, result.Order.Shipments[0].SellerID)

	withShipment := 0
	for _, item := range result.Order.Items {
		if item.ShipmentID != nil {
			withShipment++
			assert.Equal(t, sellerA.ID, item.SellerID)
		}
	}
	assert.Equal(t, 1, withShipment)
}

func TestExecuteValidatesInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Execute(ctx, uuid.Nil, Input{
		CartLineIDs:   []uuid.UUID{uuid.New()},
		PaymentMethod: enums.PaymentMethodWallet,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Execute(ctx, uuid.New(), Input{PaymentMethod: enums.PaymentMethodWallet})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Execute(ctx, uuid.New(), Input{
		CartLineIDs:   []uuid.UUID{uuid.New()},
		PaymentMethod: enums.PaymentMethod("check"),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
