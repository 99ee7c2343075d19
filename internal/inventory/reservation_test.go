package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	pkgerrors "github.com/tradepost-io/tradepost-backend/pkg/errors"
)

func TestReserveLines(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	listingA := seedListing(t, db, 5)
	listingB := seedListing(t, db, 1)

	requests := []ReservationRequest{
		{CartLineID: uuid.New(), ListingID: listingA, Qty: 3},
		{CartLineID: uuid.New(), ListingID: listingA, Qty: 4},
		{CartLineID: uuid.New(), ListingID: listingB, Qty: 1},
		{CartLineID: uuid.New(), ListingID: uuid.New(), Qty: 1},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		results, terr := ReserveLines(ctx, tx, requests)
		if terr != nil {
			return terr
		}
		if len(results) != 4 {
			t.Fatalf("expected 4 results, got %d", len(results))
		}
		if !results[0].Reserved || results[0].Reason != "" {
			t.Fatalf("expected first reservation to succeed")
		}
		if results[1].Reserved || results[1].Reason == "" {
			t.Fatalf("expected second reservation to fail with reason")
		}
		if !results[2].Reserved {
			t.Fatalf("expected third reservation to succeed")
		}
		if results[3].Reserved || results[3].Reason == "" {
			t.Fatalf("expected unknown listing to be refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}

	if got := loadStock(t, db, listingA); got != 2 {
		t.Fatalf("unexpected listing a stock %d", got)
	}
	if got := loadStock(t, db, listingB); got != 0 {
		t.Fatalf("unexpected listing b stock %d", got)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	listing := seedListing(t, db, 5)

	err := Reserve(context.Background(), db, listing, 0)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReserveOutOfStockLeavesStockUnchanged(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	listing := seedListing(t, db, 2)

	err := Reserve(context.Background(), db, listing, 3)
	if !pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out-of-stock, got %v", err)
	}
	if got := loadStock(t, db, listing); got != 2 {
		t.Fatalf("stock mutated on refusal: %d", got)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	listing := seedListing(t, db, 5)
	ctx := context.Background()

	if err := Reserve(ctx, db, listing, 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := Release(ctx, db, listing, 4); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := loadStock(t, db, listing); got != 5 {
		t.Fatalf("unexpected stock after release %d", got)
	}
}

func TestReserveConcurrentDemandNeverOversells(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	// one pooled connection keeps sqlite from surfacing lock errors; the
	// goroutines still race on who decrements first
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	const seeded = 10
	const demand = 25
	listing := seedListing(t, db, seeded)
	ctx := context.Background()

	var wg sync.WaitGroup
	var reserved int32
	for i := 0; i < demand; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := Reserve(ctx, db, listing, 1)
			switch {
			case err == nil:
				atomic.AddInt32(&reserved, 1)
			case pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock):
			default:
				t.Errorf("unexpected reserve error: %v", err)
			}
		}()
	}
	wg.Wait()

	stock := loadStock(t, db, listing)
	if stock < 0 {
		t.Fatalf("stock went negative: %d", stock)
	}
	if got := int(reserved); got != seeded {
		t.Fatalf("expected exactly %d reservations to win, got %d (remaining stock %d)", seeded, got, stock)
	}
	if stock != 0 {
		t.Fatalf("expected stock drained to zero, got %d", stock)
	}
}

func TestReleaseUnknownListing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	err := Release(context.Background(), db, uuid.New(), 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Listing{}); err != nil {
		t.Fatalf("migrate listings: %v", err)
	}
	return db
}

func seedListing(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()
	listing := models.Listing{
		SellerID:    uuid.New(),
		ProductID:   uuid.New(),
		Title:       "test listing",
		UnitPrice:   decimal.NewFromInt(10),
		Stock:       stock,
		FeeCategory: "general",
	}
	if err := db.Create(&listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing.ID
}

func loadStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var listing models.Listing
	if err := db.First(&listing, "id = ?", id).Error; err != nil {
		t.Fatalf("load listing: %v", err)
	}
	return listing.Stock
}
