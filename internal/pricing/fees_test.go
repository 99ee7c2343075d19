package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/types"
)

func uniformConfig(schedule models.FeeSchedule) *models.FeeConfig {
	schedule.Side = enums.FeeSideBoth
	schedule.Active = true
	return &models.FeeConfig{
		Category:  "general",
		Schedules: []models.FeeSchedule{schedule},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeUniformSchedule(t *testing.T) {
	cfg := uniformConfig(models.FeeSchedule{
		BuyerFeePercent:  dec("5"),
		BuyerFeeCap:      dec("20"),
		SellerFeePercent: dec("3"),
		SellerFeeCap:     dec("50"),
		VATPercent:       dec("1"),
		GatewayPercent:   dec("2"),
		FixedFee:         dec("1"),
	})

	breakdown := Compute(cfg, FeeInput{
		Category: "general",
		Amount:   dec("90"),
	})

	require.True(t, breakdown.Valid, breakdown.Reason)
	assert.True(t, breakdown.BuyerFee.Equal(dec("4.5")), "buyer fee %s", breakdown.BuyerFee)
	assert.True(t, breakdown.TotalBuyerPay.Equal(dec("94.5")), "buyer pay %s", breakdown.TotalBuyerPay)
	assert.True(t, breakdown.SellerFee.Equal(dec("2.7")), "seller fee %s", breakdown.SellerFee)
	assert.True(t, breakdown.VAT.Equal(dec("0.9")), "vat %s", breakdown.VAT)
	assert.True(t, breakdown.GatewayFee.Equal(dec("1.8")), "gateway %s", breakdown.GatewayFee)
	assert.True(t, breakdown.SellerPayout.Equal(dec("83.6")), "payout %s", breakdown.SellerPayout)
	assert.True(t, breakdown.PlatformMargin.Equal(dec("10.9")), "margin %s", breakdown.PlatformMargin)
	assert.True(t, breakdown.Cashback.IsZero())
}

func TestComputeBuyerFeeCapProducesCashback(t *testing.T) {
	cfg := uniformConfig(models.FeeSchedule{
		BuyerFeePercent: dec("10"),
		BuyerFeeCap:     dec("5"),
	})

	breakdown := Compute(cfg, FeeInput{Amount: dec("100")})

	require.True(t, breakdown.Valid)
	assert.True(t, breakdown.BuyerFee.Equal(dec("5")), "buyer fee %s", breakdown.BuyerFee)
	assert.True(t, breakdown.Cashback.Equal(dec("5")), "cashback %s", breakdown.Cashback)
	assert.True(t, breakdown.TotalBuyerPay.Equal(dec("105")))
	// 105 collected, 100 paid out, 5 handed back as cashback: nothing retained
	assert.True(t, breakdown.PlatformMargin.IsZero(), "margin %s", breakdown.PlatformMargin)
}

func TestComputeSellerFeeCap(t *testing.T) {
	cfg := uniformConfig(models.FeeSchedule{
		SellerFeePercent: dec("10"),
		SellerFeeCap:     dec("3"),
	})

	breakdown := Compute(cfg, FeeInput{Amount: dec("100")})

	require.True(t, breakdown.Valid)
	assert.True(t, breakdown.SellerFee.Equal(dec("3")), "seller fee %s", breakdown.SellerFee)
	assert.True(t, breakdown.SellerPayout.Equal(dec("97")))
}

func TestComputeZeroCapMeansUncapped(t *testing.T) {
	cfg := uniformConfig(models.FeeSchedule{
		BuyerFeePercent: dec("10"),
	})

	breakdown := Compute(cfg, FeeInput{Amount: dec("1000")})

	require.True(t, breakdown.Valid)
	assert.True(t, breakdown.BuyerFee.Equal(dec("100")), "buyer fee %s", breakdown.BuyerFee)
}

func TestComputeMissingConfigIsInvalid(t *testing.T) {
	breakdown := Compute(nil, FeeInput{Amount: dec("10")})

	assert.False(t, breakdown.Valid)
	assert.Equal(t, "not applicable", breakdown.Reason)
}

func TestComputeUniformWithoutActiveScheduleIsInvalid(t *testing.T) {
	cfg := &models.FeeConfig{
		Category: "general",
		Schedules: []models.FeeSchedule{
			{Side: enums.FeeSideBoth, Active: false},
		},
	}

	breakdown := Compute(cfg, FeeInput{Amount: dec("10")})

	assert.False(t, breakdown.Valid)
	assert.Equal(t, "no active fee schedule", breakdown.Reason)
}

func TestComputeLocationScoped(t *testing.T) {
	cfg := &models.FeeConfig{
		Category:       "electronics",
		LocationScoped: true,
		Schedules: []models.FeeSchedule{
			{Side: enums.FeeSideBuyer, Country: "DE", Active: true, BuyerFeePercent: dec("4")},
			{Side: enums.FeeSideBuyer, Country: "DE", State: "BY", Active: true, BuyerFeePercent: dec("6")},
			{Side: enums.FeeSideSeller, Country: "NL", Active: true, SellerFeePercent: dec("2"), FixedFee: dec("1")},
		},
	}

	breakdown := Compute(cfg, FeeInput{
		Amount:         dec("100"),
		BuyerLocation:  types.Address{Country: "DE", State: "BY", City: "Munich"},
		SellerLocation: types.Address{Country: "NL", City: "Amsterdam"},
	})

	require.True(t, breakdown.Valid, breakdown.Reason)
	// the more specific DE/BY buyer schedule wins over the country-wide one
	assert.True(t, breakdown.BuyerFee.Equal(dec("6")), "buyer fee %s", breakdown.BuyerFee)
	assert.True(t, breakdown.SellerFee.Equal(dec("2")))
	assert.True(t, breakdown.SellerPayout.Equal(dec("97")))
}

func TestComputeLocationScopedCountrylessFallback(t *testing.T) {
	cfg := &models.FeeConfig{
		Category:       "electronics",
		LocationScoped: true,
		Schedules: []models.FeeSchedule{
			{Side: enums.FeeSideBuyer, Active: true, BuyerFeePercent: dec("3")},
			{Side: enums.FeeSideBuyer, Country: "DE", Active: true, BuyerFeePercent: dec("6")},
			{Side: enums.FeeSideSeller, Active: true, SellerFeePercent: dec("2")},
		},
	}

	// a buyer outside any scoped country lands on the countryless schedule
	breakdown := Compute(cfg, FeeInput{
		Amount:         dec("100"),
		BuyerLocation:  types.Address{Country: "US"},
		SellerLocation: types.Address{Country: "FR"},
	})
	require.True(t, breakdown.Valid, breakdown.Reason)
	assert.True(t, breakdown.BuyerFee.Equal(dec("3")), "buyer fee %s", breakdown.BuyerFee)

	// a scoped country still beats the fallback on specificity
	breakdown = Compute(cfg, FeeInput{
		Amount:         dec("100"),
		BuyerLocation:  types.Address{Country: "DE"},
		SellerLocation: types.Address{Country: "FR"},
	})
	require.True(t, breakdown.Valid, breakdown.Reason)
	assert.True(t, breakdown.BuyerFee.Equal(dec("6")), "buyer fee %s", breakdown.BuyerFee)
}

func TestComputeLocationScopedMissingSide(t *testing.T) {
	cfg := &models.FeeConfig{
		Category:       "electronics",
		LocationScoped: true,
		Schedules: []models.FeeSchedule{
			{Side: enums.FeeSideBuyer, Country: "DE", Active: true},
		},
	}

	breakdown := Compute(cfg, FeeInput{
		Amount:         dec("100"),
		BuyerLocation:  types.Address{Country: "DE"},
		SellerLocation: types.Address{Country: "FR"},
	})

	assert.False(t, breakdown.Valid)
	assert.Contains(t, breakdown.Reason, "seller-side")

	breakdown = Compute(cfg, FeeInput{
		Amount:        dec("100"),
		BuyerLocation: types.Address{Country: "US"},
	})

	assert.False(t, breakdown.Valid)
	assert.Contains(t, breakdown.Reason, "buyer-side")
}

func TestRoundedKeepsTwoDecimals(t *testing.T) {
	cfg := uniformConfig(models.FeeSchedule{
		BuyerFeePercent: dec("3.333"),
	})

	breakdown := Compute(cfg, FeeInput{Amount: dec("99.99")})
	require.True(t, breakdown.Valid)

	rounded := breakdown.Rounded()
	assert.True(t, rounded.BuyerFee.Equal(breakdown.BuyerFee.Round(2)))
	assert.Equal(t, int32(-2), rounded.BuyerFee.Exponent())
}
