package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
)

// DiscountResult is the discount-adjusted unit price for one listing.
type DiscountResult struct {
	UnitPrice       decimal.Decimal
	DiscountPerUnit decimal.Decimal
	Applied         bool
}

// ResolveDiscount applies the listing's per-audience discount to the buyer's
// trade role. Vendor discounts apply to company and freelancer roles, consumer
// discounts to plain buyers; listings addressed to everyone carry both. Any
// other combination sells at the listed price.
func ResolveDiscount(role enums.TradeRole, listing models.Listing) DiscountResult {
	base := listing.UnitPrice
	if listing.PromoPrice != nil && listing.PromoPrice.IsPositive() && listing.PromoPrice.LessThan(base) {
		base = *listing.PromoPrice
	}

	discountType, amount := discountForRole(role, listing)
	if discountType == nil {
		return DiscountResult{UnitPrice: base}
	}

	var perUnit decimal.Decimal
	switch *discountType {
	case enums.DiscountTypeFlat:
		perUnit = amount
	case enums.DiscountTypePercent:
		perUnit = base.Mul(amount).Div(decimal.NewFromInt(100))
	default:
		// unknown discount type sells at face value
		return DiscountResult{UnitPrice: base}
	}

	if perUnit.IsNegative() {
		perUnit = decimal.Zero
	}
	if perUnit.GreaterThan(base) {
		perUnit = base
	}

	return DiscountResult{
		UnitPrice:       base.Sub(perUnit),
		DiscountPerUnit: perUnit,
		Applied:         perUnit.IsPositive(),
	}
}

func discountForRole(role enums.TradeRole, listing models.Listing) (*enums.DiscountType, decimal.Decimal) {
	switch listing.Audience {
	case enums.AudienceVendor:
		if role.IsVendorSide() {
			return listing.VendorDiscountType, listing.VendorDiscountAmount
		}
	case enums.AudienceConsumer:
		if role == enums.TradeRoleBuyer {
			return listing.ConsumerDiscountType, listing.ConsumerDiscountAmount
		}
	case enums.AudienceEveryone:
		if role.IsVendorSide() {
			return listing.VendorDiscountType, listing.VendorDiscountAmount
		}
		if role == enums.TradeRoleBuyer {
			return listing.ConsumerDiscountType, listing.ConsumerDiscountAmount
		}
	}
	return nil, decimal.Zero
}
