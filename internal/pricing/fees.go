package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/errors"
	"github.com/tradepost-io/tradepost-backend/pkg/types"
)

var oneHundred = decimal.NewFromInt(100)

// FeeInput carries everything needed to price one line.
type FeeInput struct {
	Category       string
	Amount         decimal.Decimal
	SellerLocation types.Address
	BuyerLocation  types.Address
}

// FeeBreakdown is the per-line fee result. All values retain full decimal
// precision; Rounded returns the 2dp display form.
type FeeBreakdown struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`

	Amount        decimal.Decimal `json:"amount"`
	BuyerFee      decimal.Decimal `json:"buyerFee"`
	Cashback      decimal.Decimal `json:"cashback"`
	TotalBuyerPay decimal.Decimal `json:"totalBuyerPay"`

	SellerFee    decimal.Decimal `json:"sellerFee"`
	VAT          decimal.Decimal `json:"vat"`
	GatewayFee   decimal.Decimal `json:"gatewayFee"`
	FixedFee     decimal.Decimal `json:"fixedFee"`
	SellerPayout decimal.Decimal `json:"sellerPayout"`

	PlatformMargin decimal.Decimal `json:"platformMargin"`
}

// Rounded returns a copy with every monetary field rounded to 2 decimal places.
func (b FeeBreakdown) Rounded() FeeBreakdown {
	b.Amount = b.Amount.Round(2)
	b.BuyerFee = b.BuyerFee.Round(2)
	b.Cashback = b.Cashback.Round(2)
	b.TotalBuyerPay = b.TotalBuyerPay.Round(2)
	b.SellerFee = b.SellerFee.Round(2)
	b.VAT = b.VAT.Round(2)
	b.GatewayFee = b.GatewayFee.Round(2)
	b.FixedFee = b.FixedFee.Round(2)
	b.SellerPayout = b.SellerPayout.Round(2)
	b.PlatformMargin = b.PlatformMargin.Round(2)
	return b
}

func invalidBreakdown(reason string) FeeBreakdown {
	return FeeBreakdown{Valid: false, Reason: reason}
}

// Engine resolves fee configurations and computes per-line breakdowns.
type Engine struct {
	repo Repository
}

// NewEngine builds the fee resolution engine.
func NewEngine(repo Repository) (*Engine, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "pricing repository is required")
	}
	return &Engine{repo: repo}, nil
}

// Resolve looks up the fee configuration for the input's category and computes
// the breakdown. A missing category or unmatched location schedule yields an
// invalid breakdown, not an error; errors are reserved for storage failures.
func (e *Engine) Resolve(ctx context.Context, in FeeInput) (FeeBreakdown, error) {
	cfg, err := e.repo.FindConfigByCategory(ctx, in.Category)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return invalidBreakdown("not applicable"), nil
		}
		return FeeBreakdown{}, err
	}
	return Compute(cfg, in), nil
}

// Compute resolves the applicable schedule(s) from cfg and prices the line.
// Pure over its inputs.
func Compute(cfg *models.FeeConfig, in FeeInput) FeeBreakdown {
	if cfg == nil {
		return invalidBreakdown("not applicable")
	}

	buyerSchedule, sellerSchedule, reason := resolveSchedules(cfg, in)
	if reason != "" {
		return invalidBreakdown(reason)
	}

	amount := in.Amount

	rawBuyerFee := amount.Mul(buyerSchedule.BuyerFeePercent).Div(oneHundred)
	buyerFee := capped(rawBuyerFee, buyerSchedule.BuyerFeeCap)
	cashback := rawBuyerFee.Sub(buyerFee)
	totalBuyerPay := amount.Add(buyerFee)

	rawSellerFee := amount.Mul(sellerSchedule.SellerFeePercent).Div(oneHundred)
	sellerFee := capped(rawSellerFee, sellerSchedule.SellerFeeCap)
	vat := amount.Mul(sellerSchedule.VATPercent).Div(oneHundred)
	gatewayFee := amount.Mul(sellerSchedule.GatewayPercent).Div(oneHundred)
	fixedFee := sellerSchedule.FixedFee
	sellerPayout := amount.Sub(sellerFee.Add(vat).Add(gatewayFee).Add(fixedFee))

	platformMargin := totalBuyerPay.Sub(sellerPayout).Sub(cashback)

	return FeeBreakdown{
		Valid:          true,
		Amount:         amount,
		BuyerFee:       buyerFee,
		Cashback:       cashback,
		TotalBuyerPay:  totalBuyerPay,
		SellerFee:      sellerFee,
		VAT:            vat,
		GatewayFee:     gatewayFee,
		FixedFee:       fixedFee,
		SellerPayout:   sellerPayout,
		PlatformMargin: platformMargin,
	}
}

// capped limits the fee to cap when a positive cap is configured.
func capped(raw, cap decimal.Decimal) decimal.Decimal {
	if cap.IsPositive() && raw.GreaterThan(cap) {
		return cap
	}
	return raw
}

func resolveSchedules(cfg *models.FeeConfig, in FeeInput) (buyer, seller *models.FeeSchedule, reason string) {
	if !cfg.LocationScoped {
		uniform := pickSchedule(cfg.Schedules, enums.FeeSideBoth, nil)
		if uniform == nil {
			return nil, nil, "no active fee schedule"
		}
		return uniform, uniform, ""
	}

	buyer = pickSchedule(cfg.Schedules, enums.FeeSideBuyer, &in.BuyerLocation)
	if buyer == nil {
		return nil, nil, fmt.Sprintf("no buyer-side fee schedule for %s", in.BuyerLocation.Country)
	}
	seller = pickSchedule(cfg.Schedules, enums.FeeSideSeller, &in.SellerLocation)
	if seller == nil {
		return nil, nil, fmt.Sprintf("no seller-side fee schedule for %s", in.SellerLocation.Country)
	}
	return buyer, seller, ""
}

// pickSchedule returns the first active schedule for the side, preferring the
// most specific location match when a location is supplied.
func pickSchedule(schedules []models.FeeSchedule, side enums.FeeSide, loc *types.Address) *models.FeeSchedule {
	var best *models.FeeSchedule
	bestSpecificity := -1
	for i := range schedules {
		s := &schedules[i]
		if !s.Active || s.Side != side {
			continue
		}
		if loc == nil {
			return s
		}
		if !loc.MatchesScope(s.Country, s.State, s.City) {
			continue
		}
		spec := scopeSpecificity(s)
		if spec > bestSpecificity {
			best = s
			bestSpecificity = spec
		}
	}
	return best
}

func scopeSpecificity(s *models.FeeSchedule) int {
	n := 0
	if s.Country != "" {
		n++
	}
	if s.State != "" {
		n++
	}
	if s.City != "" {
		n++
	}
	return n
}
