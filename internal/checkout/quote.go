package checkout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/internal/accounts"
	"github.com/tradepost-io/tradepost-backend/internal/inventory"
	"github.com/tradepost-io/tradepost-backend/pkg/db"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-io/tradepost-backend/pkg/errors"
	"github.com/tradepost-io/tradepost-backend/pkg/types"
)

// QuoteLine is one already-negotiated line from an accepted quote. UnitPrice
// is trusted as agreed; no discount or fee computation applies. Suggested
// marks a pre-approved catalog substitution attached alongside the quoted
// lines.
type QuoteLine struct {
	ListingID uuid.UUID
	SellerID  uuid.UUID
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	Suggested bool
}

// QuoteInput is one order-creation request derived from an accepted quote.
type QuoteInput struct {
	QuoteID         uuid.UUID
	Lines           []QuoteLine
	PaymentMethod   enums.PaymentMethod
	SubAccountID    *uuid.UUID
	BillingAddress  types.Address
	ShippingAddress types.Address
	Shipping        []ShippingRequest
}

// ExecuteQuote creates an order from a previously-accepted quote. Prices are
// taken as negotiated; stock is still reserved per product line, and each
// quoted seller id is resolved to its owning account before the line items
// are stamped.
func (s *service) ExecuteQuote(ctx context.Context, buyerID uuid.UUID, input QuoteInput) (*Result, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote lines required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote line price must not be negative")
		}
	}

	var result *Result
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		result, err = s.executeQuoteOnce(ctx, buyerID, input)
		if err != nil && db.IsUniqueViolation(err, "order_number") {
			continue
		}
		break
	}
	return result, err
}

func (s *service) executeQuoteOnce(ctx context.Context, buyerID uuid.UUID, input QuoteInput) (*Result, error) {
	buyer, err := s.accounts.FindByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		accountsRepo := s.accounts.WithTx(tx)

		lineResults, err := s.buildQuoteLines(ctx, tx, accountsRepo, input.Lines)
		if err != nil {
			return err
		}

		accepted := acceptedResults(lineResults)
		if len(accepted) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no purchasable lines").
				WithDetails(copyResults(lineResults))
		}

		if err := validateShippingSellers(input.Shipping, accepted); err != nil {
			return err
		}

		totals := sumTotals(accepted)

		orderInput := Input{
			PaymentMethod:   input.PaymentMethod,
			SubAccountID:    input.SubAccountID,
			BillingAddress:  input.BillingAddress,
			ShippingAddress: input.ShippingAddress,
			Shipping:        input.Shipping,
		}
		order, sellerOrderIDs, pendingTxnID, err := s.persistOrder(ctx, tx, ordersRepo, buyer, orderInput, accepted, totals)
		if err != nil {
			return err
		}

		s.emitOrderCreated(ctx, tx, order, accepted, sellerOrderIDs)

		full, err := ordersRepo.FindOrderByID(ctx, order.ID)
		if err != nil {
			return err
		}
		result = &Result{
			Order:                full,
			Lines:                copyResults(lineResults),
			Totals:               totals,
			PendingTransactionID: pendingTxnID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildQuoteLines reserves stock for each quoted line and resolves every
// quoted seller to its owning account. A quote issued by a team member must
// land on the parent account's books.
func (s *service) buildQuoteLines(ctx context.Context, tx *gorm.DB, accountsRepo accounts.Repository, lines []QuoteLine) ([]*LineResult, error) {
	owners := map[uuid.UUID]uuid.UUID{}
	results := make([]*LineResult, 0, len(lines))

	for i := range lines {
		line := lines[i]
		listingID := line.ListingID
		res := &LineResult{
			CartLineID:    uuid.New(),
			Kind:          enums.LineKindProduct,
			ListingID:     &listingID,
			Title:         line.Title,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			PurchasePrice: line.UnitPrice,
			BuyerPay:      line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			Status:        enums.LineItemStatusPlaced,
		}
		results = append(results, res)

		ownerID, ok := owners[line.SellerID]
		if !ok {
			owner, err := accounts.ResolveOwning(ctx, accountsRepo, line.SellerID)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					res.Reason = "seller account not found"
					continue
				}
				return nil, err
			}
			ownerID = owner.ID
			owners[line.SellerID] = ownerID
		}
		res.SellerID = ownerID

		if err := inventory.Reserve(ctx, tx, line.ListingID, line.Quantity); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				res.Reason = pkgerrors.As(err).Message()
				continue
			}
			return nil, err
		}
		res.Accepted = true
	}
	return results, nil
}
