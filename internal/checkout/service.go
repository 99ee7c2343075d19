package checkout

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/internal/accounts"
	"github.com/tradepost-io/tradepost-backend/internal/cart"
	"github.com/tradepost-io/tradepost-backend/internal/inventory"
	"github.com/tradepost-io/tradepost-backend/internal/orders"
	"github.com/tradepost-io/tradepost-backend/internal/pricing"
	"github.com/tradepost-io/tradepost-backend/internal/wallet"
	"github.com/tradepost-io/tradepost-backend/pkg/db"
	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-io/tradepost-backend/pkg/errors"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
	"github.com/tradepost-io/tradepost-backend/pkg/ordernum"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox/payloads"
	"github.com/tradepost-io/tradepost-backend/pkg/types"
)

// orderNumberAttempts bounds whole-transaction retries on an order number
// collision. The generated space makes more than one retry vanishingly rare.
const orderNumberAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service executes order creation from a cart or an accepted quote.
type Service interface {
	Execute(ctx context.Context, buyerID uuid.UUID, input Input) (*Result, error)
	ExecuteQuote(ctx context.Context, buyerID uuid.UUID, input QuoteInput) (*Result, error)
}

type service struct {
	tx       txRunner
	carts    cart.Repository
	catalog  inventory.Repository
	accounts accounts.Repository
	orders   orders.Repository
	pricing  *pricing.Engine
	wallet   *wallet.Service
	outbox   outboxPublisher
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	carts cart.Repository,
	catalog inventory.Repository,
	accountsRepo accounts.Repository,
	ordersRepo orders.Repository,
	pricingEngine *pricing.Engine,
	walletSvc *wallet.Service,
	publisher outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	}
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory repository required")
	}
	if accountsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "accounts repository required")
	}
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if pricingEngine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing engine required")
	}
	if walletSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		tx:       tx,
		carts:    carts,
		catalog:  catalog,
		accounts: accountsRepo,
		orders:   ordersRepo,
		pricing:  pricingEngine,
		wallet:   walletSvc,
		outbox:   publisher,
		logg:     logg,
	}, nil
}

// Execute turns the buyer's cart lines into an order. Individual lines may be
// refused (out of stock, inactive listing, no applicable fee) without failing
// the call; the whole call aborts only when nothing survives, on a
// shipping/seller mismatch, on payment failure, or on storage faults.
func (s *service) Execute(ctx context.Context, buyerID uuid.UUID, input Input) (*Result, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.CartLineIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line ids required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	var result *Result
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		result, err = s.executeOnce(ctx, buyerID, input)
		if err != nil && db.IsUniqueViolation(err, "order_number") {
			continue
		}
		break
	}
	return result, err
}

type productLine struct {
	cartLine models.CartLine
	listing  *models.Listing
	result   *LineResult
}

type serviceLine struct {
	cartLine models.CartLine
	offering *models.ServiceOffering
	result   *LineResult
}

func (s *service) executeOnce(ctx context.Context, buyerID uuid.UUID, input Input) (*Result, error) {
	buyer, err := s.accounts.FindByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		catalog := s.catalog.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		lines, err := carts.FindLines(ctx, buyerID, input.CartLineIDs)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no cart lines found")
		}

		products, services, lineResults, err := s.collectLines(ctx, catalog, lines)
		if err != nil {
			return err
		}

		s.priceProducts(buyer.TradeRole, products)
		s.priceServices(services)

		if err := s.reserveProducts(ctx, tx, products); err != nil {
			return err
		}

		if err := s.resolveProductFees(ctx, tx, buyer, products, input.ShippingAddress); err != nil {
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

		order, sellerOrderIDs, pendingTxnID, err := s.persistOrder(ctx, tx, ordersRepo, buyer, input, accepted, totals)
		if err != nil {
			return err
		}

		if err := carts.DeleteAllForBuyer(ctx, buyerID); err != nil {
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

// collectLines batch-fetches the referenced catalog rows and seeds one
// LineResult per cart line. Lines pointing at missing or inactive catalog
// entries are rejected here.
func (s *service) collectLines(ctx context.Context, catalog inventory.Repository, lines []models.CartLine) ([]*productLine, []*serviceLine, []*LineResult, error) {
	var listingIDs, serviceIDs []uuid.UUID
	for _, line := range lines {
		switch line.Kind {
		case enums.LineKindProduct:
			if line.ListingID != nil {
				listingIDs = append(listingIDs, *line.ListingID)
			}
		case enums.LineKindService:
			if line.ServiceID != nil {
				serviceIDs = append(serviceIDs, *line.ServiceID)
			}
		}
	}

	listings, err := catalog.FindListingsByIDs(ctx, listingIDs)
	if err != nil {
		return nil, nil, nil, err
	}
	offerings, err := catalog.FindServicesByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, nil, nil, err
	}

	listingByID := make(map[uuid.UUID]*models.Listing, len(listings))
	for i := range listings {
		listingByID[listings[i].ID] = &listings[i]
	}
	offeringByID := make(map[uuid.UUID]*models.ServiceOffering, len(offerings))
	for i := range offerings {
		offeringByID[offerings[i].ID] = &offerings[i]
	}

	var products []*productLine
	var services []*serviceLine
	var results []*LineResult
	for _, line := range lines {
		res := &LineResult{
			CartLineID: line.ID,
			Kind:       line.Kind,
			ListingID:  line.ListingID,
			ServiceID:  line.ServiceID,
			Quantity:   line.Quantity,
			Status:     enums.LineItemStatusPlaced,
		}
		results = append(results, res)

		switch line.Kind {
		case enums.LineKindProduct:
			var listing *models.Listing
			if line.ListingID != nil {
				listing = listingByID[*line.ListingID]
			}
			if listing == nil {
				res.Reason = "listing not found"
				continue
			}
			if !listing.Active {
				res.Reason = "listing inactive"
				continue
			}
			res.SellerID = listing.SellerID
			res.Title = listing.Title
			products = append(products, &productLine{cartLine: line, listing: listing, result: res})
		case enums.LineKindService:
			var offering *models.ServiceOffering
			if line.ServiceID != nil {
				offering = offeringByID[*line.ServiceID]
			}
			if offering == nil {
				res.Reason = "service offering not found"
				continue
			}
			res.SellerID = offering.SellerID
			res.Title = offering.Title
			if offering.AutoConfirm {
				res.Status = enums.LineItemStatusConfirmed
			}
			services = append(services, &serviceLine{cartLine: line, offering: offering, result: res})
		default:
			res.Reason = "unknown line kind"
		}
	}
	return products, services, results, nil
}

func (s *service) priceProducts(role enums.TradeRole, products []*productLine) {
	for _, p := range products {
		discount := pricing.ResolveDiscount(role, *p.listing)
		qty := decimal.NewFromInt(int64(p.cartLine.Quantity))
		p.result.UnitPrice = p.listing.UnitPrice
		p.result.PurchasePrice = discount.UnitPrice
		p.result.BuyerPay = discount.UnitPrice.Mul(qty)
	}
}

// priceServices sums feature costs: flat features add their rate once, hourly
// features bill rate x configured hours x quantity. Service lines skip stock
// and fee resolution entirely.
func (s *service) priceServices(services []*serviceLine) {
	for _, line := range services {
		total := decimal.Zero
		qty := decimal.NewFromInt(int64(line.cartLine.Quantity))
		for _, feature := range line.cartLine.Features {
			switch feature.Mode {
			case enums.FeaturePricingModeFlat:
				total = total.Add(feature.Rate)
			case enums.FeaturePricingModeHourly:
				total = total.Add(feature.Rate.Mul(line.offering.HoursPerCustomer).Mul(qty))
			}
		}
		line.result.UnitPrice = total
		line.result.PurchasePrice = total
		line.result.BuyerPay = total
		line.result.Accepted = true
	}
}

func (s *service) reserveProducts(ctx context.Context, tx *gorm.DB, products []*productLine) error {
	if len(products) == 0 {
		return nil
	}
	requests := make([]inventory.ReservationRequest, 0, len(products))
	byCartLine := make(map[uuid.UUID]*productLine, len(products))
	for _, p := range products {
		requests = append(requests, inventory.ReservationRequest{
			CartLineID: p.cartLine.ID,
			ListingID:  p.listing.ID,
			Qty:        p.cartLine.Quantity,
		})
		byCartLine[p.cartLine.ID] = p
	}

	reservations, err := inventory.ReserveLines(ctx, tx, requests)
	if err != nil {
		return err
	}
	for _, res := range reservations {
		p := byCartLine[res.CartLineID]
		if p == nil {
			continue
		}
		if res.Reserved {
			p.result.Accepted = true
		} else {
			p.result.Reason = res.Reason
		}
	}
	return nil
}

// resolveProductFees prices fees for every reserved product line. A line with
// an invalid fee result is rejected and its reservation released in the same
// transaction so refused demand does not leak out of stock. The breakdown is
// kept at full precision; order totals and seller payouts accumulate from it
// unrounded.
func (s *service) resolveProductFees(ctx context.Context, tx *gorm.DB, buyer *models.Account, products []*productLine, shipTo types.Address) error {
	sellerLocations := map[uuid.UUID]types.Address{}
	for _, p := range products {
		if !p.result.Accepted {
			continue
		}

		sellerLocation, ok := sellerLocations[p.listing.SellerID]
		if !ok {
			var err error
			sellerLocation, err = s.sellerLocation(ctx, p.listing.SellerID)
			if err != nil {
				return err
			}
			sellerLocations[p.listing.SellerID] = sellerLocation
		}

		breakdown, err := s.pricing.Resolve(ctx, pricing.FeeInput{
			Category:       p.listing.FeeCategory,
			Amount:         p.result.BuyerPay,
			SellerLocation: sellerLocation,
			BuyerLocation:  shipTo,
		})
		if err != nil {
			return err
		}
		if !breakdown.Valid {
			p.result.Accepted = false
			p.result.Reason = breakdown.Reason
			if err := inventory.Release(ctx, tx, p.listing.ID, p.cartLine.Quantity); err != nil {
				return err
			}
			continue
		}
		p.result.Fees = &breakdown
		p.result.BuyerPay = breakdown.TotalBuyerPay
	}
	return nil
}

func (s *service) sellerLocation(ctx context.Context, sellerID uuid.UUID) (types.Address, error) {
	seller, err := s.accounts.FindByID(ctx, sellerID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return types.Address{}, nil
		}
		return types.Address{}, err
	}
	return seller.Address, nil
}

func acceptedResults(results []*LineResult) []*LineResult {
	var accepted []*LineResult
	for _, res := range results {
		if res.Accepted {
			accepted = append(accepted, res)
		}
	}
	return accepted
}

// copyResults snapshots line results for the response, swapping each fee
// breakdown for its 2dp display form.
func copyResults(results []*LineResult) []LineResult {
	out := make([]LineResult, 0, len(results))
	for _, res := range results {
		cp := *res
		if res.Fees != nil {
			rounded := res.Fees.Rounded()
			cp.Fees = &rounded
		}
		out = append(out, cp)
	}
	return out
}

// validateShippingSellers aborts the whole call when a shipping entry names a
// seller absent from the surviving lines. No partial order may exist for a
// shipping mismatch.
func validateShippingSellers(shipping []ShippingRequest, accepted []*LineResult) error {
	if len(shipping) == 0 {
		return nil
	}
	sellers := map[uuid.UUID]struct{}{}
	for _, res := range accepted {
		sellers[res.SellerID] = struct{}{}
	}
	for _, req := range shipping {
		if _, ok := sellers[req.SellerID]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "shipping entry references a seller with no surviving line items").
				WithDetails(map[string]string{"sellerId": req.SellerID.String()})
		}
	}
	return nil
}

func sumTotals(accepted []*LineResult) Totals {
	totals := Totals{
		ListedPrice:    decimal.Zero,
		Discount:       decimal.Zero,
		BuyerPay:       decimal.Zero,
		PlatformMargin: decimal.Zero,
		Cashback:       decimal.Zero,
	}
	for _, res := range accepted {
		qty := decimal.NewFromInt(int64(res.Quantity))
		if res.Kind == enums.LineKindProduct {
			totals.ListedPrice = totals.ListedPrice.Add(res.UnitPrice.Mul(qty))
			totals.Discount = totals.Discount.Add(res.UnitPrice.Sub(res.PurchasePrice).Mul(qty))
		} else {
			totals.ListedPrice = totals.ListedPrice.Add(res.UnitPrice)
		}
		totals.BuyerPay = totals.BuyerPay.Add(res.BuyerPay)
		if res.Fees != nil {
			totals.PlatformMargin = totals.PlatformMargin.Add(res.Fees.PlatformMargin)
			totals.Cashback = totals.Cashback.Add(res.Fees.Cashback)
		}
	}
	return totals
}

// persistOrder writes the order aggregate: order row, payment, per-seller
// rollups, shipments, line items, and address snapshots. Returns the order,
// the created seller-order ids, and the pending gateway transaction id when
// the order is gateway-paid.
func (s *service) persistOrder(
	ctx context.Context,
	tx *gorm.DB,
	ordersRepo orders.Repository,
	buyer *models.Account,
	input Input,
	accepted []*LineResult,
	totals Totals,
) (*models.Order, []uuid.UUID, *uuid.UUID, error) {
	number, err := ordernum.NewOrderNumber()
	if err != nil {
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating order number")
	}

	order := &models.Order{
		OrderNumber:         number,
		BuyerID:             buyer.ID,
		TotalListedPrice:    totals.ListedPrice,
		TotalDiscount:       totals.Discount,
		TotalBuyerPay:       totals.BuyerPay,
		TotalPlatformMargin: totals.PlatformMargin,
		TotalCashback:       totals.Cashback,
		PaymentMethod:       input.PaymentMethod,
	}
	if err := ordersRepo.CreateOrder(ctx, order); err != nil {
		return nil, nil, nil, err
	}

	if input.PaymentMethod == enums.PaymentMethodWallet {
		txn, err := s.wallet.Debit(ctx, tx, buyer.ID, order.ID, input.SubAccountID, totals.BuyerPay)
		if err != nil {
			// rolling back removes the just-created order row
			return nil, nil, nil, err
		}
		if err := ordersRepo.AttachWalletTransaction(ctx, order.ID, txn.ID); err != nil {
			return nil, nil, nil, err
		}
	}

	shippingBySeller := make(map[uuid.UUID]ShippingRequest, len(input.Shipping))
	for _, req := range input.Shipping {
		shippingBySeller[req.SellerID] = req
	}

	bySeller := map[uuid.UUID][]*LineResult{}
	sellerIDs := []uuid.UUID{}
	for _, res := range accepted {
		if _, seen := bySeller[res.SellerID]; !seen {
			sellerIDs = append(sellerIDs, res.SellerID)
		}
		bySeller[res.SellerID] = append(bySeller[res.SellerID], res)
	}

	sellerOrderIDs := make([]uuid.UUID, 0, len(sellerIDs))
	for _, sellerID := range sellerIDs {
		sellerLines := bySeller[sellerID]

		sellerNumber, err := ordernum.NewSellerOrderNumber()
		if err != nil {
			return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating seller order number")
		}
		gross := decimal.Zero
		net := decimal.Zero
		for _, res := range sellerLines {
			gross = gross.Add(res.BuyerPay)
			if res.Fees != nil {
				net = net.Add(res.Fees.SellerPayout)
			} else {
				net = net.Add(res.BuyerPay)
			}
		}
		sellerOrder := &models.SellerOrder{
			OrderID:     order.ID,
			SellerID:    sellerID,
			OrderNumber: sellerNumber,
			GrossAmount: gross,
			NetAmount:   net,
		}
		if err := ordersRepo.CreateSellerOrder(ctx, sellerOrder); err != nil {
			return nil, nil, nil, err
		}
		sellerOrderIDs = append(sellerOrderIDs, sellerOrder.ID)

		var shipmentID *uuid.UUID
		if req, ok := shippingBySeller[sellerID]; ok {
			shipment := &models.Shipment{
				OrderID:       order.ID,
				SellerID:      sellerID,
				Charge:        req.Charge,
				ScheduledFrom: req.ScheduledFrom,
				ScheduledTo:   req.ScheduledTo,
				Status:        enums.ShipmentStatusPending,
			}
			if err := ordersRepo.CreateShipment(ctx, shipment); err != nil {
				return nil, nil, nil, err
			}
			shipmentID = &shipment.ID
		}

		items := make([]models.OrderLineItem, 0, len(sellerLines))
		for _, res := range sellerLines {
			item := models.OrderLineItem{
				OrderID:       order.ID,
				SellerOrderID: sellerOrder.ID,
				ShipmentID:    shipmentID,
				SellerID:      sellerID,
				Kind:          res.Kind,
				ListingID:     res.ListingID,
				ServiceID:     res.ServiceID,
				Title:         res.Title,
				Quantity:      res.Quantity,
				UnitPrice:     res.UnitPrice,
				PurchasePrice: res.PurchasePrice,
				BuyerPay:      res.BuyerPay,
				Status:        res.Status,
			}
			if res.Fees != nil {
				if encoded, err := json.Marshal(res.Fees.Rounded()); err == nil {
					item.FeeBreakdown = encoded
				}
			}
			items = append(items, item)
		}
		if err := ordersRepo.CreateLineItems(ctx, items); err != nil {
			return nil, nil, nil, err
		}
	}

	addresses := []struct {
		kind    enums.OrderAddressKind
		address types.Address
	}{
		{enums.OrderAddressKindBilling, input.BillingAddress},
		{enums.OrderAddressKindShipping, input.ShippingAddress},
	}
	for _, entry := range addresses {
		if entry.address.IsZero() {
			continue
		}
		record := &models.OrderAddress{OrderID: order.ID, Kind: entry.kind, Address: entry.address}
		if err := ordersRepo.CreateAddress(ctx, record); err != nil {
			return nil, nil, nil, err
		}
	}

	var pendingTxnID *uuid.UUID
	if input.PaymentMethod != enums.PaymentMethodWallet {
		pending := &models.PaymentTransaction{
			OrderID: order.ID,
			Amount:  totals.BuyerPay,
			Status:  enums.PaymentStatusPending,
		}
		if err := ordersRepo.CreatePaymentTransaction(ctx, pending); err != nil {
			return nil, nil, nil, err
		}
		if err := ordersRepo.AttachGatewayTransaction(ctx, order.ID, pending.ID); err != nil {
			return nil, nil, nil, err
		}
		pendingTxnID = &pending.ID
	}

	return order, sellerOrderIDs, pendingTxnID, nil
}

// emitOrderCreated queues the order-created event; a failed emit is logged
// and never fails checkout.
func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order, accepted []*LineResult, sellerOrderIDs []uuid.UUID) {
	if s.outbox == nil {
		return
	}
	sellerSet := map[uuid.UUID]struct{}{}
	sellerIDs := []uuid.UUID{}
	for _, res := range accepted {
		if _, ok := sellerSet[res.SellerID]; !ok {
			sellerSet[res.SellerID] = struct{}{}
			sellerIDs = append(sellerIDs, res.SellerID)
		}
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderCreatedEvent{
			OrderID:        order.ID,
			BuyerID:        order.BuyerID,
			SellerIDs:      sellerIDs,
			SellerOrderIDs: sellerOrderIDs,
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "emitting order created event failed")
	}
}
