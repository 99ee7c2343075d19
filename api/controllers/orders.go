package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepost-io/tradepost-backend/api/middleware"
	"github.com/tradepost-io/tradepost-backend/api/responses"
	"github.com/tradepost-io/tradepost-backend/api/validators"
	"github.com/tradepost-io/tradepost-backend/internal/checkout"
	internalorders "github.com/tradepost-io/tradepost-backend/internal/orders"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost-io/tradepost-backend/pkg/errors"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
	"github.com/tradepost-io/tradepost-backend/pkg/types"
)

type addressPayload struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

func (a addressPayload) toAddress() types.Address {
	return types.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type shippingPayload struct {
	SellerID      uuid.UUID       `json:"seller_id" validate:"required"`
	Charge        decimal.Decimal `json:"charge"`
	ScheduledFrom *time.Time      `json:"scheduled_from,omitempty"`
	ScheduledTo   *time.Time      `json:"scheduled_to,omitempty"`
}

func toShippingRequests(payloads []shippingPayload) []checkout.ShippingRequest {
	if len(payloads) == 0 {
		return nil
	}
	requests := make([]checkout.ShippingRequest, 0, len(payloads))
	for _, p := range payloads {
		requests = append(requests, checkout.ShippingRequest{
			SellerID:      p.SellerID,
			Charge:        p.Charge,
			ScheduledFrom: p.ScheduledFrom,
			ScheduledTo:   p.ScheduledTo,
		})
	}
	return requests
}

type createOrderRequest struct {
	CartLineIDs     []uuid.UUID       `json:"cart_line_ids" validate:"required,min=1"`
	PaymentMethod   string            `json:"payment_method" validate:"required"`
	SubAccountID    *uuid.UUID        `json:"sub_account_id,omitempty"`
	BillingAddress  addressPayload    `json:"billing_address"`
	ShippingAddress addressPayload    `json:"shipping_address"`
	Shipping        []shippingPayload `json:"shipping,omitempty" validate:"omitempty,dive"`
}

// CreateOrder submits the named cart lines as one order for the calling buyer.
func CreateOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID := middleware.AccountIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account context missing"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Execute(r.Context(), buyerID, checkout.Input{
			CartLineIDs:     payload.CartLineIDs,
			PaymentMethod:   method,
			SubAccountID:    payload.SubAccountID,
			BillingAddress:  payload.BillingAddress.toAddress(),
			ShippingAddress: payload.ShippingAddress.toAddress(),
			Shipping:        toShippingRequests(payload.Shipping),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type quoteLinePayload struct {
	ListingID uuid.UUID       `json:"listing_id" validate:"required"`
	SellerID  uuid.UUID       `json:"seller_id" validate:"required"`
	Title     string          `json:"title" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Suggested bool            `json:"suggested"`
}

type createQuoteOrderRequest struct {
	QuoteID         uuid.UUID          `json:"quote_id" validate:"required"`
	Lines           []quoteLinePayload `json:"lines" validate:"required,min=1,dive"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	SubAccountID    *uuid.UUID         `json:"sub_account_id,omitempty"`
	BillingAddress  addressPayload     `json:"billing_address"`
	ShippingAddress addressPayload     `json:"shipping_address"`
	Shipping        []shippingPayload  `json:"shipping,omitempty" validate:"omitempty,dive"`
}

// CreateOrderFromQuote converts an accepted quote into an order at the
// negotiated prices.
func CreateOrderFromQuote(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID := middleware.AccountIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account context missing"))
			return
		}

		var payload createQuoteOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		lines := make([]checkout.QuoteLine, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, checkout.QuoteLine{
				ListingID: line.ListingID,
				SellerID:  line.SellerID,
				Title:     line.Title,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Suggested: line.Suggested,
			})
		}

		result, err := svc.ExecuteQuote(r.Context(), buyerID, checkout.QuoteInput{
			QuoteID:         payload.QuoteID,
			Lines:           lines,
			PaymentMethod:   method,
			SubAccountID:    payload.SubAccountID,
			BillingAddress:  payload.BillingAddress.toAddress(),
			ShippingAddress: payload.ShippingAddress.toAddress(),
			Shipping:        toShippingRequests(payload.Shipping),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// GetOrder returns one order after checking the caller owns it.
func GetOrder(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID := middleware.AccountIDFromContext(r.Context())
		if buyerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account context missing"))
			return
		}

		orderID, err := parseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.BuyerID != buyerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to account"))
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type transitionRequest struct {
	Status       string  `json:"status" validate:"required"`
	CancelReason *string `json:"cancel_reason,omitempty"`
}

type transitionResponse struct {
	LineItemID   uuid.UUID            `json:"line_item_id"`
	Status       enums.LineItemStatus `json:"status"`
	RefundIssued bool                 `json:"refund_issued"`
	RefundTxnID  *uuid.UUID           `json:"refund_transaction_id,omitempty"`
}

// TransitionLineItem moves one line item through the fulfillment state
// machine. Cancellation of wallet-paid items issues the refund here.
func TransitionLineItem(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		lineItemID, err := parseIDParam(r, "lineItemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next, err := enums.ParseLineItemStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line item status"))
			return
		}

		result, err := svc.TransitionLineItem(r.Context(), lineItemID, next, payload.CancelReason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transitionResponse{
			LineItemID:   result.Item.ID,
			Status:       result.Item.Status,
			RefundIssued: result.RefundIssued,
			RefundTxnID:  result.RefundTxnID,
		})
	}
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
