package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/order"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// ==================== Inputs ====================

// PriceInput is a monetary amount as received from the boundary
type PriceInput struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"required,currency"`
}

// Price converts the input into a Price value object
func (p PriceInput) Price() valueobject.Price {
	return valueobject.Price{Amount: p.Amount, Currency: valueobject.Currency(p.Currency)}
}

// AddonInput is an addon attached to a requested line item
type AddonInput struct {
	AddonID   uuid.UUID       `json:"addon_id" binding:"required"`
	Name      string          `json:"name" binding:"required,min=1,max=255"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice PriceInput      `json:"unit_price" binding:"required"`
}

// LineInput is one requested line item. The unit price is what the cashier
// asked to charge; the engine resolves it against the catalog and flags
// mismatches instead of rejecting them.
type LineInput struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	VariationID *uuid.UUID      `json:"variation_id"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   PriceInput      `json:"unit_price" binding:"required"`
	Addons      []AddonInput    `json:"addons" binding:"omitempty,dive"`
}

// CreateOrderRequest creates a pre-bill or a direct bill depending on the
// operation it is submitted to.
type CreateOrderRequest struct {
	AreaID            uuid.UUID       `json:"area_id" binding:"required"`
	ClientID          *uuid.UUID      `json:"client_id"`
	Lines             []LineInput     `json:"lines" binding:"required,min=1,dive"`
	Coupons           []string        `json:"coupons"`
	Tip               *PriceInput     `json:"tip"`
	Shipping          *PriceInput     `json:"shipping"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	PaymentDeadlineAt *time.Time      `json:"payment_deadline_at"`
	HouseCosted       bool            `json:"house_costed"`
	Notes             string          `json:"notes"`
}

// ReduceLineInput removes or reduces an existing line item. A nil quantity
// removes the whole line.
type ReduceLineInput struct {
	LineID   uuid.UUID        `json:"line_id" binding:"required"`
	Quantity *decimal.Decimal `json:"quantity"`
}

// EditOrderRequest adds and removes line items on an open order
type EditOrderRequest struct {
	Added   []LineInput       `json:"added" binding:"omitempty,dive"`
	Deleted []ReduceLineInput `json:"deleted" binding:"omitempty,dive"`
}

// PaymentInput is one received payment line
type PaymentInput struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"required,currency"`
	Method   string          `json:"method" binding:"required,oneof=CASH TRANSFER CARD CREDIT_POINTS"`
}

// RegisterPaymentRequest settles (or partially pays) an order
type RegisterPaymentRequest struct {
	Payments          []PaymentInput `json:"registered_payments" binding:"omitempty,dive"`
	PrepaidPaymentIDs []uuid.UUID    `json:"prepaid_payment_ids"`
	AmountReturned    *PriceInput    `json:"amount_returned"`
	IsPartialPay      bool           `json:"is_partial_pay"`
	Coupons           []string       `json:"coupons"`
}

// CancelOrderRequest cancels an open (or same-cycle billed) order
type CancelOrderRequest struct {
	Notes string `json:"notes"`
}

// TransformToBillRequest converts a pre-bill into a bill
type TransformToBillRequest struct {
	Shipping          *PriceInput `json:"shipping"`
	PaymentDeadlineAt *time.Time  `json:"payment_deadline_at"`
}

// ==================== Responses ====================

// PriceResponse is a monetary amount in a response body
type PriceResponse struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func toPriceResponse(p valueobject.Price) PriceResponse {
	return PriceResponse{Amount: p.Amount, Currency: string(p.Currency)}
}

func toPriceResponsePtr(p *valueobject.Price) *PriceResponse {
	if p == nil {
		return nil
	}
	r := toPriceResponse(*p)
	return &r
}

// AddonResponse is an addon line in a response body
type AddonResponse struct {
	AddonID   uuid.UUID       `json:"addon_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice PriceResponse   `json:"unit_price"`
}

// LineResponse is a line item in a response body
type LineResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	VariationID   *uuid.UUID      `json:"variation_id,omitempty"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     PriceResponse   `json:"unit_price"`
	TotalPrice    PriceResponse   `json:"total_price"`
	ModifiedPrice bool            `json:"modified_price"`
	Status        string          `json:"status"`
	Addons        []AddonResponse `json:"addons,omitempty"`
}

// OrderResponse is the full order receipt in a response body
type OrderResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Status             string          `json:"status"`
	IsPreReceipt       bool            `json:"is_pre_receipt"`
	OperationNumber    *int            `json:"operation_number,omitempty"`
	PreOperationNumber *int            `json:"pre_operation_number,omitempty"`
	ClientID           *uuid.UUID      `json:"client_id,omitempty"`
	AreaID             uuid.UUID       `json:"area_id"`
	EconomicCycleID    uuid.UUID       `json:"economic_cycle_id"`
	Lines              []LineResponse  `json:"lines"`
	TotalToPay         []PriceResponse `json:"total_to_pay"`
	Tip                *PriceResponse  `json:"tip,omitempty"`
	Shipping           *PriceResponse  `json:"shipping,omitempty"`
	CouponDiscount     *PriceResponse  `json:"coupon_discount,omitempty"`
	AmountReturned     *PriceResponse  `json:"amount_returned,omitempty"`
	RegisteredAt       time.Time       `json:"registered_at"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	ClosedDate         *time.Time      `json:"closed_date,omitempty"`
	PaymentDeadlineAt  *time.Time      `json:"payment_deadline_at,omitempty"`
	Notes              string          `json:"notes,omitempty"`
}

// ToOrderResponse maps the aggregate into its response body
func ToOrderResponse(o *order.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:                 o.ID,
		Status:             o.Status.String(),
		IsPreReceipt:       o.IsPreReceipt,
		OperationNumber:    o.OperationNumber,
		PreOperationNumber: o.PreOperationNumber,
		ClientID:           o.ClientID,
		AreaID:             o.AreaID,
		EconomicCycleID:    o.EconomicCycleID,
		Tip:                toPriceResponsePtr(o.TipPrice),
		Shipping:           toPriceResponsePtr(o.ShippingPrice),
		CouponDiscount:     toPriceResponsePtr(o.CouponDiscountPrice),
		AmountReturned:     toPriceResponsePtr(o.AmountReturned),
		RegisteredAt:       o.RegisteredAt,
		PaidAt:             o.PaidAt,
		ClosedDate:         o.ClosedDate,
		PaymentDeadlineAt:  o.PaymentDeadlineAt,
		Notes:              o.Notes,
	}
	for _, line := range o.Lines {
		lr := LineResponse{
			ID:            line.ID,
			ProductID:     line.ProductID,
			VariationID:   line.VariationID,
			Name:          line.Name,
			Quantity:      line.Quantity,
			UnitPrice:     toPriceResponse(line.UnitPrice),
			TotalPrice:    toPriceResponse(line.TotalPrice),
			ModifiedPrice: line.ModifiedPrice,
			Status:        string(line.Status),
		}
		for _, a := range line.Addons {
			lr.Addons = append(lr.Addons, AddonResponse{
				AddonID:   a.AddonID,
				Name:      a.Name,
				Quantity:  a.Quantity,
				UnitPrice: toPriceResponse(a.UnitPrice),
			})
		}
		resp.Lines = append(resp.Lines, lr)
	}
	for _, t := range o.Totals() {
		resp.TotalToPay = append(resp.TotalToPay, toPriceResponse(t))
	}
	return resp
}
