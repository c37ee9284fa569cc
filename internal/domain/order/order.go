package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// Status represents the lifecycle status of an order receipt
type Status string

const (
	// StatusCreated is a pre-bill: no payment obligation, no stock reserved
	StatusCreated Status = "CREATED"
	// StatusPaymentPending is a bill that owes money
	StatusPaymentPending Status = "PAYMENT_PENDING"
	// StatusBilled is paid in full
	StatusBilled Status = "BILLED"
	// StatusCancelled is terminal; mutually exclusive with REFUNDED
	StatusCancelled Status = "CANCELLED"
	// StatusRefunded is terminal; reachable from BILLED or PAYMENT_PENDING
	StatusRefunded Status = "REFUNDED"
	// StatusOverdue is PAYMENT_PENDING past its deadline, set by a background sweep
	StatusOverdue Status = "OVERDUE"
)

// IsValid checks if the status is a known order status
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusPaymentPending, StatusBilled, StatusCancelled, StatusRefunded, StatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusCreated:
		// Pre-bills never settle directly; TransformToBill reserves the
		// deferred stock and assigns the operation number first.
		return target == StatusPaymentPending || target == StatusCancelled
	case StatusPaymentPending:
		return target == StatusBilled || target == StatusCancelled || target == StatusRefunded || target == StatusOverdue
	case StatusOverdue:
		return target == StatusBilled || target == StatusCancelled || target == StatusRefunded
	case StatusBilled:
		// Cancellation from BILLED is additionally restricted to the same
		// economic cycle; that rule needs cycle context and lives on the aggregate.
		return target == StatusRefunded || target == StatusCancelled
	case StatusCancelled, StatusRefunded:
		return false
	}
	return false
}

// OperationNumberScope selects how invoice operation numbers are sequenced.
// Both behaviors exist in the field; the choice is business configuration.
type OperationNumberScope string

const (
	// ScopeCalendarYear numbers bills consecutively per business per calendar year
	ScopeCalendarYear OperationNumberScope = "BY_CALENDAR_YEAR"
	// ScopeEconomicCycle restarts numbering for every economic cycle
	ScopeEconomicCycle OperationNumberScope = "BY_ECONOMIC_CYCLE"
)

// DispatchStatus values relevant to order cancellation rules
const DispatchAccepted = "ACCEPTED"

// OrderTotal is one per-currency component of the authoritative total-to-pay.
// An order's line items may span multiple currencies; totals are never merged
// into a single currency.
type OrderTotal struct {
	shared.BaseEntity
	OrderID uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount  decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Currency valueobject.Currency `gorm:"type:varchar(3);not null"`
}

// TableName returns the table name for GORM
func (OrderTotal) TableName() string {
	return "order_totals"
}

// Price returns the total as a Price value object
func (t OrderTotal) Price() valueobject.Price {
	return valueobject.Price{Amount: t.Amount, Currency: t.Currency}
}

// Order is the aggregate root for an order receipt: the durable, auditable
// financial record produced from a cart of selected products.
type Order struct {
	shared.BusinessAggregateRoot
	Status       Status `gorm:"type:varchar(20);not null;index"`
	IsPreReceipt bool   `gorm:"not null;default:false"`
	Origin       string `gorm:"type:varchar(20);not null;default:'POS'"`
	HouseCosted  bool   `gorm:"not null;default:false"`

	// Exactly one of these is set, depending on IsPreReceipt
	OperationNumber    *int `gorm:"index"`
	PreOperationNumber *int `gorm:"index"`

	ClientID        *uuid.UUID `gorm:"type:uuid;index"`
	AreaID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	EconomicCycleID uuid.UUID  `gorm:"type:uuid;not null;index"`
	DispatchStatus  *string    `gorm:"type:varchar(20)"`

	DiscountPercent   decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	CommissionPercent decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`

	TipPrice            *valueobject.Price `gorm:"embedded;embeddedPrefix:tip_"`
	ShippingPrice       *valueobject.Price `gorm:"embedded;embeddedPrefix:shipping_"`
	CouponDiscountPrice *valueobject.Price `gorm:"embedded;embeddedPrefix:coupon_discount_"`
	AmountReturned      *valueobject.Price `gorm:"embedded;embeddedPrefix:amount_returned_"`

	Lines            []SelledProduct   `gorm:"foreignKey:OrderID;references:ID"`
	TotalToPay       []OrderTotal      `gorm:"foreignKey:OrderID;references:ID"`
	CurrencyPayments []CurrencyPayment `gorm:"foreignKey:OrderID;references:ID"`
	PartialPayments  []PartialPayment  `gorm:"foreignKey:OrderID;references:ID"`

	Notes string `gorm:"type:text"`

	RegisteredAt      time.Time  `gorm:"not null"`
	PaidAt            *time.Time `gorm:"index"`
	ClosedDate        *time.Time
	PaymentDeadlineAt *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a new order aggregate. Pre-receipts start in CREATED with a
// preOperationNumber; direct bills start in PAYMENT_PENDING with an
// operationNumber.
func NewOrder(businessID, areaID, cycleID uuid.UUID, clientID *uuid.UUID, isPreReceipt bool, sequenceNumber int) (*Order, error) {
	if areaID == uuid.Nil {
		return nil, ErrAreaNotFound
	}
	if cycleID == uuid.Nil {
		return nil, ErrNoActiveEconomicCycle
	}
	if sequenceNumber <= 0 {
		return nil, shared.NewValidationError("INVALID_SEQUENCE", "Operation number must be positive")
	}

	o := &Order{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		IsPreReceipt:          isPreReceipt,
		Origin:                "POS",
		ClientID:              clientID,
		AreaID:                areaID,
		EconomicCycleID:       cycleID,
		DiscountPercent:       decimal.Zero,
		CommissionPercent:     decimal.Zero,
		Lines:                 make([]SelledProduct, 0),
		TotalToPay:            make([]OrderTotal, 0),
		RegisteredAt:          time.Now(),
	}

	if isPreReceipt {
		o.Status = StatusCreated
		n := sequenceNumber
		o.PreOperationNumber = &n
	} else {
		o.Status = StatusPaymentPending
		n := sequenceNumber
		o.OperationNumber = &n
	}

	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// AddLine appends a line item to the order
func (o *Order) AddLine(line SelledProduct) error {
	if o.IsClosed() {
		return ErrOrderClosed
	}
	line.OrderID = o.ID
	o.Lines = append(o.Lines, line)
	o.UpdatedAt = time.Now()
	return nil
}

// RemoveLine removes an entire line item; returns the removed line so the
// caller can restore its stock.
func (o *Order) RemoveLine(lineID uuid.UUID) (*SelledProduct, error) {
	if o.IsClosed() {
		return nil, ErrOrderClosed
	}
	for idx := range o.Lines {
		if o.Lines[idx].ID == lineID {
			removed := o.Lines[idx]
			o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
			o.UpdatedAt = time.Now()
			return &removed, nil
		}
	}
	return nil, shared.ErrNotFound
}

// ReduceLine lowers the quantity of a line item; dropping to zero removes it.
// Addon sub-quantities are reconciled proportionally by the caller.
func (o *Order) ReduceLine(lineID uuid.UUID, by decimal.Decimal) (*SelledProduct, error) {
	if o.IsClosed() {
		return nil, ErrOrderClosed
	}
	if by.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Reduction must be positive")
	}
	for idx := range o.Lines {
		if o.Lines[idx].ID != lineID {
			continue
		}
		if o.Lines[idx].Quantity.LessThanOrEqual(by) {
			return o.RemoveLine(lineID)
		}
		if err := o.Lines[idx].Reduce(by); err != nil {
			return nil, err
		}
		o.UpdatedAt = time.Now()
		return &o.Lines[idx], nil
	}
	return nil, shared.ErrNotFound
}

// GetLine returns a line item by ID
func (o *Order) GetLine(lineID uuid.UUID) *SelledProduct {
	for idx := range o.Lines {
		if o.Lines[idx].ID == lineID {
			return &o.Lines[idx]
		}
	}
	return nil
}

// SetTip records the tip as its own Price instance
func (o *Order) SetTip(p valueobject.Price) {
	o.TipPrice = &p
	o.UpdatedAt = time.Now()
}

// SetShipping records the shipping price as its own Price instance
func (o *Order) SetShipping(p valueobject.Price) {
	o.ShippingPrice = &p
	o.UpdatedAt = time.Now()
}

// SetCouponDiscount records the coupon discount as its own Price instance
func (o *Order) SetCouponDiscount(p valueobject.Price) {
	o.CouponDiscountPrice = &p
	o.UpdatedAt = time.Now()
}

// ClearCouponDiscount drops any previously applied coupon discount. Coupons
// are not additive across payment attempts; each attempt starts clean.
func (o *Order) ClearCouponDiscount() {
	o.CouponDiscountPrice = nil
	o.UpdatedAt = time.Now()
}

// SetTotals replaces the authoritative per-currency total-to-pay. Totals are
// only ever produced by the total calculator, never hand-edited.
func (o *Order) SetTotals(totals []valueobject.Price) {
	o.TotalToPay = o.TotalToPay[:0]
	for _, t := range totals {
		o.TotalToPay = append(o.TotalToPay, OrderTotal{
			BaseEntity: shared.NewBaseEntity(),
			OrderID:    o.ID,
			Amount:     t.Amount,
			Currency:   t.Currency,
		})
	}
	o.UpdatedAt = time.Now()
}

// Totals returns the total-to-pay as Price values
func (o *Order) Totals() []valueobject.Price {
	out := make([]valueobject.Price, 0, len(o.TotalToPay))
	for _, t := range o.TotalToPay {
		out = append(out, t.Price())
	}
	return out
}

// IsClosed reports whether the order no longer accepts structural edits
func (o *Order) IsClosed() bool {
	return o.Status == StatusCancelled || o.Status == StatusBilled || o.Status == StatusRefunded
}

// IsTerminal reports whether the order reached a terminal state
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCancelled || o.Status == StatusRefunded
}

// EnsurePayable returns the specific state-conflict error for payment attempts
// against orders that cannot accept payments.
func (o *Order) EnsurePayable() error {
	if o.IsPreReceipt {
		return ErrPreReceiptNotPayable
	}
	switch o.Status {
	case StatusBilled:
		return ErrOrderAlreadyBilled
	case StatusCancelled:
		return ErrOrderCancelled
	case StatusRefunded:
		return ErrOrderRefunded
	}
	return nil
}

// RegisterPartialPayment attaches a partial payment; the order keeps owing
func (o *Order) RegisterPartialPayment(p PartialPayment) error {
	if err := o.EnsurePayable(); err != nil {
		return err
	}
	p.OrderID = o.ID
	o.PartialPayments = append(o.PartialPayments, p)
	o.UpdatedAt = time.Now()
	o.AddDomainEvent(NewPartialPaymentRegisteredEvent(o, p.Amount, p.Currency))
	return nil
}

// MarkBilled settles the order: records the received payments, the change
// given back, and moves the order to BILLED.
func (o *Order) MarkBilled(payments []CurrencyPayment, amountReturned *valueobject.Price) error {
	if err := o.EnsurePayable(); err != nil {
		return err
	}
	if !o.Status.CanTransitionTo(StatusBilled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot bill order in %s status", o.Status))
	}

	now := time.Now()
	for i := range payments {
		payments[i].OrderID = o.ID
	}
	o.CurrencyPayments = append(o.CurrencyPayments, payments...)
	o.AmountReturned = amountReturned
	o.Status = StatusBilled
	o.PaidAt = &now
	o.ClosedDate = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderBilledEvent(o))
	return nil
}

// Cancel moves the order to CANCELLED. Cancelling a BILLED order is only
// allowed while its economic cycle is still the active one, and never once an
// associated dispatch was accepted.
func (o *Order) Cancel(notes string, sameEconomicCycle bool) error {
	if o.Status == StatusCancelled || o.Status == StatusRefunded {
		return ErrOrderClosed
	}
	if o.Status == StatusBilled && !sameEconomicCycle {
		return shared.NewDomainError("ORDER_FROM_PREVIOUS_CYCLE", "Billed orders from a previous economic cycle cannot be cancelled")
	}
	if o.DispatchStatus != nil && *o.DispatchStatus == DispatchAccepted {
		return shared.NewDomainError("DISPATCH_ACCEPTED", "Orders with an accepted dispatch cannot be cancelled")
	}

	now := time.Now()
	o.Status = StatusCancelled
	if notes != "" {
		o.Notes = notes
	}
	o.ClosedDate = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCancelledEvent(o))
	return nil
}

// Refund moves the order to REFUNDED. Only BILLED and PAYMENT_PENDING (with
// partial payments, checked by the caller) orders can be refunded.
func (o *Order) Refund() error {
	if o.Status != StatusBilled && o.Status != StatusPaymentPending && o.Status != StatusOverdue {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = StatusRefunded
	o.ClosedDate = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderRefundedEvent(o))
	return nil
}

// TransformToBill converts a pre-receipt into a bill: it takes the deferred
// operation number and starts owing money. Stock reservation is performed by
// the caller in the same transaction.
func (o *Order) TransformToBill(operationNumber int, shipping *valueobject.Price, paymentDeadline *time.Time) error {
	if !o.IsPreReceipt {
		return shared.NewDomainError("NOT_PRE_RECEIPT", "Only pre-receipts can be transformed into bills")
	}
	if o.Status != StatusCreated {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot transform order in %s status", o.Status))
	}
	if operationNumber <= 0 {
		return shared.NewValidationError("INVALID_SEQUENCE", "Operation number must be positive")
	}

	now := time.Now()
	o.IsPreReceipt = false
	o.OperationNumber = &operationNumber
	o.PreOperationNumber = nil
	o.Status = StatusPaymentPending
	if shipping != nil {
		o.ShippingPrice = shipping
	}
	o.PaymentDeadlineAt = paymentDeadline
	o.UpdatedAt = now

	o.AddDomainEvent(NewPreBillTransformedEvent(o))
	return nil
}

// MarkOverdue flags a payment-pending order whose deadline passed. Invoked by
// the background sweep, never by user-facing operations.
func (o *Order) MarkOverdue(asOf time.Time) error {
	if o.Status != StatusPaymentPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark order in %s status as overdue", o.Status))
	}
	if o.PaymentDeadlineAt == nil || asOf.Before(*o.PaymentDeadlineAt) {
		return shared.NewDomainError("NOT_OVERDUE", "Order payment deadline has not passed")
	}
	o.Status = StatusOverdue
	o.UpdatedAt = time.Now()
	return nil
}

// PaidTotal returns the sum of all registered full payments grouped per currency
func (o *Order) PaidTotal() []valueobject.Price {
	return sumPerCurrency(o.CurrencyPayments, func(p CurrencyPayment) (decimal.Decimal, valueobject.Currency) {
		return p.Amount, p.Currency
	})
}

// PartialPaidTotal returns the sum of partial payments grouped per currency
func (o *Order) PartialPaidTotal() []valueobject.Price {
	return sumPerCurrency(o.PartialPayments, func(p PartialPayment) (decimal.Decimal, valueobject.Currency) {
		return p.Amount, p.Currency
	})
}

func sumPerCurrency[T any](items []T, extract func(T) (decimal.Decimal, valueobject.Currency)) []valueobject.Price {
	index := make(map[valueobject.Currency]int)
	out := make([]valueobject.Price, 0, 2)
	for _, item := range items {
		amount, currency := extract(item)
		if i, ok := index[currency]; ok {
			out[i].Amount = out[i].Amount.Add(amount)
			continue
		}
		index[currency] = len(out)
		out = append(out, valueobject.Price{Amount: amount, Currency: currency})
	}
	return out
}
