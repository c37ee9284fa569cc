package cashregister

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// OperationKind classifies a cash-register movement
type OperationKind string

const (
	KindDepositSale           OperationKind = "DEPOSIT_SALE"
	KindWithdrawSale          OperationKind = "WITHDRAW_SALE"
	KindDepositTip            OperationKind = "DEPOSIT_TIP"
	KindWithdrawShippingPrice OperationKind = "WITHDRAW_SHIPPING_PRICE"
	KindManualWithdraw        OperationKind = "MANUAL_WITHDRAW"
	KindWithdrawExchange      OperationKind = "WITHDRAW_EXCHANGE"
	KindManualDeposit         OperationKind = "MANUAL_DEPOSIT"
)

// IsDeposit reports whether this kind moves money into the register
func (k OperationKind) IsDeposit() bool {
	switch k {
	case KindDepositSale, KindDepositTip, KindManualDeposit:
		return true
	}
	return false
}

// Operation is one append-only ledger entry of cash-register movements. It is
// never mutated: refunds and cancellations create compensating entries instead
// of editing history.
type Operation struct {
	shared.BaseEntity
	BusinessID      uuid.UUID `gorm:"type:uuid;not null;index"`
	EconomicCycleID uuid.UUID `gorm:"type:uuid;not null;index"`
	AreaID          uuid.UUID `gorm:"type:uuid;not null;index"`

	Kind     OperationKind        `gorm:"type:varchar(30);not null"`
	Amount   decimal.Decimal      `gorm:"type:decimal(18,2);not null"` // signed: deposits positive, withdrawals negative
	Currency valueobject.Currency `gorm:"type:varchar(3);not null"`

	OrderID          *uuid.UUID `gorm:"type:uuid;index"`
	PartialPaymentID *uuid.UUID `gorm:"type:uuid"`
	PrepaidPaymentID *uuid.UUID `gorm:"type:uuid"`

	MadeBy       uuid.UUID `gorm:"type:uuid;not null"`
	Observations string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Operation) TableName() string {
	return "cash_register_operations"
}

// NewDeposit creates a positive ledger entry
func NewDeposit(businessID, cycleID, areaID, madeBy uuid.UUID, kind OperationKind, amount decimal.Decimal, currency valueobject.Currency) (*Operation, error) {
	if !kind.IsDeposit() {
		return nil, shared.NewValidationError("INVALID_OPERATION_KIND", "Kind is not a deposit")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Deposit amount must be positive")
	}
	return newOperation(businessID, cycleID, areaID, madeBy, kind, amount, currency), nil
}

// NewWithdraw creates a negative ledger entry; the amount argument is given
// positive and stored negated.
func NewWithdraw(businessID, cycleID, areaID, madeBy uuid.UUID, kind OperationKind, amount decimal.Decimal, currency valueobject.Currency) (*Operation, error) {
	if kind.IsDeposit() {
		return nil, shared.NewValidationError("INVALID_OPERATION_KIND", "Kind is not a withdrawal")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Withdrawal amount must be positive")
	}
	return newOperation(businessID, cycleID, areaID, madeBy, kind, amount.Neg(), currency), nil
}

func newOperation(businessID, cycleID, areaID, madeBy uuid.UUID, kind OperationKind, amount decimal.Decimal, currency valueobject.Currency) *Operation {
	return &Operation{
		BaseEntity:      shared.NewBaseEntity(),
		BusinessID:      businessID,
		EconomicCycleID: cycleID,
		AreaID:          areaID,
		Kind:            kind,
		Amount:          amount,
		Currency:        currency,
		MadeBy:          madeBy,
	}
}

// LinkOrder attaches the causing order
func (o *Operation) LinkOrder(orderID uuid.UUID) *Operation {
	o.OrderID = &orderID
	return o
}

// LinkPartialPayment attaches the causing partial payment
func (o *Operation) LinkPartialPayment(paymentID uuid.UUID) *Operation {
	o.PartialPaymentID = &paymentID
	return o
}

// LinkPrepaidPayment attaches the causing prepaid payment
func (o *Operation) LinkPrepaidPayment(paymentID uuid.UUID) *Operation {
	o.PrepaidPaymentID = &paymentID
	return o
}

// WithObservations attaches a free-form note
func (o *Operation) WithObservations(notes string) *Operation {
	o.Observations = notes
	return o
}

// Price returns the signed amount as a Price value object
func (o *Operation) Price() valueobject.Price {
	return valueobject.Price{Amount: o.Amount, Currency: o.Currency}
}
