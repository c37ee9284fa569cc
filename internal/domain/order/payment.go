package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// PaymentMethod is the way money was received
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodTransfer     PaymentMethod = "TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodCreditPoints PaymentMethod = "CREDIT_POINTS"
)

// IsValid checks whether the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard, PaymentMethodCreditPoints:
		return true
	}
	return false
}

// CurrencyPayment is one received payment line of a fully settled order
type CurrencyPayment struct {
	shared.BaseEntity
	OrderID  uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount   decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Currency valueobject.Currency  `gorm:"type:varchar(3);not null"`
	Method   PaymentMethod         `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (CurrencyPayment) TableName() string {
	return "currency_payments"
}

// NewCurrencyPayment creates a received payment line
func NewCurrencyPayment(amount decimal.Decimal, currency valueobject.Currency, method PaymentMethod) (CurrencyPayment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return CurrencyPayment{}, shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return CurrencyPayment{}, shared.NewValidationError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}
	return CurrencyPayment{
		BaseEntity: shared.NewBaseEntity(),
		Amount:     amount,
		Currency:   currency,
		Method:     method,
	}, nil
}

// PartialPayment is a payment applied to an order that does not fully satisfy
// its total-to-pay. The order stays PAYMENT_PENDING.
type PartialPayment struct {
	shared.BaseEntity
	OrderID         uuid.UUID            `gorm:"type:uuid;not null;index"`
	BusinessID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	EconomicCycleID uuid.UUID            `gorm:"type:uuid;not null;index"`
	AreaID          uuid.UUID            `gorm:"type:uuid;not null"`
	Amount          decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Currency        valueobject.Currency `gorm:"type:varchar(3);not null"`
	Method          PaymentMethod        `gorm:"type:varchar(20);not null"`

	CashRegisterOperationID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PartialPayment) TableName() string {
	return "partial_payments"
}

// NewPartialPayment creates a partial payment fact
func NewPartialPayment(businessID, cycleID, areaID uuid.UUID, amount decimal.Decimal, currency valueobject.Currency, method PaymentMethod) (PartialPayment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return PartialPayment{}, shared.NewValidationError("INVALID_AMOUNT", "Partial payment amount must be positive")
	}
	if !method.IsValid() {
		return PartialPayment{}, shared.NewValidationError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}
	return PartialPayment{
		BaseEntity:      shared.NewBaseEntity(),
		BusinessID:      businessID,
		EconomicCycleID: cycleID,
		AreaID:          areaID,
		Amount:          amount,
		Currency:        currency,
		Method:          method,
	}, nil
}

// PrepaidPaymentStatus is the lifecycle of money collected before being
// applied to any specific order.
type PrepaidPaymentStatus string

const (
	PrepaidStatusPaid     PrepaidPaymentStatus = "PAID"
	PrepaidStatusUsed     PrepaidPaymentStatus = "USED"
	PrepaidStatusRefunded PrepaidPaymentStatus = "REFUNDED"
)

// PrepaidPayment is a payment collected up front and consumed later by an
// order. Its lifecycle is independent of the consuming order.
type PrepaidPayment struct {
	shared.BusinessAggregateRoot
	ClientID *uuid.UUID           `gorm:"type:uuid;index"`
	Amount   decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Currency valueobject.Currency `gorm:"type:varchar(3);not null"`
	Method   PaymentMethod        `gorm:"type:varchar(20);not null"`
	Status   PrepaidPaymentStatus `gorm:"type:varchar(20);not null"`

	UsedOrderID *uuid.UUID `gorm:"type:uuid;index"`
	PaidAt      time.Time  `gorm:"not null"`
	ConsumedAt  *time.Time
}

// TableName returns the table name for GORM
func (PrepaidPayment) TableName() string {
	return "prepaid_payments"
}

// NewPrepaidPayment records money collected ahead of any order
func NewPrepaidPayment(businessID uuid.UUID, clientID *uuid.UUID, amount decimal.Decimal, currency valueobject.Currency, method PaymentMethod) (*PrepaidPayment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Prepaid amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}
	return &PrepaidPayment{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		ClientID:              clientID,
		Amount:                amount,
		Currency:              currency,
		Method:                method,
		Status:                PrepaidStatusPaid,
		PaidAt:                time.Now(),
	}, nil
}

// MarkUsed consumes the prepaid payment for the given order
func (p *PrepaidPayment) MarkUsed(orderID uuid.UUID) error {
	if p.Status != PrepaidStatusPaid {
		return shared.NewDomainError("PREPAID_NOT_AVAILABLE", "Prepaid payment was already used or refunded")
	}
	now := time.Now()
	p.Status = PrepaidStatusUsed
	p.UsedOrderID = &orderID
	p.ConsumedAt = &now
	p.UpdatedAt = now
	return nil
}

// MarkRefunded returns the prepaid payment to its owner
func (p *PrepaidPayment) MarkRefunded() error {
	if p.Status != PrepaidStatusPaid {
		return shared.NewDomainError("PREPAID_NOT_AVAILABLE", "Prepaid payment was already used or refunded")
	}
	now := time.Now()
	p.Status = PrepaidStatusRefunded
	p.ConsumedAt = &now
	p.UpdatedAt = now
	return nil
}

// Price returns the prepaid amount as a Price value object
func (p *PrepaidPayment) Price() valueobject.Price {
	return valueobject.Price{Amount: p.Amount, Currency: p.Currency}
}
