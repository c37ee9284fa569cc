package order

import (
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// Event types emitted by the order aggregate
const (
	EventOrderCreated             = "order.created"
	EventOrderBilled              = "order.billed"
	EventOrderCancelled           = "order.cancelled"
	EventOrderRefunded            = "order.refunded"
	EventPartialPaymentRegistered = "order.partial_payment_registered"
	EventPreBillTransformed       = "order.pre_bill_transformed"
)

const aggregateType = "Order"

// OrderCreatedEvent is emitted when a pre-bill or bill is created
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	IsPreReceipt bool `json:"is_pre_receipt"`
	LineCount    int  `json:"line_count"`
}

// NewOrderCreatedEvent creates an OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderCreated, aggregateType, o.ID, o.BusinessID),
		IsPreReceipt:    o.IsPreReceipt,
		LineCount:       len(o.Lines),
	}
}

// OrderBilledEvent is emitted when the order is settled in full
type OrderBilledEvent struct {
	shared.BaseDomainEvent
	OperationNumber int `json:"operation_number"`
}

// NewOrderBilledEvent creates an OrderBilledEvent
func NewOrderBilledEvent(o *Order) *OrderBilledEvent {
	opNumber := 0
	if o.OperationNumber != nil {
		opNumber = *o.OperationNumber
	}
	return &OrderBilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderBilled, aggregateType, o.ID, o.BusinessID),
		OperationNumber: opNumber,
	}
}

// OrderCancelledEvent is emitted when the order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	WasBilled bool `json:"was_billed"`
}

// NewOrderCancelledEvent creates an OrderCancelledEvent
func NewOrderCancelledEvent(o *Order) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderCancelled, aggregateType, o.ID, o.BusinessID),
		WasBilled:       o.PaidAt != nil,
	}
}

// OrderRefundedEvent is emitted when the order is refunded
type OrderRefundedEvent struct {
	shared.BaseDomainEvent
}

// NewOrderRefundedEvent creates an OrderRefundedEvent
func NewOrderRefundedEvent(o *Order) *OrderRefundedEvent {
	return &OrderRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderRefunded, aggregateType, o.ID, o.BusinessID),
	}
}

// PartialPaymentRegisteredEvent is emitted per accepted partial payment
type PartialPaymentRegisteredEvent struct {
	shared.BaseDomainEvent
	Amount   decimal.Decimal      `json:"amount"`
	Currency valueobject.Currency `json:"currency"`
}

// NewPartialPaymentRegisteredEvent creates a PartialPaymentRegisteredEvent
func NewPartialPaymentRegisteredEvent(o *Order, amount decimal.Decimal, currency valueobject.Currency) *PartialPaymentRegisteredEvent {
	return &PartialPaymentRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPartialPaymentRegistered, aggregateType, o.ID, o.BusinessID),
		Amount:          amount,
		Currency:        currency,
	}
}

// PreBillTransformedEvent is emitted when a pre-receipt becomes a bill
type PreBillTransformedEvent struct {
	shared.BaseDomainEvent
	OperationNumber int `json:"operation_number"`
}

// NewPreBillTransformedEvent creates a PreBillTransformedEvent
func NewPreBillTransformedEvent(o *Order) *PreBillTransformedEvent {
	opNumber := 0
	if o.OperationNumber != nil {
		opNumber = *o.OperationNumber
	}
	return &PreBillTransformedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPreBillTransformed, aggregateType, o.ID, o.BusinessID),
		OperationNumber: opNumber,
	}
}
