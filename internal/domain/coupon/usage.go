package coupon

import (
	"github.com/google/uuid"

	"github.com/salepoint/backend/internal/domain/shared"
)

// OrderReceiptCoupon links a redeemed coupon to the order that consumed it
type OrderReceiptCoupon struct {
	shared.BaseEntity
	BusinessID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CouponID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	OrderID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ClientID   *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (OrderReceiptCoupon) TableName() string {
	return "order_receipt_coupons"
}

// NewOrderReceiptCoupon records a redemption against an order
func NewOrderReceiptCoupon(businessID, couponID, orderID uuid.UUID, clientID *uuid.UUID) *OrderReceiptCoupon {
	return &OrderReceiptCoupon{
		BaseEntity: shared.NewBaseEntity(),
		BusinessID: businessID,
		CouponID:   couponID,
		OrderID:    orderID,
		ClientID:   clientID,
	}
}
