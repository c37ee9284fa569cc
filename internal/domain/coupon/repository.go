package coupon

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists coupons and their redemptions
type Repository interface {
	// FindByCodes resolves coupon codes for a business; missing codes are
	// simply absent from the result
	FindByCodes(ctx context.Context, businessID uuid.UUID, codes []string) ([]*Coupon, error)
	// CountClientUsage counts redemptions of one coupon by one client
	CountClientUsage(ctx context.Context, businessID, couponID, clientID uuid.UUID) (int, error)
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*Coupon, error)
	Save(ctx context.Context, c *Coupon) error
	RecordRedemption(ctx context.Context, r *OrderReceiptCoupon) error
	// RedemptionsByOrder lists the redemptions an order has consumed so far
	RedemptionsByOrder(ctx context.Context, businessID, orderID uuid.UUID) ([]*OrderReceiptCoupon, error)
	// DeleteRedemptionsByOrder removes an order's redemption rows; usage
	// counters are reversed by the caller before re-applying
	DeleteRedemptionsByOrder(ctx context.Context, businessID, orderID uuid.UUID) error
}
