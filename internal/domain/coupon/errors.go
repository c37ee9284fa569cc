package coupon

import "github.com/salepoint/backend/internal/domain/shared"

var (
	ErrCouponNotFound    = shared.NewValidationError("COUPON_NOT_FOUND", "Coupon code does not exist")
	ErrCouponNotActive   = shared.NewDomainError("COUPON_NOT_ACTIVE", "Coupon is not active")
	ErrCouponExpired     = shared.NewDomainError("COUPON_EXPIRED", "Coupon has expired")
	ErrCouponUsageLimit  = shared.NewDomainError("COUPON_USAGE_LIMIT", "Coupon usage limit reached")
	ErrCouponClientLimit = shared.NewDomainError("COUPON_CLIENT_LIMIT", "Client already redeemed this coupon the maximum number of times")
)
