package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/google/uuid"
	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// DiscountType is how a coupon reduces the order total
type DiscountType string

const (
	DiscountPercent     DiscountType = "PERCENT"
	DiscountFixedAmount DiscountType = "FIXED_PRODUCT"
)

// Coupon is a discount code a client can apply at billing time
type Coupon struct {
	shared.BusinessAggregateRoot
	Code         string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_coupon_business_code"`
	Description  string          `gorm:"type:text"`
	DiscountType DiscountType    `gorm:"type:varchar(20);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	// Currency applies only to fixed-amount coupons; percent coupons discount
	// in whatever currency the order total is expressed in.
	Currency *valueobject.Currency `gorm:"type:varchar(3)"`

	UsageLimit     *int `gorm:"type:int"` // nil means unlimited
	UsageCount     int  `gorm:"not null;default:0"`
	LimitPerClient *int `gorm:"type:int"`

	StartAt  *time.Time
	ExpireAt *time.Time
	IsActive bool `gorm:"not null;default:true"`

	// Products restricts eligibility; empty means the coupon applies to the
	// whole order.
	Products []CouponProduct `gorm:"foreignKey:CouponID"`
}

// CouponProduct restricts a coupon to a specific catalog product
type CouponProduct struct {
	shared.BaseEntity
	CouponID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (CouponProduct) TableName() string {
	return "coupon_products"
}

// TableName returns the table name for GORM
func (Coupon) TableName() string {
	return "coupons"
}

// NewPercentCoupon creates a percentage discount coupon
func NewPercentCoupon(businessID uuid.UUID, code string, percent decimal.Decimal) (*Coupon, error) {
	if percent.LessThanOrEqual(decimal.Zero) || percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewValidationError("INVALID_COUPON_PERCENT", "Percent must be between 0 and 100")
	}
	c, err := newCoupon(businessID, code)
	if err != nil {
		return nil, err
	}
	c.DiscountType = DiscountPercent
	c.Amount = percent
	return c, nil
}

// NewFixedCoupon creates a fixed-amount discount coupon in one currency
func NewFixedCoupon(businessID uuid.UUID, code string, amount decimal.Decimal, currency valueobject.Currency) (*Coupon, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_COUPON_AMOUNT", "Amount must be positive")
	}
	c, err := newCoupon(businessID, code)
	if err != nil {
		return nil, err
	}
	c.DiscountType = DiscountFixedAmount
	c.Amount = amount
	c.Currency = &currency
	return c, nil
}

func newCoupon(businessID uuid.UUID, code string) (*Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewValidationError("INVALID_COUPON_CODE", "Code is required")
	}
	return &Coupon{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		Code:                  code,
		IsActive:              true,
	}, nil
}

// CanBeUsed checks activity, validity window and both usage caps. clientUsage
// is how many times this client has already redeemed the coupon.
func (c *Coupon) CanBeUsed(now time.Time, clientUsage int) error {
	if !c.IsActive {
		return ErrCouponNotActive
	}
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return ErrCouponNotActive
	}
	if c.ExpireAt != nil && now.After(*c.ExpireAt) {
		return ErrCouponExpired
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return ErrCouponUsageLimit
	}
	if c.LimitPerClient != nil && clientUsage >= *c.LimitPerClient {
		return ErrCouponClientLimit
	}
	return nil
}

// RestrictToProduct limits the coupon to one more product
func (c *Coupon) RestrictToProduct(productID uuid.UUID) {
	c.Products = append(c.Products, CouponProduct{
		BaseEntity: shared.NewBaseEntity(),
		CouponID:   c.ID,
		ProductID:  productID,
	})
}

// AppliesTo reports whether the coupon is eligible for a product. A coupon
// with no product restrictions applies to everything.
func (c *Coupon) AppliesTo(productID uuid.UUID) bool {
	if len(c.Products) == 0 {
		return true
	}
	for _, p := range c.Products {
		if p.ProductID == productID {
			return true
		}
	}
	return false
}

// RegisterUse consumes one redemption
func (c *Coupon) RegisterUse() {
	c.UsageCount++
	c.UpdatedAt = time.Now()
}

// ReleaseUse returns a redemption consumed by an earlier payment attempt
func (c *Coupon) ReleaseUse() {
	if c.UsageCount > 0 {
		c.UsageCount--
	}
	c.UpdatedAt = time.Now()
}

// DiscountFor computes the discount this coupon yields against a per-currency
// total. Fixed coupons only apply to totals in their own currency; the caller
// decides which total wins when several currencies are present.
func (c *Coupon) DiscountFor(total valueobject.Price, precision int32) (valueobject.Price, bool) {
	switch c.DiscountType {
	case DiscountPercent:
		return total.ApplyPercent(c.Amount, precision), true
	case DiscountFixedAmount:
		if c.Currency == nil || *c.Currency != total.Currency {
			return valueobject.Price{}, false
		}
		discount := valueobject.Price{Amount: c.Amount, Currency: total.Currency}
		if exceeds, _ := discount.GreaterThanOrEqual(total); exceeds {
			return total, true
		}
		return discount.Truncate(precision), true
	}
	return valueobject.Price{}, false
}
