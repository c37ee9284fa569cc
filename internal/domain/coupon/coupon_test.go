package coupon

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

func TestCoupon_CanBeUsed(t *testing.T) {
	now := time.Now()

	t.Run("active coupon with no caps", func(t *testing.T) {
		c, err := NewPercentCoupon(uuid.New(), "welcome10", decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.Equal(t, "WELCOME10", c.Code)
		assert.NoError(t, c.CanBeUsed(now, 0))
	})

	t.Run("expired coupon", func(t *testing.T) {
		c, err := NewPercentCoupon(uuid.New(), "OLD", decimal.NewFromInt(10))
		require.NoError(t, err)
		past := now.Add(-time.Hour)
		c.ExpireAt = &past
		assert.ErrorIs(t, c.CanBeUsed(now, 0), ErrCouponExpired)
	})

	t.Run("not yet started", func(t *testing.T) {
		c, err := NewPercentCoupon(uuid.New(), "SOON", decimal.NewFromInt(10))
		require.NoError(t, err)
		future := now.Add(time.Hour)
		c.StartAt = &future
		assert.ErrorIs(t, c.CanBeUsed(now, 0), ErrCouponNotActive)
	})

	t.Run("global usage limit reached", func(t *testing.T) {
		c, err := NewPercentCoupon(uuid.New(), "CAPPED", decimal.NewFromInt(10))
		require.NoError(t, err)
		limit := 2
		c.UsageLimit = &limit
		c.RegisterUse()
		c.RegisterUse()
		assert.ErrorIs(t, c.CanBeUsed(now, 0), ErrCouponUsageLimit)
	})

	t.Run("per-client limit reached", func(t *testing.T) {
		c, err := NewPercentCoupon(uuid.New(), "ONCE", decimal.NewFromInt(10))
		require.NoError(t, err)
		limit := 1
		c.LimitPerClient = &limit
		assert.ErrorIs(t, c.CanBeUsed(now, 1), ErrCouponClientLimit)
	})
}

func TestCoupon_DiscountFor(t *testing.T) {
	t.Run("percent truncates, never rounds", func(t *testing.T) {
		c, err := NewPercentCoupon(uuid.New(), "TEN", decimal.NewFromInt(10))
		require.NoError(t, err)

		// 10% of 23.45 is 2.345, truncated to 2.34
		discount, ok := c.DiscountFor(valueobject.NewPriceFromFloat(23.45, valueobject.USD), valueobject.MoneyPrecision)
		require.True(t, ok)
		assert.Equal(t, "2.34", discount.Amount.StringFixed(2))
	})

	t.Run("fixed coupon only applies to its own currency", func(t *testing.T) {
		c, err := NewFixedCoupon(uuid.New(), "FIVE", decimal.NewFromInt(5), valueobject.USD)
		require.NoError(t, err)

		_, ok := c.DiscountFor(valueobject.NewPriceFromFloat(20, valueobject.EUR), valueobject.MoneyPrecision)
		assert.False(t, ok)

		discount, ok := c.DiscountFor(valueobject.NewPriceFromFloat(20, valueobject.USD), valueobject.MoneyPrecision)
		require.True(t, ok)
		assert.Equal(t, "5", discount.Amount.String())
	})

	t.Run("fixed coupon is capped at the total", func(t *testing.T) {
		c, err := NewFixedCoupon(uuid.New(), "BIG", decimal.NewFromInt(50), valueobject.USD)
		require.NoError(t, err)

		discount, ok := c.DiscountFor(valueobject.NewPriceFromFloat(20, valueobject.USD), valueobject.MoneyPrecision)
		require.True(t, ok)
		assert.True(t, discount.Equals(valueobject.NewPriceFromFloat(20, valueobject.USD)))
	})
}

func TestNewCoupon_Validation(t *testing.T) {
	_, err := NewPercentCoupon(uuid.New(), "", decimal.NewFromInt(10))
	assert.Error(t, err)

	_, err = NewPercentCoupon(uuid.New(), "X", decimal.NewFromInt(150))
	assert.Error(t, err)

	_, err = NewFixedCoupon(uuid.New(), "X", decimal.Zero, valueobject.USD)
	assert.Error(t, err)
}
