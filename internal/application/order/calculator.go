package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// Breakdown is the authoritative per-currency money picture of an order.
// Totals are never force-merged into one currency.
type Breakdown struct {
	Subtotals  []valueobject.Price
	TotalToPay []valueobject.Price
}

// TotalCalculator recomputes the authoritative totals of an order from the
// snapshot in the transaction cache. It must be re-invoked after every
// structural change (line add/remove, price override, shipping/tip/coupon
// change) before the transaction commits: a stale total is a bug.
type TotalCalculator struct {
	cache TransactionCache
}

// NewTotalCalculator creates a total calculator over the transaction cache
func NewTotalCalculator(cache TransactionCache) *TotalCalculator {
	return &TotalCalculator{cache: cache}
}

// Recompute derives subtotal and total-to-pay per currency:
//
//	total(C) = subtotal(C)
//	         - discountPercent% of subtotal(C)
//	         + commissionPercent% of subtotal(C)
//	         - coupon discount in C
//	         + tip in C
//	         + shipping in C
//
// All steps truncate to money precision; totals are floored at zero.
func (c *TotalCalculator) Recompute(ctx context.Context, businessID uuid.UUID, transactionID string) (*Breakdown, error) {
	snap, err := c.cache.Get(ctx, businessID, transactionID)
	if err != nil {
		return nil, err
	}
	return computeBreakdown(snap), nil
}

func computeBreakdown(snap *OrderSnapshot) *Breakdown {
	order := make([]valueobject.Currency, 0, 2)
	subtotals := make(map[valueobject.Currency]decimal.Decimal)

	add := func(currency valueobject.Currency) {
		if _, ok := subtotals[currency]; !ok {
			subtotals[currency] = decimal.Zero
			order = append(order, currency)
		}
	}

	for _, line := range snap.Lines {
		add(line.Currency)
		subtotals[line.Currency] = valueobject.Add(subtotals[line.Currency], line.TotalAmount, valueobject.MoneyPrecision)
	}
	if snap.Tip != nil {
		add(snap.Tip.Currency)
	}
	if snap.Shipping != nil {
		add(snap.Shipping.Currency)
	}

	b := &Breakdown{}
	for _, currency := range order {
		subtotal := subtotals[currency]
		b.Subtotals = append(b.Subtotals, valueobject.Price{Amount: subtotal, Currency: currency})

		total := subtotal
		if !snap.DiscountPercent.IsZero() {
			total = valueobject.Subtract(total, percentOf(subtotal, snap.DiscountPercent), valueobject.MoneyPrecision)
		}
		if !snap.CommissionPercent.IsZero() {
			total = valueobject.Add(total, percentOf(subtotal, snap.CommissionPercent), valueobject.MoneyPrecision)
		}
		for _, d := range snap.CouponDiscounts {
			if d.Currency == currency {
				total = valueobject.Subtract(total, d.Amount, valueobject.MoneyPrecision)
			}
		}
		if snap.Tip != nil && snap.Tip.Currency == currency {
			total = valueobject.Add(total, snap.Tip.Amount, valueobject.MoneyPrecision)
		}
		if snap.Shipping != nil && snap.Shipping.Currency == currency {
			total = valueobject.Add(total, snap.Shipping.Amount, valueobject.MoneyPrecision)
		}
		if total.IsNegative() {
			total = decimal.Zero
		}
		b.TotalToPay = append(b.TotalToPay, valueobject.Price{Amount: total, Currency: currency})
	}
	return b
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100)).Truncate(valueobject.MoneyPrecision)
}
