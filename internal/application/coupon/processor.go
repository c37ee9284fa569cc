package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salepoint/backend/internal/domain/coupon"
	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// ProductTotal is one line's contribution to the eligible subtotal: the
// product it references and its already-derived total price.
type ProductTotal struct {
	ProductID uuid.UUID
	Total     valueobject.Price
}

// Result is the outcome of processing a list of coupon codes. Discounts are
// grouped per currency; when several coupons target the same currency the
// first one wins and the rest are ignored.
type Result struct {
	Applied   []*coupon.Coupon
	Discounts []valueobject.Price
}

// Processor validates coupon codes against usage limits, per-client history
// and product eligibility, and computes the resulting discount prices.
//
// The processor never mutates usage counters; incrementing them and recording
// client usage is the caller's job, under the caller's transaction, so a
// failed order never burns a redemption.
type Processor struct {
	logger *zap.Logger
}

// NewProcessor creates a coupon processor
func NewProcessor(logger *zap.Logger) *Processor {
	return &Processor{logger: logger}
}

// Process resolves and validates every code, then computes discounts against
// the eligible subset of line totals. Any invalid code fails the whole call,
// identifying the offending code.
func (p *Processor) Process(
	ctx context.Context,
	repo coupon.Repository,
	codes []string,
	lines []ProductTotal,
	businessID uuid.UUID,
	clientID *uuid.UUID,
) (*Result, error) {
	if len(codes) == 0 {
		return &Result{}, nil
	}

	normalized := make([]string, 0, len(codes))
	for _, c := range codes {
		normalized = append(normalized, strings.ToUpper(strings.TrimSpace(c)))
	}

	found, err := repo.FindByCodes(ctx, businessID, normalized)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]*coupon.Coupon, len(found))
	for _, c := range found {
		byCode[c.Code] = c
	}

	now := time.Now()
	result := &Result{}
	discounted := make(map[valueobject.Currency]bool)

	for _, code := range normalized {
		c, ok := byCode[code]
		if !ok {
			return nil, invalidCoupon(code, coupon.ErrCouponNotFound)
		}

		clientUsage := 0
		if clientID != nil {
			clientUsage, err = repo.CountClientUsage(ctx, businessID, c.ID, *clientID)
			if err != nil {
				return nil, err
			}
		}
		if err := c.CanBeUsed(now, clientUsage); err != nil {
			return nil, invalidCoupon(code, err)
		}

		for _, subtotal := range eligibleSubtotals(c, lines) {
			if discounted[subtotal.Currency] {
				p.logger.Debug("coupon skipped, currency already discounted",
					zap.String("code", code),
					zap.String("currency", string(subtotal.Currency)))
				continue
			}
			discount, ok := c.DiscountFor(subtotal, valueobject.MoneyPrecision)
			if !ok || !discount.IsPositive() {
				continue
			}
			discounted[subtotal.Currency] = true
			result.Discounts = append(result.Discounts, discount)
		}
		result.Applied = append(result.Applied, c)
	}

	return result, nil
}

// eligibleSubtotals groups the totals of lines the coupon applies to, per currency
func eligibleSubtotals(c *coupon.Coupon, lines []ProductTotal) []valueobject.Price {
	index := make(map[valueobject.Currency]int)
	out := make([]valueobject.Price, 0, 2)
	for _, line := range lines {
		if !c.AppliesTo(line.ProductID) {
			continue
		}
		if i, ok := index[line.Total.Currency]; ok {
			out[i] = out[i].MustAdd(line.Total, valueobject.MoneyPrecision)
			continue
		}
		index[line.Total.Currency] = len(out)
		out = append(out, line.Total)
	}
	return out
}

func invalidCoupon(code string, cause error) error {
	var derr *shared.DomainError
	if errors.As(cause, &derr) {
		return &shared.DomainError{
			Code:    derr.Code,
			Message: fmt.Sprintf("Coupon %s: %s", code, derr.Message),
			Kind:    derr.Kind,
		}
	}
	return shared.NewValidationError("INVALID_COUPON", fmt.Sprintf("Coupon %s is not valid", code))
}
