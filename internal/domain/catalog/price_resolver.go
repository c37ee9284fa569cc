package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// PriceResolution is the outcome of matching a requested unit price against
// the catalog.
type PriceResolution struct {
	// BasePrice is the undiscounted catalog price the line is anchored to; it
	// falls back to the requested price when nothing in the catalog matches.
	BasePrice valueobject.Price
	// Modified is true when the charged price does not correspond to any
	// catalog price within the rounding tolerance. Modified lines are accepted
	// and flagged, never rejected.
	Modified bool
}

// DefaultPriceTolerance absorbs truncation noise when comparing a requested
// price against catalog prices converted across currencies.
var DefaultPriceTolerance = decimal.NewFromFloat(0.01)

// ResolvePrice matches the price a cashier asked to charge against the
// product's catalog prices. Matching order: exact price in the same currency,
// then any same-currency catalog price (charged amount differs, so the line is
// flagged), then cross-currency conversion of each catalog price within the
// tolerance.
func ResolvePrice(product *Product, variationID *uuid.UUID, requested valueobject.Price, rates *valueobject.ExchangeRateTable, tolerance decimal.Decimal) PriceResolution {
	prices := product.PricesFor(variationID)

	for _, cp := range prices {
		if cp.Currency == requested.Currency && cp.Amount.Sub(requested.Amount).Abs().LessThanOrEqual(tolerance) {
			return PriceResolution{BasePrice: cp.Price(), Modified: false}
		}
	}

	for _, cp := range prices {
		if cp.Currency != requested.Currency {
			continue
		}
		return PriceResolution{BasePrice: cp.Price(), Modified: true}
	}

	if rates != nil {
		for _, cp := range prices {
			converted, err := valueobject.Exchange(cp.Price(), requested.Currency, rates, valueobject.MoneyPrecision)
			if err != nil {
				continue
			}
			if converted.Amount.Sub(requested.Amount).Abs().LessThanOrEqual(tolerance) {
				return PriceResolution{BasePrice: converted, Modified: false}
			}
		}
	}

	return PriceResolution{BasePrice: requested, Modified: true}
}
