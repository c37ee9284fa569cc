package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCurrencyNotAvailable is returned when a currency has no configured
// exchange rate in the business's rate table.
type ErrCurrencyNotAvailable struct {
	Currency Currency
}

func (e *ErrCurrencyNotAvailable) Error() string {
	return fmt.Sprintf("currency %s is not available in the exchange rate table", e.Currency)
}

// ExchangeRate is one entry of a business's configured rate table: how many
// units of the main currency one unit of Currency is worth.
type ExchangeRate struct {
	Currency Currency
	Rate     decimal.Decimal
}

// ExchangeRateTable holds all configured rates for a business. The main
// currency must be present with rate 1.
type ExchangeRateTable struct {
	rates map[Currency]decimal.Decimal
}

// NewExchangeRateTable builds a rate table from the configured entries
func NewExchangeRateTable(rates []ExchangeRate) *ExchangeRateTable {
	m := make(map[Currency]decimal.Decimal, len(rates))
	for _, r := range rates {
		m[r.Currency] = r.Rate
	}
	return &ExchangeRateTable{rates: m}
}

// Rate returns the configured rate for a currency
func (t *ExchangeRateTable) Rate(currency Currency) (decimal.Decimal, bool) {
	r, ok := t.rates[currency]
	return r, ok
}

// Has reports whether a rate exists for the currency
func (t *ExchangeRateTable) Has(currency Currency) bool {
	_, ok := t.rates[currency]
	return ok
}

// Exchange converts a price into the target currency using the rate table,
// truncating the result to precision decimal digits. It fails with
// ErrCurrencyNotAvailable when either the source or the target currency has no
// configured rate.
func Exchange(price Price, target Currency, table *ExchangeRateTable, precision int32) (Price, error) {
	if price.Currency == target {
		return price.Truncate(precision), nil
	}

	srcRate, ok := table.Rate(price.Currency)
	if !ok {
		return Price{}, &ErrCurrencyNotAvailable{Currency: price.Currency}
	}
	tgtRate, ok := table.Rate(target)
	if !ok {
		return Price{}, &ErrCurrencyNotAvailable{Currency: target}
	}
	if tgtRate.IsZero() {
		return Price{}, &ErrCurrencyNotAvailable{Currency: target}
	}

	amount := price.Amount.Mul(srcRate).Div(tgtRate).Truncate(precision)
	return Price{Amount: amount, Currency: target}, nil
}
