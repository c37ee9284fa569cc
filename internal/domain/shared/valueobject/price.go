package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	CUP Currency = "CUP"
	MLC Currency = "MLC"
)

// MoneyPrecision is the number of decimal digits kept for final monetary amounts.
const MoneyPrecision int32 = 2

// Price is a value object representing a monetary amount in a given currency.
// Every monetary fact (tip, shipping, coupon discount, line total) owns its own
// Price instance; prices are never shared between facts.
//
// All arithmetic truncates to the requested precision. Truncation, not
// rounding, is the platform-wide settlement policy: totals must never exceed
// the exact sum of their parts.
type Price struct {
	Amount   decimal.Decimal `json:"amount" gorm:"type:decimal(18,6);not null;default:0"`
	Currency Currency        `json:"currency" gorm:"type:varchar(3);not null"`
}

// NewPrice creates a new Price with the specified amount and currency
func NewPrice(amount decimal.Decimal, currency Currency) (Price, error) {
	if currency == "" {
		return Price{}, fmt.Errorf("currency cannot be empty")
	}
	return Price{Amount: amount, Currency: currency}, nil
}

// NewPriceFromFloat creates a Price from a float64 value
func NewPriceFromFloat(amount float64, currency Currency) Price {
	return Price{Amount: decimal.NewFromFloat(amount), Currency: currency}
}

// NewPriceFromString creates a Price from a string representation
func NewPriceFromString(amount string, currency Currency) (Price, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Price{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewPrice(d, currency)
}

// ZeroPrice returns a zero-value Price in the specified currency
func ZeroPrice(currency Currency) Price {
	return Price{Amount: decimal.Zero, Currency: currency}
}

// IsZero returns true if the amount is zero
func (p Price) IsZero() bool {
	return p.Amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (p Price) IsPositive() bool {
	return p.Amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (p Price) IsNegative() bool {
	return p.Amount.IsNegative()
}

// Add returns a new Price with the sum of both amounts, truncated to precision.
// Returns an error if currencies don't match.
func (p Price) Add(other Price, precision int32) (Price, error) {
	if p.Currency != other.Currency {
		return Price{}, fmt.Errorf("cannot add prices with different currencies: %s and %s", p.Currency, other.Currency)
	}
	return Price{Amount: p.Amount.Add(other.Amount).Truncate(precision), Currency: p.Currency}, nil
}

// MustAdd adds two Prices, panics if currencies don't match
func (p Price) MustAdd(other Price, precision int32) Price {
	result, err := p.Add(other, precision)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Price with the difference, truncated to precision.
// Returns an error if currencies don't match.
func (p Price) Subtract(other Price, precision int32) (Price, error) {
	if p.Currency != other.Currency {
		return Price{}, fmt.Errorf("cannot subtract prices with different currencies: %s and %s", p.Currency, other.Currency)
	}
	return Price{Amount: p.Amount.Sub(other.Amount).Truncate(precision), Currency: p.Currency}, nil
}

// Multiply returns a new Price multiplied by the given factor, truncated to precision
func (p Price) Multiply(factor decimal.Decimal, precision int32) Price {
	return Price{Amount: p.Amount.Mul(factor).Truncate(precision), Currency: p.Currency}
}

// MultiplyByInt returns a new Price multiplied by an integer quantity
func (p Price) MultiplyByInt(factor int64, precision int32) Price {
	return p.Multiply(decimal.NewFromInt(factor), precision)
}

// ApplyPercent returns the given percentage of this Price, truncated to precision
func (p Price) ApplyPercent(percent decimal.Decimal, precision int32) Price {
	return Price{
		Amount:   p.Amount.Mul(percent).Div(decimal.NewFromInt(100)).Truncate(precision),
		Currency: p.Currency,
	}
}

// Negate returns a new Price with the sign reversed
func (p Price) Negate() Price {
	return Price{Amount: p.Amount.Neg(), Currency: p.Currency}
}

// Truncate returns a new Price truncated to the specified decimal places
func (p Price) Truncate(places int32) Price {
	return Price{Amount: p.Amount.Truncate(places), Currency: p.Currency}
}

// Equals returns true if both Prices have the same amount and currency.
// Amounts are compared through decimal, never through float conversion.
func (p Price) Equals(other Price) bool {
	return p.Currency == other.Currency && p.Amount.Equal(other.Amount)
}

// LessThan returns true if this Price is less than the other.
// Returns an error if currencies don't match.
func (p Price) LessThan(other Price) (bool, error) {
	if p.Currency != other.Currency {
		return false, fmt.Errorf("cannot compare prices with different currencies: %s and %s", p.Currency, other.Currency)
	}
	return p.Amount.LessThan(other.Amount), nil
}

// GreaterThanOrEqual returns true if this Price is greater than or equal to the other
func (p Price) GreaterThanOrEqual(other Price) (bool, error) {
	if p.Currency != other.Currency {
		return false, fmt.Errorf("cannot compare prices with different currencies: %s and %s", p.Currency, other.Currency)
	}
	return p.Amount.GreaterThanOrEqual(other.Amount), nil
}

// String returns a string representation of the Price
func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.Amount.StringFixed(MoneyPrecision), p.Currency)
}

// Truncated arithmetic over raw decimals. These back every total computation
// in the platform; callers pick the precision (2 for money, higher for
// intermediate steps).

// Add returns a+b truncated to precision decimal digits
func Add(a, b decimal.Decimal, precision int32) decimal.Decimal {
	return a.Add(b).Truncate(precision)
}

// Subtract returns a-b truncated to precision decimal digits
func Subtract(a, b decimal.Decimal, precision int32) decimal.Decimal {
	return a.Sub(b).Truncate(precision)
}

// Multiply returns a*b truncated to precision decimal digits
func Multiply(a, b decimal.Decimal, precision int32) decimal.Decimal {
	return a.Mul(b).Truncate(precision)
}
