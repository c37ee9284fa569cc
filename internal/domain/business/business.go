package business

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/order"
	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// AvailableCurrency is one configured currency of a business with its exchange
// rate against the main currency.
type AvailableCurrency struct {
	shared.BaseEntity
	BusinessID uuid.UUID            `gorm:"type:uuid;not null;index:idx_business_currency,unique"`
	Currency   valueobject.Currency `gorm:"type:varchar(3);not null;index:idx_business_currency,unique"`
	Rate       decimal.Decimal      `gorm:"type:decimal(18,6);not null"`
	IsMain     bool                 `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (AvailableCurrency) TableName() string {
	return "available_currencies"
}

// Business is the root configuration of one point of sale: its currencies,
// settlement policy and numbering scope.
type Business struct {
	shared.BaseAggregateRoot
	Name         string               `gorm:"type:varchar(200);not null"`
	Slug         string               `gorm:"type:varchar(100);not null;uniqueIndex"`
	MainCurrency valueobject.Currency `gorm:"type:varchar(3);not null"`

	Currencies []AvailableCurrency `gorm:"foreignKey:BusinessID"`

	// OperationNumberScope decides whether bill numbers reset per calendar
	// year or per economic cycle.
	OperationNumberScope order.OperationNumberScope `gorm:"type:varchar(30);not null;default:'BY_CALENDAR_YEAR'"`
	// AllowNegativeStock lets sales proceed when disponibility would go below
	// zero.
	AllowNegativeStock bool `gorm:"not null;default:false"`
	// SeparateTipEntries records tips as their own ledger entries instead of
	// folding them into the sale deposit.
	SeparateTipEntries bool `gorm:"not null;default:true"`

	IsActive bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Business) TableName() string {
	return "businesses"
}

// NewBusiness creates a business with its main currency configured at rate 1
func NewBusiness(name, slug string, mainCurrency valueobject.Currency) (*Business, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_BUSINESS_NAME", "Name is required")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, shared.NewValidationError("INVALID_BUSINESS_SLUG", "Slug is required")
	}
	if mainCurrency == "" {
		return nil, shared.NewValidationError("INVALID_MAIN_CURRENCY", "Main currency is required")
	}

	b := &Business{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		Name:                 name,
		Slug:                 slug,
		MainCurrency:         mainCurrency,
		OperationNumberScope: order.ScopeCalendarYear,
		SeparateTipEntries:   true,
		IsActive:             true,
	}
	b.Currencies = []AvailableCurrency{{
		BaseEntity: shared.NewBaseEntity(),
		BusinessID: b.ID,
		Currency:   mainCurrency,
		Rate:       decimal.NewFromInt(1),
		IsMain:     true,
	}}
	return b, nil
}

// SetCurrencyRate adds or updates a configured currency. The main currency
// rate is pinned at 1.
func (b *Business) SetCurrencyRate(currency valueobject.Currency, rate decimal.Decimal) error {
	if currency == b.MainCurrency {
		return shared.NewDomainError("MAIN_CURRENCY_RATE_FIXED", "Main currency rate is always 1")
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_EXCHANGE_RATE", "Exchange rate must be positive")
	}
	for i := range b.Currencies {
		if b.Currencies[i].Currency == currency {
			b.Currencies[i].Rate = rate
			b.Currencies[i].UpdatedAt = time.Now()
			return nil
		}
	}
	b.Currencies = append(b.Currencies, AvailableCurrency{
		BaseEntity: shared.NewBaseEntity(),
		BusinessID: b.ID,
		Currency:   currency,
		Rate:       rate,
	})
	return nil
}

// ExchangeRateTable builds the rate table used for currency conversion
func (b *Business) ExchangeRateTable() *valueobject.ExchangeRateTable {
	rates := make([]valueobject.ExchangeRate, 0, len(b.Currencies))
	for _, c := range b.Currencies {
		rates = append(rates, valueobject.ExchangeRate{Currency: c.Currency, Rate: c.Rate})
	}
	return valueobject.NewExchangeRateTable(rates)
}

// HasCurrency reports whether the business accepts payments in the currency
func (b *Business) HasCurrency(currency valueobject.Currency) bool {
	for _, c := range b.Currencies {
		if c.Currency == currency {
			return true
		}
	}
	return false
}
