package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// ProductType drives how a product behaves at sale time
type ProductType string

const (
	// ProductTypeStock is sold and substracted from disponibility
	ProductTypeStock ProductType = "STOCK"
	// ProductTypeMenu is prepared in a production area; its raw materials are
	// consumed by production, not by the sale itself
	ProductTypeMenu ProductType = "MENU"
	// ProductTypeService is sellable but never touches stock
	ProductTypeService ProductType = "SERVICE"
	// ProductTypeRaw is an ingredient, never directly sellable
	ProductTypeRaw ProductType = "RAW"
	// ProductTypeAddon complements another line item
	ProductTypeAddon ProductType = "ADDON"
)

// IsSellable reports whether the type can appear as an order line
func (t ProductType) IsSellable() bool {
	switch t {
	case ProductTypeStock, ProductTypeMenu, ProductTypeService, ProductTypeAddon:
		return true
	}
	return false
}

// TracksStock reports whether selling the product substracts disponibility
func (t ProductType) TracksStock() bool {
	return t == ProductTypeStock
}

// ProductPrice is one catalog price of a product under a price system. A
// product may carry prices in several currencies at once.
type ProductPrice struct {
	shared.BaseEntity
	ProductID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	VariationID   *uuid.UUID           `gorm:"type:uuid;index"`
	PriceSystemID *uuid.UUID           `gorm:"type:uuid;index"`
	Amount        decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Currency      valueobject.Currency `gorm:"type:varchar(3);not null"`
	IsMain        bool                 `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ProductPrice) TableName() string {
	return "product_prices"
}

// Price returns the catalog price as a value object
func (p ProductPrice) Price() valueobject.Price {
	return valueobject.Price{Amount: p.Amount, Currency: p.Currency}
}

// Variation is a sellable variant of a product (size, flavor). Variations may
// override the product price; stock is tracked per (product, variation).
type Variation struct {
	shared.BaseEntity
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(100);not null"`
	IsActive  bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Variation) TableName() string {
	return "product_variations"
}

// Product is a catalog item of the business
type Product struct {
	shared.BusinessAggregateRoot
	Name        string      `gorm:"type:varchar(200);not null"`
	Type        ProductType `gorm:"type:varchar(10);not null"`
	IsActive    bool        `gorm:"not null;default:true"`
	Description string      `gorm:"type:text"`

	// ProductionAreaID routes MENU lines to a kitchen or production display
	ProductionAreaID *uuid.UUID `gorm:"type:uuid"`

	Prices     []ProductPrice `gorm:"foreignKey:ProductID"`
	Variations []Variation    `gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates an active catalog product
func NewProduct(businessID uuid.UUID, name string, productType ProductType) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_PRODUCT_NAME", "Name is required")
	}
	return &Product{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		Name:                  name,
		Type:                  productType,
		IsActive:              true,
	}, nil
}

// AddPrice attaches a catalog price
func (p *Product) AddPrice(amount decimal.Decimal, currency valueobject.Currency, variationID, priceSystemID *uuid.UUID, isMain bool) error {
	if amount.IsNegative() {
		return shared.NewValidationError("INVALID_PRODUCT_PRICE", "Price cannot be negative")
	}
	p.Prices = append(p.Prices, ProductPrice{
		BaseEntity:    shared.NewBaseEntity(),
		ProductID:     p.ID,
		VariationID:   variationID,
		PriceSystemID: priceSystemID,
		Amount:        amount,
		Currency:      currency,
		IsMain:        isMain,
	})
	return nil
}

// EnsureSellable verifies the product can appear on an order
func (p *Product) EnsureSellable() error {
	if !p.IsActive {
		return shared.NewValidationError("PRODUCT_NOT_ACTIVE", "Product is not active")
	}
	if !p.Type.IsSellable() {
		return shared.NewValidationError("PRODUCT_NOT_SELLABLE", "Product type cannot be sold")
	}
	return nil
}

// PricesFor returns the catalog prices applying to a variation, falling back
// to the product-level prices when the variation has none of its own.
func (p *Product) PricesFor(variationID *uuid.UUID) []ProductPrice {
	if variationID != nil {
		var own []ProductPrice
		for _, pr := range p.Prices {
			if pr.VariationID != nil && *pr.VariationID == *variationID {
				own = append(own, pr)
			}
		}
		if len(own) > 0 {
			return own
		}
	}
	var base []ProductPrice
	for _, pr := range p.Prices {
		if pr.VariationID == nil {
			base = append(base, pr)
		}
	}
	return base
}
