package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// LineStatus tracks whether a line item still needs production/preparation
type LineStatus string

const (
	// LineStatusReceived means the line is routed to a production area and pending
	LineStatusReceived LineStatus = "RECEIVED"
	// LineStatusCompleted means no preparation is required or it is done
	LineStatusCompleted LineStatus = "COMPLETED"
)

// SelledProduct is a line item of an order receipt. It snapshots the catalog
// product at sale time: later catalog changes never rewrite sold lines.
type SelledProduct struct {
	shared.BaseEntity
	OrderID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	VariationID *uuid.UUID `gorm:"type:uuid;index"`
	Name        string     `gorm:"type:varchar(255);not null"`

	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`

	UnitPrice     valueobject.Price `gorm:"embedded;embeddedPrefix:unit_"`
	TotalPrice    valueobject.Price `gorm:"embedded;embeddedPrefix:total_"`
	BaseUnitPrice valueobject.Price `gorm:"embedded;embeddedPrefix:base_unit_"`

	// ModifiedPrice is true when the charged price matches no catalog price
	// within rounding tolerance
	ModifiedPrice bool `gorm:"not null;default:false"`

	Status           LineStatus `gorm:"type:varchar(20);not null"`
	ProductionAreaID *uuid.UUID `gorm:"type:uuid"`

	Addons []SelledProductAddon `gorm:"foreignKey:SelledProductID;references:ID"`
}

// TableName returns the table name for GORM
func (SelledProduct) TableName() string {
	return "selled_products"
}

// SelledProductAddon is an addon attached to a line item, with its own
// quantity and price.
type SelledProductAddon struct {
	shared.BaseEntity
	SelledProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	AddonID         uuid.UUID `gorm:"type:uuid;not null"`
	Name            string    `gorm:"type:varchar(255);not null"`

	Quantity  decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	UnitPrice valueobject.Price `gorm:"embedded;embeddedPrefix:unit_"`
}

// TableName returns the table name for GORM
func (SelledProductAddon) TableName() string {
	return "selled_product_addons"
}

// Total returns the addon's total price
func (a SelledProductAddon) Total() valueobject.Price {
	return a.UnitPrice.Multiply(a.Quantity, valueobject.MoneyPrecision)
}

// NewSelledProduct creates a new line item and derives its total from
// quantity, unit price and addons.
func NewSelledProduct(productID uuid.UUID, variationID *uuid.UUID, name string, quantity decimal.Decimal, unitPrice, baseUnitPrice valueobject.Price, modifiedPrice bool, productionAreaID *uuid.UUID) (*SelledProduct, error) {
	if productID == uuid.Nil {
		return nil, ErrProductNotFound
	}
	if name == "" {
		return nil, shared.NewValidationError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.Amount.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PRICE", "Unit price cannot be negative")
	}

	status := LineStatusCompleted
	if productionAreaID != nil {
		status = LineStatusReceived
	}

	sp := &SelledProduct{
		BaseEntity:       shared.NewBaseEntity(),
		ProductID:        productID,
		VariationID:      variationID,
		Name:             name,
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		BaseUnitPrice:    baseUnitPrice,
		ModifiedPrice:    modifiedPrice,
		Status:           status,
		ProductionAreaID: productionAreaID,
		Addons:           make([]SelledProductAddon, 0),
	}
	sp.recalculateTotal()
	return sp, nil
}

// AddAddon attaches an addon and re-derives the line total
func (sp *SelledProduct) AddAddon(addonID uuid.UUID, name string, quantity decimal.Decimal, unitPrice valueobject.Price) error {
	if addonID == uuid.Nil {
		return ErrProductNotFound
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_QUANTITY", "Addon quantity must be positive")
	}
	if unitPrice.Currency != sp.UnitPrice.Currency {
		return shared.NewValidationError("ADDON_CURRENCY_MISMATCH", "Addon price currency must match the line currency")
	}

	sp.Addons = append(sp.Addons, SelledProductAddon{
		BaseEntity:      shared.NewBaseEntity(),
		SelledProductID: sp.ID,
		AddonID:         addonID,
		Name:            name,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
	})
	sp.recalculateTotal()
	sp.UpdatedAt = time.Now()
	return nil
}

// Reduce lowers the quantity and scales addon quantities proportionally, so
// stock reconciliation sees consistent parent and addon movements.
func (sp *SelledProduct) Reduce(by decimal.Decimal) error {
	if by.LessThanOrEqual(decimal.Zero) || by.GreaterThanOrEqual(sp.Quantity) {
		return shared.NewValidationError("INVALID_QUANTITY", "Reduction must be positive and below the current quantity")
	}

	ratio := sp.Quantity.Sub(by).Div(sp.Quantity)
	sp.Quantity = sp.Quantity.Sub(by)
	for i := range sp.Addons {
		sp.Addons[i].Quantity = sp.Addons[i].Quantity.Mul(ratio).Round(4)
	}
	sp.recalculateTotal()
	sp.UpdatedAt = time.Now()
	return nil
}

// MarkCompleted flags the line as no longer pending production
func (sp *SelledProduct) MarkCompleted() {
	sp.Status = LineStatusCompleted
	sp.UpdatedAt = time.Now()
}

// recalculateTotal derives the line total from quantity, unit price and addons
func (sp *SelledProduct) recalculateTotal() {
	total := sp.UnitPrice.Multiply(sp.Quantity, valueobject.MoneyPrecision)
	for _, a := range sp.Addons {
		total = total.MustAdd(a.Total(), valueobject.MoneyPrecision)
	}
	sp.TotalPrice = total
}

// StockMovement describes the (product, variation, quantity) effect this line
// has on stock, including addon sub-quantities.
type StockMovement struct {
	ProductID   uuid.UUID
	VariationID *uuid.UUID
	Quantity    decimal.Decimal
}

// StockMovements returns the movements needed to reserve (or restore) this
// line: the parent product plus each addon.
func (sp *SelledProduct) StockMovements() []StockMovement {
	out := make([]StockMovement, 0, 1+len(sp.Addons))
	out = append(out, StockMovement{ProductID: sp.ProductID, VariationID: sp.VariationID, Quantity: sp.Quantity})
	for _, a := range sp.Addons {
		out = append(out, StockMovement{ProductID: a.AddonID, Quantity: a.Quantity})
	}
	return out
}
