package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared"
)

// StockAreaProduct is the disponibility of one product in one stock area.
// Quantity may go negative when the business policy allows selling without
// stock on hand.
type StockAreaProduct struct {
	shared.BaseEntity
	BusinessID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_area_product,unique"`
	AreaID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_area_product,unique"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_area_product,unique"`
	VariationID *uuid.UUID      `gorm:"type:uuid;index:idx_stock_area_product,unique"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockAreaProduct) TableName() string {
	return "stock_area_products"
}

// NewStockAreaProduct creates an empty disponibility row
func NewStockAreaProduct(businessID, areaID, productID uuid.UUID, variationID *uuid.UUID) *StockAreaProduct {
	return &StockAreaProduct{
		BaseEntity:  shared.NewBaseEntity(),
		BusinessID:  businessID,
		AreaID:      areaID,
		ProductID:   productID,
		VariationID: variationID,
		Quantity:    decimal.Zero,
	}
}

// Substract removes quantity from disponibility. When allowNegative is false
// the operation fails instead of letting the balance drop below zero.
func (s *StockAreaProduct) Substract(quantity decimal.Decimal, allowNegative bool) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity to substract must be positive")
	}
	remaining := s.Quantity.Sub(quantity)
	if remaining.IsNegative() && !allowNegative {
		return NewInsufficientStockError(s.ProductID, s.Quantity, quantity)
	}
	s.Quantity = remaining
	return nil
}

// Restore puts quantity back into disponibility
func (s *StockAreaProduct) Restore(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity to restore must be positive")
	}
	s.Quantity = s.Quantity.Add(quantity)
	return nil
}
