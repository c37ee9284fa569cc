package business

import (
	"strings"

	"github.com/google/uuid"

	"github.com/salepoint/backend/internal/domain/shared"
)

// AreaType distinguishes point-of-sale areas from stock areas
type AreaType string

const (
	AreaSale  AreaType = "SALE"
	AreaStock AreaType = "STOCK"
)

// Area is a physical or logical zone of the business. Sale areas take orders
// and point to the stock area their products are drawn from.
type Area struct {
	shared.BusinessAggregateRoot
	Name     string   `gorm:"type:varchar(100);not null"`
	Type     AreaType `gorm:"type:varchar(10);not null"`
	IsActive bool     `gorm:"not null;default:true"`
	// GiveChange controls whether the area returns change on cash payments;
	// when false any overpayment is kept as a tip.
	GiveChange bool `gorm:"not null;default:true"`
	// StockAreaID is the stock area sales here substract from; nil for stock
	// areas themselves.
	StockAreaID *uuid.UUID `gorm:"type:uuid"`
	// AllowProductsMultiprice lets the same product carry prices in several
	// currencies within this area.
	AllowProductsMultiprice bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Area) TableName() string {
	return "areas"
}

// NewSaleArea creates an active sale area wired to a stock area
func NewSaleArea(businessID uuid.UUID, name string, stockAreaID *uuid.UUID) (*Area, error) {
	a, err := newArea(businessID, name, AreaSale)
	if err != nil {
		return nil, err
	}
	a.StockAreaID = stockAreaID
	return a, nil
}

// NewStockArea creates an active stock area
func NewStockArea(businessID uuid.UUID, name string) (*Area, error) {
	return newArea(businessID, name, AreaStock)
}

func newArea(businessID uuid.UUID, name string, areaType AreaType) (*Area, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_AREA_NAME", "Name is required")
	}
	return &Area{
		BusinessAggregateRoot:   shared.NewBusinessAggregateRoot(businessID),
		Name:                    name,
		Type:                    areaType,
		IsActive:                true,
		GiveChange:              true,
		AllowProductsMultiprice: true,
	}, nil
}

// EnsureUsableForSale verifies the area can take a new order
func (a *Area) EnsureUsableForSale() error {
	if a.Type != AreaSale {
		return shared.NewValidationError("AREA_NOT_SALE", "Area is not a sale area")
	}
	if !a.IsActive {
		return shared.NewDomainError("AREA_NOT_ACTIVE", "Area is not active")
	}
	return nil
}
