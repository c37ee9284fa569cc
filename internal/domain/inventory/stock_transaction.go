package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared"
)

// TransactionKind classifies a stock movement
type TransactionKind string

const (
	TransactionOutSale   TransactionKind = "OUT_SALE"
	TransactionInRestore TransactionKind = "IN_RESTORE"
	TransactionInEntry   TransactionKind = "IN_ENTRY"
	TransactionOutWaste  TransactionKind = "OUT_WASTE"
)

// StockTransaction is the audit trail of disponibility changes. Like the cash
// ledger it is append-only.
type StockTransaction struct {
	shared.BaseEntity
	BusinessID uuid.UUID       `gorm:"type:uuid;not null;index"`
	AreaID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind       TransactionKind `gorm:"type:varchar(20);not null"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OrderID    *uuid.UUID      `gorm:"type:uuid;index"`
	MadeBy     *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (StockTransaction) TableName() string {
	return "stock_transactions"
}

// NewStockTransaction records one movement; quantity is signed like the kind
// implies (OUT_* negative, IN_* positive).
func NewStockTransaction(businessID, areaID, productID uuid.UUID, kind TransactionKind, quantity decimal.Decimal, orderID *uuid.UUID) *StockTransaction {
	return &StockTransaction{
		BaseEntity: shared.NewBaseEntity(),
		BusinessID: businessID,
		AreaID:     areaID,
		ProductID:  productID,
		Kind:       kind,
		Quantity:   quantity,
		OrderID:    orderID,
	}
}
