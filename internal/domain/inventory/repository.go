package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockRepository persists area-level disponibility
type StockRepository interface {
	// FindByAreaAndProduct returns the disponibility row for a (product,
	// variation) pair, or ErrStockAreaProductNotFound when none exists
	FindByAreaAndProduct(ctx context.Context, businessID, areaID, productID uuid.UUID, variationID *uuid.UUID) (*StockAreaProduct, error)
	// FindByAreaAndProductForUpdate loads the row holding a pessimistic lock
	// for the remainder of the surrounding transaction
	FindByAreaAndProductForUpdate(ctx context.Context, businessID, areaID, productID uuid.UUID, variationID *uuid.UUID) (*StockAreaProduct, error)
	Save(ctx context.Context, s *StockAreaProduct) error
	AppendTransactions(ctx context.Context, txs ...*StockTransaction) error
}
