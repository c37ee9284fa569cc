package inventory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared"
)

// NewInsufficientStockError builds the business error returned when a
// substraction would leave disponibility negative and the business does not
// allow it.
func NewInsufficientStockError(productID uuid.UUID, available, requested decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(
		"INSUFFICIENT_STOCK",
		fmt.Sprintf("Product %s has %s available, %s requested", productID, available, requested),
	)
}

// ErrStockAreaProductNotFound is returned when no disponibility row exists
var ErrStockAreaProductNotFound = shared.NewDomainError("STOCK_NOT_FOUND", "Product has no stock in the area")
