package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/salepoint/backend/internal/domain/catalog"
	"github.com/salepoint/backend/internal/domain/inventory"
	"github.com/salepoint/backend/internal/domain/shared"
)

func catalogProductNotFound(id uuid.UUID) error {
	return shared.NewValidationError("PRODUCT_NOT_FOUND", fmt.Sprintf("Product %s does not exist in the catalog", id))
}

// StockLine is one (product, variation, quantity) movement request
type StockLine struct {
	ProductID   uuid.UUID
	VariationID *uuid.UUID
	Quantity    decimal.Decimal
}

// DisponibilityService substracts and restores available-for-sale quantities.
// Both operations run against the repository the caller hands in, which must
// be scoped to the caller's transaction: a failure rolls back every row
// touched, never a partial set.
//
// Neither operation is idempotent; calling twice doubles the effect. The
// caller enforces at-most-once per order transition through the order status
// machine.
type DisponibilityService struct {
	products catalog.Repository
	logger   *zap.Logger
}

// NewDisponibilityService creates a disponibility service
func NewDisponibilityService(products catalog.Repository, logger *zap.Logger) *DisponibilityService {
	return &DisponibilityService{products: products, logger: logger}
}

// Substract decreases on-hand quantity for every line at the stock area.
// Under strict mode any line that would go negative fails the whole call.
// Products that do not track stock are skipped. Returns the ids of affected
// products for downstream cache invalidation.
func (s *DisponibilityService) Substract(
	ctx context.Context,
	stock inventory.StockRepository,
	lines []StockLine,
	areaID, businessID uuid.UUID,
	strict bool,
) ([]uuid.UUID, error) {
	tracked, err := s.trackedLines(ctx, businessID, lines, true)
	if err != nil {
		return nil, err
	}

	affected := make([]uuid.UUID, 0, len(tracked))
	for _, line := range tracked {
		row, err := stock.FindByAreaAndProductForUpdate(ctx, businessID, areaID, line.ProductID, line.VariationID)
		if err != nil {
			if !errors.Is(err, inventory.ErrStockAreaProductNotFound) {
				return nil, err
			}
			if strict {
				return nil, inventory.NewInsufficientStockError(line.ProductID, decimal.Zero, line.Quantity)
			}
			row = inventory.NewStockAreaProduct(businessID, areaID, line.ProductID, line.VariationID)
		}

		if err := row.Substract(line.Quantity, !strict); err != nil {
			return nil, err
		}
		if err := stock.Save(ctx, row); err != nil {
			return nil, err
		}
		if err := stock.AppendTransactions(ctx, inventory.NewStockTransaction(
			businessID, areaID, line.ProductID, inventory.TransactionOutSale, line.Quantity.Neg(), nil,
		)); err != nil {
			return nil, err
		}
		affected = append(affected, line.ProductID)
	}
	return affected, nil
}

// Restore puts quantities back after a cancellation or refund. Lines whose
// catalog product no longer exists, or whose stock row is gone, are skipped
// with a warning instead of aborting the whole restore; cancellations can
// arrive long after the sale and the catalog may have moved on.
func (s *DisponibilityService) Restore(
	ctx context.Context,
	stock inventory.StockRepository,
	lines []StockLine,
	areaID, businessID, userID uuid.UUID,
) ([]uuid.UUID, error) {
	tracked, err := s.trackedLines(ctx, businessID, lines, false)
	if err != nil {
		return nil, err
	}

	affected := make([]uuid.UUID, 0, len(tracked))
	for _, line := range tracked {
		row, err := stock.FindByAreaAndProductForUpdate(ctx, businessID, areaID, line.ProductID, line.VariationID)
		if err != nil {
			if errors.Is(err, inventory.ErrStockAreaProductNotFound) {
				s.logger.Warn("skipping stock restore, disponibility row missing",
					zap.String("business_id", businessID.String()),
					zap.String("product_id", line.ProductID.String()),
					zap.String("area_id", areaID.String()))
				continue
			}
			return nil, err
		}

		if err := row.Restore(line.Quantity); err != nil {
			return nil, err
		}
		if err := stock.Save(ctx, row); err != nil {
			return nil, err
		}
		tx := inventory.NewStockTransaction(businessID, areaID, line.ProductID, inventory.TransactionInRestore, line.Quantity, nil)
		tx.MadeBy = &userID
		if err := stock.AppendTransactions(ctx, tx); err != nil {
			return nil, err
		}
		affected = append(affected, line.ProductID)
	}
	return affected, nil
}

// trackedLines filters the request down to stock-tracked products. When
// failOnMissing is false, unknown products are skipped with a warning.
func (s *DisponibilityService) trackedLines(ctx context.Context, businessID uuid.UUID, lines []StockLine, failOnMissing bool) ([]StockLine, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, businessID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]StockLine, 0, len(lines))
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			if failOnMissing {
				return nil, catalogProductNotFound(line.ProductID)
			}
			s.logger.Warn("skipping stock movement, product no longer in catalog",
				zap.String("business_id", businessID.String()),
				zap.String("product_id", line.ProductID.String()))
			continue
		}
		if !p.Type.TracksStock() {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}
