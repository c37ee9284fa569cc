package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/salepoint/backend/internal/domain/catalog"
	"github.com/salepoint/backend/internal/domain/order"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// orderBuilder assembles the aggregate in memory before anything is
// persisted: it resolves catalog prices for every requested line, flags
// modified prices and routes production lines to their areas. Persistence
// happens later as explicit, ordered inserts inside the transaction.
type orderBuilder struct {
	products catalog.Repository
}

func newOrderBuilder(products catalog.Repository) *orderBuilder {
	return &orderBuilder{products: products}
}

// buildLines turns validated line inputs into SelledProduct entities. Every
// product must exist and be sellable; a charged price that matches no catalog
// price within tolerance is flagged, never rejected.
func (b *orderBuilder) buildLines(ctx context.Context, businessID uuid.UUID, inputs []LineInput, rates *valueobject.ExchangeRateTable) ([]order.SelledProduct, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.ProductID)
		for _, a := range in.Addons {
			ids = append(ids, a.AddonID)
		}
	}

	products, err := b.products.FindByIDs(ctx, businessID, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]order.SelledProduct, 0, len(inputs))
	for _, in := range inputs {
		product, ok := products[in.ProductID]
		if !ok {
			return nil, order.ErrProductNotFound
		}
		if err := product.EnsureSellable(); err != nil {
			return nil, order.ErrProductNotSellable
		}

		requested := in.UnitPrice.Price()
		resolution := catalog.ResolvePrice(product, in.VariationID, requested, rates, catalog.DefaultPriceTolerance)

		line, err := order.NewSelledProduct(
			product.ID,
			in.VariationID,
			product.Name,
			in.Quantity,
			requested,
			resolution.BasePrice,
			resolution.Modified,
			product.ProductionAreaID,
		)
		if err != nil {
			return nil, err
		}

		for _, a := range in.Addons {
			addon, ok := products[a.AddonID]
			if !ok {
				return nil, order.ErrProductNotFound
			}
			if err := addon.EnsureSellable(); err != nil {
				return nil, order.ErrProductNotSellable
			}
			if err := line.AddAddon(addon.ID, addon.Name, a.Quantity, a.UnitPrice.Price()); err != nil {
				return nil, err
			}
		}

		lines = append(lines, *line)
	}
	return lines, nil
}
