package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists catalog products
type Repository interface {
	// FindByID loads a product with its prices and variations
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*Product, error)
	// FindByIDs loads a batch of products; missing ids are absent from the
	// result, the caller decides whether that is an error
	FindByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
	Save(ctx context.Context, p *Product) error
}
