package business

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists business configuration
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Business, error)
	FindBySlug(ctx context.Context, slug string) (*Business, error)
	Save(ctx context.Context, b *Business) error
}

// AreaRepository persists areas
type AreaRepository interface {
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*Area, error)
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID) ([]Area, error)
	Save(ctx context.Context, a *Area) error
}

// ClientRepository persists clients
type ClientRepository interface {
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*Client, error)
	Save(ctx context.Context, c *Client) error
}
