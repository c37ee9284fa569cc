package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salepoint/backend/internal/domain/catalog"
	"github.com/salepoint/backend/internal/domain/shared"
)

// GormProductRepository implements catalog.Repository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID loads a product with its prices and variations
func (r *GormProductRepository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*catalog.Product, error) {
	var p catalog.Product
	if err := r.db.WithContext(ctx).
		Preload("Prices").
		Preload("Variations").
		Where("business_id = ? AND id = ?", businessID, id).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByIDs loads a batch of products keyed by ID. Missing ids are absent
// from the map; the caller decides whether that is an error.
func (r *GormProductRepository) FindByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*catalog.Product{}, nil
	}
	var products []*catalog.Product
	if err := r.db.WithContext(ctx).
		Preload("Prices").
		Preload("Variations").
		Where("business_id = ? AND id IN ?", businessID, ids).
		Find(&products).Error; err != nil {
		return nil, err
	}
	result := make(map[uuid.UUID]*catalog.Product, len(products))
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

// Save persists a product together with its prices and variations
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(p).Error
}

var _ catalog.Repository = (*GormProductRepository)(nil)
