package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salepoint/backend/internal/domain/business"
	"github.com/salepoint/backend/internal/domain/shared"
)

// GormBusinessRepository implements business.Repository using GORM
type GormBusinessRepository struct {
	db *gorm.DB
}

// NewGormBusinessRepository creates a new GormBusinessRepository
func NewGormBusinessRepository(db *gorm.DB) *GormBusinessRepository {
	return &GormBusinessRepository{db: db}
}

// FindByID loads a business with its accepted currencies
func (r *GormBusinessRepository) FindByID(ctx context.Context, id uuid.UUID) (*business.Business, error) {
	var b business.Business
	if err := r.db.WithContext(ctx).
		Preload("Currencies").
		Where("id = ?", id).
		First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// FindBySlug loads a business by its URL slug
func (r *GormBusinessRepository) FindBySlug(ctx context.Context, slug string) (*business.Business, error) {
	var b business.Business
	if err := r.db.WithContext(ctx).
		Preload("Currencies").
		Where("slug = ?", slug).
		First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Save persists a business together with its currency list
func (r *GormBusinessRepository) Save(ctx context.Context, b *business.Business) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(b).Error
}

var _ business.Repository = (*GormBusinessRepository)(nil)

// GormAreaRepository implements business.AreaRepository using GORM
type GormAreaRepository struct {
	db *gorm.DB
}

// NewGormAreaRepository creates a new GormAreaRepository
func NewGormAreaRepository(db *gorm.DB) *GormAreaRepository {
	return &GormAreaRepository{db: db}
}

// FindByID loads an area by ID
func (r *GormAreaRepository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*business.Area, error) {
	var a business.Area
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindAllForBusiness lists the areas of a business
func (r *GormAreaRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID) ([]business.Area, error) {
	var areas []business.Area
	if err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("name asc").
		Find(&areas).Error; err != nil {
		return nil, err
	}
	return areas, nil
}

// Save persists an area
func (r *GormAreaRepository) Save(ctx context.Context, a *business.Area) error {
	return r.db.WithContext(ctx).Save(a).Error
}

var _ business.AreaRepository = (*GormAreaRepository)(nil)

// GormClientRepository implements business.ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID loads a client by ID
func (r *GormClientRepository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*business.Client, error) {
	var c business.Client
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Save persists a client
func (r *GormClientRepository) Save(ctx context.Context, c *business.Client) error {
	return r.db.WithContext(ctx).Save(c).Error
}

var _ business.ClientRepository = (*GormClientRepository)(nil)
