package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salepoint/backend/internal/domain/inventory"
)

// GormStockRepository implements inventory.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

func stockRowQuery(q *gorm.DB, businessID, areaID, productID uuid.UUID, variationID *uuid.UUID) *gorm.DB {
	q = q.Where("business_id = ? AND area_id = ? AND product_id = ?", businessID, areaID, productID)
	if variationID == nil {
		return q.Where("variation_id IS NULL")
	}
	return q.Where("variation_id = ?", *variationID)
}

// FindByAreaAndProduct returns the disponibility row for a (product, variation) pair
func (r *GormStockRepository) FindByAreaAndProduct(ctx context.Context, businessID, areaID, productID uuid.UUID, variationID *uuid.UUID) (*inventory.StockAreaProduct, error) {
	var row inventory.StockAreaProduct
	if err := stockRowQuery(r.db.WithContext(ctx), businessID, areaID, productID, variationID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrStockAreaProductNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByAreaAndProductForUpdate loads the row with a FOR UPDATE lock held for
// the remainder of the surrounding transaction
func (r *GormStockRepository) FindByAreaAndProductForUpdate(ctx context.Context, businessID, areaID, productID uuid.UUID, variationID *uuid.UUID) (*inventory.StockAreaProduct, error) {
	var row inventory.StockAreaProduct
	if err := stockRowQuery(r.db.WithContext(ctx), businessID, areaID, productID, variationID).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrStockAreaProductNotFound
		}
		return nil, err
	}
	return &row, nil
}

// Save persists a disponibility row
func (r *GormStockRepository) Save(ctx context.Context, s *inventory.StockAreaProduct) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// AppendTransactions records stock movements. The movement log is append-only.
func (r *GormStockRepository) AppendTransactions(ctx context.Context, txs ...*inventory.StockTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(txs).Error
}

var _ inventory.StockRepository = (*GormStockRepository)(nil)
