package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salepoint/backend/internal/domain/cashregister"
	"github.com/salepoint/backend/internal/domain/shared"
)

// GormCashOperationRepository implements cashregister.OperationRepository
// using GORM. The ledger is append-only so there is no update path.
type GormCashOperationRepository struct {
	db *gorm.DB
}

// NewGormCashOperationRepository creates a new GormCashOperationRepository
func NewGormCashOperationRepository(db *gorm.DB) *GormCashOperationRepository {
	return &GormCashOperationRepository{db: db}
}

// Append records ledger entries
func (r *GormCashOperationRepository) Append(ctx context.Context, ops ...*cashregister.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(ops).Error
}

// FindByOrder lists ledger entries tied to an order, oldest first
func (r *GormCashOperationRepository) FindByOrder(ctx context.Context, businessID, orderID uuid.UUID) ([]cashregister.Operation, error) {
	var ops []cashregister.Operation
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND order_id = ?", businessID, orderID).
		Order("created_at asc").
		Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

// FindByCycle lists ledger entries of an economic cycle, oldest first
func (r *GormCashOperationRepository) FindByCycle(ctx context.Context, businessID, cycleID uuid.UUID) ([]cashregister.Operation, error) {
	var ops []cashregister.Operation
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND economic_cycle_id = ?", businessID, cycleID).
		Order("created_at asc").
		Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

var _ cashregister.OperationRepository = (*GormCashOperationRepository)(nil)

// GormEconomicCycleRepository implements cashregister.EconomicCycleRepository using GORM
type GormEconomicCycleRepository struct {
	db *gorm.DB
}

// NewGormEconomicCycleRepository creates a new GormEconomicCycleRepository
func NewGormEconomicCycleRepository(db *gorm.DB) *GormEconomicCycleRepository {
	return &GormEconomicCycleRepository{db: db}
}

// FindActive returns the open cycle of a business. At most one cycle is
// active per business; opening a new one closes the previous first.
func (r *GormEconomicCycleRepository) FindActive(ctx context.Context, businessID uuid.UUID) (*cashregister.EconomicCycle, error) {
	var c cashregister.EconomicCycle
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessID, true).
		Order("open_date desc").
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByID loads a cycle by ID
func (r *GormEconomicCycleRepository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*cashregister.EconomicCycle, error) {
	var c cashregister.EconomicCycle
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

// Save persists a cycle
func (r *GormEconomicCycleRepository) Save(ctx context.Context, c *cashregister.EconomicCycle) error {
	return r.db.WithContext(ctx).Save(c).Error
}

var _ cashregister.EconomicCycleRepository = (*GormEconomicCycleRepository)(nil)
