package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salepoint/backend/internal/domain/order"
	"github.com/salepoint/backend/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withChildren(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Lines.Addons").
		Preload("Lines").
		Preload("TotalToPay").
		Preload("CurrencyPayments").
		Preload("PartialPayments")
}

// FindByIDForBusiness loads an order with all its child rows
func (r *GormOrderRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.withChildren(r.db.WithContext(ctx)).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByIDForUpdate loads the order holding a FOR UPDATE row lock on the root
// row. Child rows are loaded after the lock is taken, so two concurrent
// payment attempts serialize on the order itself.
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, businessID, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.withChildren(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindAllForBusiness lists orders with pagination
func (r *GormOrderRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{}).Where("business_id = ?", businessID)

	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if clientID, ok := filter.Filters["client_id"]; ok {
		query = query.Where("client_id = ?", clientID)
	}
	if cycleID, ok := filter.Filters["economic_cycle_id"]; ok {
		query = query.Where("economic_cycle_id = ?", cycleID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, OrderSortFields, "registered_at")
	dir := ValidateSortOrder(filter.OrderDir)

	var orders []order.Order
	if err := r.withChildren(query).
		Order(orderBy + " " + dir).
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FindOverdue lists PAYMENT_PENDING orders whose deadline passed
func (r *GormOrderRepository) FindOverdue(ctx context.Context, businessID uuid.UUID, asOf time.Time) ([]order.Order, error) {
	var orders []order.Order
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND status = ? AND payment_deadline_at IS NOT NULL AND payment_deadline_at < ?",
			businessID, order.StatusPaymentPending, asOf).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save persists the aggregate. Child rows are replaced wholesale: the order's
// in-memory children are the source of truth after edits, and diffing them
// against the stored set is not worth the complexity at receipt sizes.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(
			"selled_product_id IN (?)",
			tx.Model(&order.SelledProduct{}).Select("id").Where("order_id = ?", o.ID),
		).Delete(&order.SelledProductAddon{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&order.SelledProduct{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&order.OrderTotal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&order.CurrencyPayment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&order.PartialPayment{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(o).Error
	})
	if isUniqueViolation(err) {
		return order.ErrDuplicateOperationNumber
	}
	return err
}

// NextOperationNumber computes max(existing)+1 for bills. Two concurrent
// transactions can read the same maximum; the unique index on the operation
// number turns the losing insert into ErrDuplicateOperationNumber.
func (r *GormOrderRepository) NextOperationNumber(ctx context.Context, businessID uuid.UUID, scope order.OperationNumberScope, cycleID uuid.UUID) (int, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("business_id = ? AND operation_number IS NOT NULL", businessID)

	switch scope {
	case order.ScopeEconomicCycle:
		query = query.Where("economic_cycle_id = ?", cycleID)
	default:
		start, end := calendarYearBounds(time.Now())
		query = query.Where("registered_at >= ? AND registered_at < ?", start, end)
	}

	var max sql.NullInt64
	if err := query.Select("MAX(operation_number)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return int(max.Int64) + 1, nil
}

// NextPreOperationNumber computes max(existing)+1 for pre-bills per calendar year
func (r *GormOrderRepository) NextPreOperationNumber(ctx context.Context, businessID uuid.UUID) (int, error) {
	start, end := calendarYearBounds(time.Now())

	var max sql.NullInt64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("business_id = ? AND pre_operation_number IS NOT NULL", businessID).
		Where("registered_at >= ? AND registered_at < ?", start, end).
		Select("MAX(pre_operation_number)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return int(max.Int64) + 1, nil
}

func calendarYearBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(1, 0, 0)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

var _ order.Repository = (*GormOrderRepository)(nil)

// GormPrepaidPaymentRepository implements order.PrepaidPaymentRepository using GORM
type GormPrepaidPaymentRepository struct {
	db *gorm.DB
}

// NewGormPrepaidPaymentRepository creates a new GormPrepaidPaymentRepository
func NewGormPrepaidPaymentRepository(db *gorm.DB) *GormPrepaidPaymentRepository {
	return &GormPrepaidPaymentRepository{db: db}
}

// FindByIDsForBusiness loads prepaid payments by ID within a business
func (r *GormPrepaidPaymentRepository) FindByIDsForBusiness(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]*order.PrepaidPayment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var payments []*order.PrepaidPayment
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND id IN ?", businessID, ids).
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Save persists a prepaid payment
func (r *GormPrepaidPaymentRepository) Save(ctx context.Context, p *order.PrepaidPayment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

var _ order.PrepaidPaymentRepository = (*GormPrepaidPaymentRepository)(nil)
