package persistence

import (
	"context"

	"gorm.io/gorm"

	apporder "github.com/salepoint/backend/internal/application/order"
	"github.com/salepoint/backend/internal/domain/cashregister"
	"github.com/salepoint/backend/internal/domain/coupon"
	"github.com/salepoint/backend/internal/domain/inventory"
	"github.com/salepoint/backend/internal/domain/order"
)

// GormTransactionScope implements the order engine's TransactionScope using
// GORM transactions. Every repository handed to the callback is bound to the
// same transaction, so a failure rolls back all of them together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction. If the
// function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apporder.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) PrepaidPayments() order.PrepaidPaymentRepository {
	return NewGormPrepaidPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Stock() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

func (r *gormTransactionalRepositories) CashOperations() cashregister.OperationRepository {
	return NewGormCashOperationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Coupons() coupon.Repository {
	return NewGormCouponRepository(r.tx)
}

var _ apporder.TransactionScope = (*GormTransactionScope)(nil)
var _ apporder.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
