package order

import (
	"context"

	"github.com/salepoint/backend/internal/domain/cashregister"
	"github.com/salepoint/backend/internal/domain/coupon"
	"github.com/salepoint/backend/internal/domain/inventory"
	"github.com/salepoint/backend/internal/domain/order"
)

// TransactionScope provides transactional access to the repositories an order
// operation writes through. When a function is executed within a scope, all
// repository operations share one database transaction and commit or roll
// back atomically. There is no partial-apply path: any error inside the
// function rolls back every row it touched.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes every repository a lifecycle operation
// may write through, all bound to the same transaction.
type TransactionalRepositories interface {
	Orders() order.Repository
	PrepaidPayments() order.PrepaidPaymentRepository
	Stock() inventory.StockRepository
	CashOperations() cashregister.OperationRepository
	Coupons() coupon.Repository
}

// NoOpTransactionScope runs the function without a real transaction. Useful
// for tests and for callers that already hold one.
type NoOpTransactionScope struct {
	orders  order.Repository
	prepaid order.PrepaidPaymentRepository
	stock   inventory.StockRepository
	cash    cashregister.OperationRepository
	coupons coupon.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	orders order.Repository,
	prepaid order.PrepaidPaymentRepository,
	stock inventory.StockRepository,
	cash cashregister.OperationRepository,
	coupons coupon.Repository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orders:  orders,
		prepaid: prepaid,
		stock:   stock,
		cash:    cash,
		coupons: coupons,
	}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Orders returns the order repository
func (s *NoOpTransactionScope) Orders() order.Repository { return s.orders }

// PrepaidPayments returns the prepaid payment repository
func (s *NoOpTransactionScope) PrepaidPayments() order.PrepaidPaymentRepository { return s.prepaid }

// Stock returns the stock repository
func (s *NoOpTransactionScope) Stock() inventory.StockRepository { return s.stock }

// CashOperations returns the cash register ledger repository
func (s *NoOpTransactionScope) CashOperations() cashregister.OperationRepository { return s.cash }

// Coupons returns the coupon repository
func (s *NoOpTransactionScope) Coupons() coupon.Repository { return s.coupons }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
