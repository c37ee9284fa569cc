package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/salepoint/backend/internal/domain/shared"
)

// Repository defines persistence for the Order aggregate
type Repository interface {
	// FindByIDForBusiness loads an order with its lines, totals and payments
	FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*Order, error)
	// FindByIDForUpdate loads the order holding a pessimistic row lock for the
	// remainder of the surrounding transaction. Used to serialize concurrent
	// payment attempts against the same order.
	FindByIDForUpdate(ctx context.Context, businessID, id uuid.UUID) (*Order, error)
	// FindAllForBusiness lists orders with filtering and pagination
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]Order, int64, error)
	// FindOverdue lists PAYMENT_PENDING orders whose deadline passed
	FindOverdue(ctx context.Context, businessID uuid.UUID, asOf time.Time) ([]Order, error)
	// Save persists the aggregate; child rows (lines, addons, totals, payments)
	// are destroyed and recreated, not diffed in place.
	Save(ctx context.Context, o *Order) error
	// NextOperationNumber computes max(existing)+1 for bills, scoped by
	// business and, per configuration, by calendar year or economic cycle.
	// Concurrent readers may race; the unique index turns the losing insert
	// into ErrDuplicateOperationNumber, which is retryable.
	NextOperationNumber(ctx context.Context, businessID uuid.UUID, scope OperationNumberScope, cycleID uuid.UUID) (int, error)
	// NextPreOperationNumber computes max(existing)+1 for pre-bills, scoped by
	// business and calendar year.
	NextPreOperationNumber(ctx context.Context, businessID uuid.UUID) (int, error)
}

// PrepaidPaymentRepository defines persistence for prepaid payments
type PrepaidPaymentRepository interface {
	FindByIDsForBusiness(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]*PrepaidPayment, error)
	Save(ctx context.Context, p *PrepaidPayment) error
}
