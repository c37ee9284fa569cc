package cashregister

import (
	"context"

	"github.com/google/uuid"
)

// OperationRepository persists the append-only ledger. There is deliberately
// no update or delete.
type OperationRepository interface {
	Append(ctx context.Context, ops ...*Operation) error
	FindByOrder(ctx context.Context, businessID, orderID uuid.UUID) ([]Operation, error)
	FindByCycle(ctx context.Context, businessID, cycleID uuid.UUID) ([]Operation, error)
}

// EconomicCycleRepository persists accounting periods
type EconomicCycleRepository interface {
	FindActive(ctx context.Context, businessID uuid.UUID) (*EconomicCycle, error)
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*EconomicCycle, error)
	Save(ctx context.Context, c *EconomicCycle) error
}
