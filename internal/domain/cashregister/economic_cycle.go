package cashregister

import (
	"time"

	"github.com/google/uuid"

	"github.com/salepoint/backend/internal/domain/shared"
)

// EconomicCycle is one open accounting period for a business. Exactly one may
// be active per business at a time; all cash operations and new orders
// reference the currently active cycle.
type EconomicCycle struct {
	shared.BusinessAggregateRoot
	Name      string `gorm:"type:varchar(100)"`
	IsActive  bool   `gorm:"not null;default:true;index"`
	OpenedBy  uuid.UUID `gorm:"type:uuid;not null"`
	OpenDate  time.Time `gorm:"not null"`
	CloseDate *time.Time
	ClosedBy  *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (EconomicCycle) TableName() string {
	return "economic_cycles"
}

// NewEconomicCycle opens a new accounting period
func NewEconomicCycle(businessID, openedBy uuid.UUID, name string) *EconomicCycle {
	return &EconomicCycle{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		Name:                  name,
		IsActive:              true,
		OpenedBy:              openedBy,
		OpenDate:              time.Now(),
	}
}

// Close ends the accounting period
func (c *EconomicCycle) Close(closedBy uuid.UUID) error {
	if !c.IsActive {
		return shared.NewDomainError("CYCLE_ALREADY_CLOSED", "Economic cycle is already closed")
	}
	now := time.Now()
	c.IsActive = false
	c.CloseDate = &now
	c.ClosedBy = &closedBy
	c.UpdatedAt = now
	return nil
}
