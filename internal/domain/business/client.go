package business

import (
	"strings"

	"github.com/google/uuid"

	"github.com/salepoint/backend/internal/domain/shared"
)

// Client is a registered customer of the business. Orders may be anonymous,
// but billing on credit and coupon per-client caps require one.
type Client struct {
	shared.BusinessAggregateRoot
	Name     string `gorm:"type:varchar(200);not null"`
	Phone    string `gorm:"type:varchar(50);index"`
	Email    string `gorm:"type:varchar(200);index"`
	Address  string `gorm:"type:text"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Client) TableName() string {
	return "clients"
}

// NewClient registers a client
func NewClient(businessID uuid.UUID, name string) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_CLIENT_NAME", "Name is required")
	}
	return &Client{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		Name:                  name,
		IsActive:              true,
	}, nil
}
