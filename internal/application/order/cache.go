package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// SnapshotLine is one line item as mirrored into the transaction cache: just
// enough for the total calculator, nothing more.
type SnapshotLine struct {
	ProductID   uuid.UUID            `json:"product_id"`
	Quantity    decimal.Decimal      `json:"quantity"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	Currency    valueobject.Currency `json:"currency"`
}

// OrderSnapshot is the transaction-scoped mirror of the order in progress. It
// is written (and overwritten) several times within a single transaction so
// calculation helpers can read "what the order will look like" without a
// second database round-trip. It is not a substitute for the transaction's
// atomicity; a short expiry guards against orphaned keys from crashed
// transactions.
type OrderSnapshot struct {
	TransactionID string    `json:"transaction_id"`
	BusinessID    uuid.UUID `json:"business_id"`
	OrderID       uuid.UUID `json:"order_id"`

	Lines []SnapshotLine `json:"lines"`

	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`

	Tip             *valueobject.Price  `json:"tip,omitempty"`
	Shipping        *valueobject.Price  `json:"shipping,omitempty"`
	CouponDiscounts []valueobject.Price `json:"coupon_discounts,omitempty"`
}

// TransactionCache stores in-flight order snapshots keyed by business and
// transaction id. Keys are transaction-scoped: no transaction may read
// another's in-flight snapshot.
type TransactionCache interface {
	// Set writes (or overwrites) the snapshot, refreshing its expiry
	Set(ctx context.Context, snap *OrderSnapshot) error
	// Get reads the snapshot; a missing key is an infrastructure error since
	// the transaction that wrote it is still open
	Get(ctx context.Context, businessID uuid.UUID, transactionID string) (*OrderSnapshot, error)
	// Expire drops the key once the transaction is done with it
	Expire(ctx context.Context, businessID uuid.UUID, transactionID string) error
}
