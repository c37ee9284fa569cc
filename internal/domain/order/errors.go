package order

import "github.com/salepoint/backend/internal/domain/shared"

// Engine errors. Validation errors reject input before any mutation;
// state-conflict errors roll back the transaction with a specific kind;
// DuplicateOperationNumber is retryable because the losing transaction of a
// sequence race committed nothing.
var (
	ErrClientRequired        = shared.NewValidationError("CLIENT_REQUIRED", "A client is required for this operation")
	ErrAreaNotFound          = shared.NewValidationError("AREA_NOT_FOUND", "Sales area not found or not active")
	ErrNoActiveEconomicCycle = shared.NewDomainError("NO_ACTIVE_ECONOMIC_CYCLE", "No active economic cycle for the business")
	ErrProductNotFound       = shared.NewValidationError("PRODUCT_NOT_FOUND", "Product not found in catalog")
	ErrProductNotSellable    = shared.NewValidationError("PRODUCT_NOT_SELLABLE", "Product is not available for sale")

	ErrOrderClosed          = shared.NewDomainError("ORDER_CLOSED", "Order is cancelled, billed or refunded and cannot be edited")
	ErrPreReceiptNotPayable = shared.NewDomainError("PRE_RECEIPT_NOT_PAYABLE", "Pre-receipts must be transformed into bills before receiving payments")
	ErrOrderAlreadyBilled   = shared.NewDomainError("ORDER_ALREADY_BILLED", "Order was already billed")
	ErrOrderCancelled       = shared.NewDomainError("ORDER_CANCELLED", "Order was cancelled")
	ErrOrderRefunded        = shared.NewDomainError("ORDER_REFUNDED", "Order was refunded")

	ErrAmountInsufficient = shared.NewDomainError("AMOUNT_INSUFFICIENT", "Received amount does not cover the total to pay")
	ErrAmountExceedsOrder = shared.NewDomainError("AMOUNT_EXCEEDS_ORDER", "Received amount exceeds the total to pay")

	ErrNoPartialPaymentsToRefund = shared.NewDomainError("NO_PARTIAL_PAYMENTS", "Order has no partial payments to refund")

	ErrDuplicateOperationNumber = shared.NewInfrastructureError("DUPLICATE_OPERATION_NUMBER", "Operation number already taken for this economic cycle; retry the operation")
)
