package order

import "context"

// Job codes the engine enqueues after commit. Delivery is at-least-once, so
// every job carries enough identifying data (order id, product ids) for
// consumers to deduplicate.
const (
	JobRegisterRecords        = "REGISTER_RECORDS"
	JobCheckingProduct        = "CHECKING_PRODUCT"
	JobProcessProductionAreas = "PROCESS_TICKETS_PRODUCTION_AREA"
	JobNewOrderNotification   = "NEW_ORDER_NOTIFICATION"
)

// Job is one fire-and-forget side effect: a stable code plus a flat params
// object.
type Job struct {
	Code   string         `json:"code"`
	Params map[string]any `json:"params"`
}

// Dispatcher enqueues side-effect jobs after the transaction committed. A
// dispatch failure is logged and retried a bounded number of times, but never
// surfaced as an order failure: the financial transaction already succeeded.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobs ...Job)
}
