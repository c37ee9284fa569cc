package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appcoupon "github.com/salepoint/backend/internal/application/coupon"
	appinventory "github.com/salepoint/backend/internal/application/inventory"
	"github.com/salepoint/backend/internal/domain/business"
	"github.com/salepoint/backend/internal/domain/cashregister"
	"github.com/salepoint/backend/internal/domain/catalog"
	"github.com/salepoint/backend/internal/domain/coupon"
	"github.com/salepoint/backend/internal/domain/order"
	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// Service is the order lifecycle engine: it orchestrates pre-bill and bill
// creation, edits, payments, cancellation, refunds and pre-bill
// transformation. Every operation runs inside one transaction; side effects
// are enqueued only after commit and their failure never surfaces as an order
// failure.
type Service struct {
	scope      TransactionScope
	businesses business.Repository
	areas      business.AreaRepository
	clients    business.ClientRepository
	cycles     cashregister.EconomicCycleRepository
	builder    *orderBuilder
	dispo      *appinventory.DisponibilityService
	coupons    *appcoupon.Processor
	cache      TransactionCache
	calculator *TotalCalculator
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewService creates the order lifecycle engine
func NewService(
	scope TransactionScope,
	businesses business.Repository,
	areas business.AreaRepository,
	clients business.ClientRepository,
	cycles cashregister.EconomicCycleRepository,
	products catalog.Repository,
	dispo *appinventory.DisponibilityService,
	coupons *appcoupon.Processor,
	cache TransactionCache,
	dispatcher Dispatcher,
	logger *zap.Logger,
) *Service {
	return &Service{
		scope:      scope,
		businesses: businesses,
		areas:      areas,
		clients:    clients,
		cycles:     cycles,
		builder:    newOrderBuilder(products),
		dispo:      dispo,
		coupons:    coupons,
		cache:      cache,
		calculator: NewTotalCalculator(cache),
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// saleContext is everything an operation needs from the business configuration
type saleContext struct {
	business *business.Business
	area     *business.Area
	cycle    *cashregister.EconomicCycle
	rates    *valueobject.ExchangeRateTable
}

func (s *Service) loadSaleContext(ctx context.Context, businessID, areaID uuid.UUID) (*saleContext, error) {
	biz, err := s.businesses.FindByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	area, err := s.areas.FindByID(ctx, businessID, areaID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, order.ErrAreaNotFound
		}
		return nil, err
	}
	cycle, err := s.cycles.FindActive(ctx, businessID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, order.ErrNoActiveEconomicCycle
		}
		return nil, err
	}
	return &saleContext{
		business: biz,
		area:     area,
		cycle:    cycle,
		rates:    biz.ExchangeRateTable(),
	}, nil
}

// stockAreaFor picks the stock area a sale draws from
func stockAreaFor(area *business.Area) uuid.UUID {
	if area.StockAreaID != nil {
		return *area.StockAreaID
	}
	return area.ID
}

// CreatePreBill creates an order with no payment obligation and no stock
// reservation. Pre-bills always name a client; they are a promise to pay.
func (s *Service) CreatePreBill(ctx context.Context, businessID, userID uuid.UUID, req *CreateOrderRequest) (*OrderResponse, error) {
	return s.createOrder(ctx, businessID, userID, req, true)
}

// CreateBill creates an order that immediately owes money: stock is reserved
// and an operation number assigned.
func (s *Service) CreateBill(ctx context.Context, businessID, userID uuid.UUID, req *CreateOrderRequest) (*OrderResponse, error) {
	return s.createOrder(ctx, businessID, userID, req, false)
}

func (s *Service) createOrder(ctx context.Context, businessID, userID uuid.UUID, req *CreateOrderRequest, isPreReceipt bool) (*OrderResponse, error) {
	sc, err := s.loadSaleContext(ctx, businessID, req.AreaID)
	if err != nil {
		return nil, err
	}
	if err := sc.area.EnsureUsableForSale(); err != nil {
		return nil, err
	}
	if isPreReceipt && req.ClientID == nil {
		return nil, order.ErrClientRequired
	}
	if req.ClientID != nil {
		if _, err := s.clients.FindByID(ctx, businessID, *req.ClientID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, order.ErrClientRequired
			}
			return nil, err
		}
	}

	lines, err := s.builder.buildLines(ctx, businessID, req.Lines, sc.rates)
	if err != nil {
		return nil, err
	}

	var (
		resp            *OrderResponse
		recordJobs      []Job
		affectedStock   []uuid.UUID
		productionAreas bool
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var seq int
		var err error
		if isPreReceipt {
			seq, err = repos.Orders().NextPreOperationNumber(ctx, businessID)
		} else {
			seq, err = repos.Orders().NextOperationNumber(ctx, businessID, sc.business.OperationNumberScope, sc.cycle.ID)
		}
		if err != nil {
			return err
		}

		o, err := order.NewOrder(businessID, sc.area.ID, sc.cycle.ID, req.ClientID, isPreReceipt, seq)
		if err != nil {
			return err
		}
		o.SetCreatedBy(userID)
		o.DiscountPercent = req.DiscountPercent
		o.CommissionPercent = req.CommissionPercent
		o.HouseCosted = req.HouseCosted
		o.Notes = req.Notes
		o.PaymentDeadlineAt = req.PaymentDeadlineAt
		for _, line := range lines {
			if err := o.AddLine(line); err != nil {
				return err
			}
			if line.ProductionAreaID != nil {
				productionAreas = true
			}
		}
		if req.Tip != nil {
			o.SetTip(req.Tip.Price())
		}
		if req.Shipping != nil {
			o.SetShipping(req.Shipping.Price())
		}

		couponDiscounts, err := s.applyCoupons(ctx, repos, o, req.Coupons, req.ClientID)
		if err != nil {
			return err
		}

		if !isPreReceipt {
			affectedStock, err = s.dispo.Substract(ctx, repos.Stock(), stockLinesOf(o.Lines), stockAreaFor(sc.area), businessID, !sc.business.AllowNegativeStock)
			if err != nil {
				return err
			}
		}

		if err := s.recomputeTotals(ctx, o, couponDiscounts); err != nil {
			return err
		}

		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		recordJobs = drainRecordJobs(o, userID)
		resp = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	jobs := append(recordJobs,
		Job{Code: JobNewOrderNotification, Params: map[string]any{"order_id": resp.ID.String(), "business_id": businessID.String()}})
	if productionAreas {
		jobs = append(jobs, Job{Code: JobProcessProductionAreas, Params: map[string]any{"order_id": resp.ID.String(), "business_id": businessID.String()}})
	}
	if len(affectedStock) > 0 {
		jobs = append(jobs, checkingProductJob(businessID, affectedStock))
	}
	s.dispatcher.Dispatch(ctx, jobs...)
	return resp, nil
}

// EditOrder adds and removes line items, reconciling stock against addon
// sub-quantities as well as parent quantities.
func (s *Service) EditOrder(ctx context.Context, businessID, userID, orderID uuid.UUID, req *EditOrderRequest) (*OrderResponse, error) {
	var (
		resp          *OrderResponse
		affectedStock []uuid.UUID
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, businessID, orderID)
		if err != nil {
			return err
		}
		if o.IsClosed() {
			return order.ErrOrderClosed
		}
		sc, err := s.loadSaleContext(ctx, businessID, o.AreaID)
		if err != nil {
			return err
		}

		for _, del := range req.Deleted {
			line := o.GetLine(del.LineID)
			if line == nil {
				return shared.ErrNotFound
			}
			before := line.StockMovements()

			if del.Quantity == nil {
				if _, err := o.RemoveLine(del.LineID); err != nil {
					return err
				}
			} else {
				if _, err := o.ReduceLine(del.LineID, *del.Quantity); err != nil {
					return err
				}
			}
			kept := o.GetLine(del.LineID)

			// Pre-bills never reserved stock, nothing to restore.
			if o.IsPreReceipt {
				continue
			}
			var after []order.StockMovement
			if kept != nil {
				after = kept.StockMovements()
			}
			restored, err := s.dispo.Restore(ctx, repos.Stock(), diffMovements(before, after), stockAreaFor(sc.area), businessID, userID)
			if err != nil {
				return err
			}
			affectedStock = append(affectedStock, restored...)
		}

		if len(req.Added) > 0 {
			lines, err := s.builder.buildLines(ctx, businessID, req.Added, sc.rates)
			if err != nil {
				return err
			}
			for _, line := range lines {
				if err := o.AddLine(line); err != nil {
					return err
				}
			}
			if !o.IsPreReceipt {
				substracted, err := s.dispo.Substract(ctx, repos.Stock(), stockLinesOf(lines), stockAreaFor(sc.area), businessID, !sc.business.AllowNegativeStock)
				if err != nil {
					return err
				}
				affectedStock = append(affectedStock, substracted...)
			}
		}

		if err := s.recomputeTotals(ctx, o, currentCouponDiscounts(o)); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		resp = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	jobs := []Job{{Code: JobRegisterRecords, Params: map[string]any{"order_id": orderID.String(), "business_id": businessID.String(), "user_id": userID.String(), "action": "ORDER_EDITED"}}}
	if len(affectedStock) > 0 {
		jobs = append(jobs, checkingProductJob(businessID, affectedStock))
	}
	s.dispatcher.Dispatch(ctx, jobs...)
	return resp, nil
}

// RegisterPayment settles an order, either partially or in full. The order
// row is locked for the duration of the transaction so two concurrent payment
// attempts cannot both observe "not yet paid".
func (s *Service) RegisterPayment(ctx context.Context, businessID, userID, orderID uuid.UUID, req *RegisterPaymentRequest) (*OrderResponse, error) {
	if len(req.Payments) == 0 && len(req.PrepaidPaymentIDs) == 0 {
		return nil, shared.NewValidationError("PAYMENT_REQUIRED", "At least one payment or prepaid payment is required")
	}
	if req.IsPartialPay && len(req.PrepaidPaymentIDs) > 0 {
		return nil, shared.NewValidationError("PREPAID_ON_PARTIAL", "Prepaid payments can only be consumed by a full settlement")
	}

	var (
		resp       *OrderResponse
		recordJobs []Job
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, businessID, orderID)
		if err != nil {
			return err
		}
		if err := o.EnsurePayable(); err != nil {
			return err
		}
		sc, err := s.loadSaleContext(ctx, businessID, o.AreaID)
		if err != nil {
			return err
		}

		if req.IsPartialPay {
			err = s.registerPartialPayment(ctx, repos, o, sc, userID, req)
		} else {
			err = s.settleOrder(ctx, repos, o, sc, userID, req)
		}
		if err != nil {
			return err
		}

		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		recordJobs = drainRecordJobs(o, userID)
		resp = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, recordJobs...)
	return resp, nil
}

func (s *Service) registerPartialPayment(ctx context.Context, repos TransactionalRepositories, o *order.Order, sc *saleContext, userID uuid.UUID, req *RegisterPaymentRequest) error {
	if err := s.recomputeTotals(ctx, o, currentCouponDiscounts(o)); err != nil {
		return err
	}

	owed, err := s.sumInMainCurrency(o.Totals(), sc)
	if err != nil {
		return err
	}
	alreadyPaid, err := s.sumInMainCurrency(o.PartialPaidTotal(), sc)
	if err != nil {
		return err
	}
	received, err := s.sumPaymentsInMainCurrency(req.Payments, sc)
	if err != nil {
		return err
	}

	remaining := valueobject.Subtract(owed, alreadyPaid, valueobject.MoneyPrecision)
	if received.GreaterThanOrEqual(remaining) {
		return order.ErrAmountExceedsOrder
	}

	for _, in := range req.Payments {
		pp, err := order.NewPartialPayment(o.BusinessID, sc.cycle.ID, o.AreaID, in.Amount, valueobject.Currency(in.Currency), order.PaymentMethod(in.Method))
		if err != nil {
			return err
		}

		op, err := cashregister.NewDeposit(o.BusinessID, sc.cycle.ID, o.AreaID, userID, cashregister.KindDepositSale, in.Amount, valueobject.Currency(in.Currency))
		if err != nil {
			return err
		}
		op.LinkOrder(o.ID).LinkPartialPayment(pp.ID)
		if err := repos.CashOperations().Append(ctx, op); err != nil {
			return err
		}
		pp.CashRegisterOperationID = &op.ID

		if err := o.RegisterPartialPayment(pp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) settleOrder(ctx context.Context, repos TransactionalRepositories, o *order.Order, sc *saleContext, userID uuid.UUID, req *RegisterPaymentRequest) error {
	// Coupons are not additive across payment attempts: release whatever a
	// previous attempt recorded and start clean, so one settled order never
	// burns more than one usage per coupon.
	if err := s.releaseCoupons(ctx, repos, o); err != nil {
		return err
	}
	couponDiscounts, err := s.applyCoupons(ctx, repos, o, req.Coupons, o.ClientID)
	if err != nil {
		return err
	}
	if err := s.recomputeTotals(ctx, o, couponDiscounts); err != nil {
		return err
	}

	prepaids, err := s.loadPrepaids(ctx, repos, o.BusinessID, req.PrepaidPaymentIDs)
	if err != nil {
		return err
	}

	owed, err := s.sumInMainCurrency(o.Totals(), sc)
	if err != nil {
		return err
	}
	alreadyPaid, err := s.sumInMainCurrency(o.PartialPaidTotal(), sc)
	if err != nil {
		return err
	}
	received, err := s.sumPaymentsInMainCurrency(req.Payments, sc)
	if err != nil {
		return err
	}
	for _, p := range prepaids {
		converted, err := valueobject.Exchange(p.Price(), sc.business.MainCurrency, sc.rates, valueobject.MoneyPrecision)
		if err != nil {
			return currencyError(err)
		}
		received = valueobject.Add(received, converted.Amount, valueobject.MoneyPrecision)
	}

	remaining := valueobject.Subtract(owed, alreadyPaid, valueobject.MoneyPrecision)
	if received.LessThan(remaining) {
		return order.ErrAmountInsufficient
	}
	if !sc.area.GiveChange && received.GreaterThan(remaining) {
		return order.ErrAmountExceedsOrder
	}

	payments := make([]order.CurrencyPayment, 0, len(req.Payments))
	for _, in := range req.Payments {
		cp, err := order.NewCurrencyPayment(in.Amount, valueobject.Currency(in.Currency), order.PaymentMethod(in.Method))
		if err != nil {
			return err
		}
		payments = append(payments, cp)
	}

	var amountReturned *valueobject.Price
	if req.AmountReturned != nil {
		p := req.AmountReturned.Price()
		amountReturned = &p
	}

	if err := o.MarkBilled(payments, amountReturned); err != nil {
		return err
	}

	for _, p := range prepaids {
		if err := p.MarkUsed(o.ID); err != nil {
			return err
		}
		if err := repos.PrepaidPayments().Save(ctx, p); err != nil {
			return err
		}
	}

	return s.appendSettlementLedger(ctx, repos, o, sc, userID, payments, prepaids, amountReturned)
}

// appendSettlementLedger writes the cash-register entries of a full
// settlement: one DEPOSIT_SALE per received payment, the tip split into its
// own DEPOSIT_TIP entry when the business keeps tips separate, a
// WITHDRAW_SHIPPING_PRICE when shipping is owed to a courier, and a
// WITHDRAW_EXCHANGE for change handed back.
func (s *Service) appendSettlementLedger(ctx context.Context, repos TransactionalRepositories, o *order.Order, sc *saleContext, userID uuid.UUID, payments []order.CurrencyPayment, prepaids []*order.PrepaidPayment, amountReturned *valueobject.Price) error {
	deposits := make(map[valueobject.Currency]decimal.Decimal)
	depositOrder := make([]valueobject.Currency, 0, 2)
	for _, p := range payments {
		if _, ok := deposits[p.Currency]; !ok {
			depositOrder = append(depositOrder, p.Currency)
		}
		deposits[p.Currency] = deposits[p.Currency].Add(p.Amount)
	}

	tip := o.TipPrice
	if sc.business.SeparateTipEntries && tip != nil && tip.IsPositive() {
		if amount, ok := deposits[tip.Currency]; ok && amount.GreaterThanOrEqual(tip.Amount) {
			deposits[tip.Currency] = amount.Sub(tip.Amount)
			op, err := cashregister.NewDeposit(o.BusinessID, sc.cycle.ID, o.AreaID, userID, cashregister.KindDepositTip, tip.Amount, tip.Currency)
			if err != nil {
				return err
			}
			if err := repos.CashOperations().Append(ctx, op.LinkOrder(o.ID)); err != nil {
				return err
			}
		}
	}

	for _, currency := range depositOrder {
		amount := deposits[currency]
		if !amount.IsPositive() {
			continue
		}
		op, err := cashregister.NewDeposit(o.BusinessID, sc.cycle.ID, o.AreaID, userID, cashregister.KindDepositSale, amount, currency)
		if err != nil {
			return err
		}
		if err := repos.CashOperations().Append(ctx, op.LinkOrder(o.ID)); err != nil {
			return err
		}
	}

	for _, p := range prepaids {
		op, err := cashregister.NewDeposit(o.BusinessID, sc.cycle.ID, o.AreaID, userID, cashregister.KindDepositSale, p.Amount, p.Currency)
		if err != nil {
			return err
		}
		if err := repos.CashOperations().Append(ctx, op.LinkOrder(o.ID).LinkPrepaidPayment(p.ID)); err != nil {
			return err
		}
	}

	if amountReturned != nil && amountReturned.IsPositive() {
		op, err := cashregister.NewWithdraw(o.BusinessID, sc.cycle.ID, o.AreaID, userID, cashregister.KindWithdrawExchange, amountReturned.Amount, amountReturned.Currency)
		if err != nil {
			return err
		}
		if err := repos.CashOperations().Append(ctx, op.LinkOrder(o.ID)); err != nil {
			return err
		}
	}
	return nil
}

// CancelOrder cancels an open order, or a billed one still inside its
// economic cycle. Stock is restored and billed money compensated with
// withdraw entries; history is never edited.
func (s *Service) CancelOrder(ctx context.Context, businessID, userID, orderID uuid.UUID, req *CancelOrderRequest) (*OrderResponse, error) {
	var (
		resp          *OrderResponse
		recordJobs    []Job
		affectedStock []uuid.UUID
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, businessID, orderID)
		if err != nil {
			return err
		}
		sc, err := s.loadSaleContext(ctx, businessID, o.AreaID)
		if err != nil {
			return err
		}

		wasPreReceipt := o.IsPreReceipt
		paid := o.PaidTotal()
		partials := o.PartialPaidTotal()
		wasBilled := o.Status == order.StatusBilled

		if err := o.Cancel(req.Notes, o.EconomicCycleID == sc.cycle.ID); err != nil {
			return err
		}

		if !wasPreReceipt {
			affectedStock, err = s.dispo.Restore(ctx, repos.Stock(), stockLinesOf(o.Lines), stockAreaFor(sc.area), businessID, userID)
			if err != nil {
				return err
			}
		}

		compensate := partials
		if wasBilled {
			compensate = paid
		}
		if err := s.appendCompensatingWithdraws(ctx, repos, o, sc, userID, compensate, "order cancelled"); err != nil {
			return err
		}

		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		recordJobs = drainRecordJobs(o, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	jobs := recordJobs
	if len(affectedStock) > 0 {
		jobs = append(jobs, checkingProductJob(businessID, affectedStock))
	}
	s.dispatcher.Dispatch(ctx, jobs...)
	if resp == nil {
		// Cancel does not return the full receipt; fetch-free acknowledgement
		// keeps the transaction minimal.
		resp = &OrderResponse{ID: orderID, Status: order.StatusCancelled.String()}
	}
	return resp, nil
}

// RefundOrder reverses a billed order (full paid total) or a payment-pending
// one (sum of partial payments). Money flows back through compensating
// MANUAL_WITHDRAW entries and stock returns to disponibility.
func (s *Service) RefundOrder(ctx context.Context, businessID, userID, orderID uuid.UUID) (*OrderResponse, error) {
	var (
		resp          *OrderResponse
		recordJobs    []Job
		affectedStock []uuid.UUID
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, businessID, orderID)
		if err != nil {
			return err
		}
		sc, err := s.loadSaleContext(ctx, businessID, o.AreaID)
		if err != nil {
			return err
		}

		var amounts []valueobject.Price
		switch o.Status {
		case order.StatusBilled:
			amounts = o.PaidTotal()
			if len(amounts) == 0 {
				amounts = o.Totals()
			}
		case order.StatusPaymentPending, order.StatusOverdue:
			amounts = o.PartialPaidTotal()
			if len(amounts) == 0 {
				return order.ErrNoPartialPaymentsToRefund
			}
		}

		wasPreReceipt := o.IsPreReceipt
		if err := o.Refund(); err != nil {
			return err
		}

		if !wasPreReceipt {
			affectedStock, err = s.dispo.Restore(ctx, repos.Stock(), stockLinesOf(o.Lines), stockAreaFor(sc.area), businessID, userID)
			if err != nil {
				return err
			}
		}

		if err := s.appendCompensatingWithdraws(ctx, repos, o, sc, userID, amounts, "order refunded"); err != nil {
			return err
		}

		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		recordJobs = drainRecordJobs(o, userID)
		resp = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	jobs := recordJobs
	if len(affectedStock) > 0 {
		jobs = append(jobs, checkingProductJob(businessID, affectedStock))
	}
	s.dispatcher.Dispatch(ctx, jobs...)
	return resp, nil
}

func (s *Service) appendCompensatingWithdraws(ctx context.Context, repos TransactionalRepositories, o *order.Order, sc *saleContext, userID uuid.UUID, amounts []valueobject.Price, reason string) error {
	for _, amount := range amounts {
		if !amount.IsPositive() {
			continue
		}
		op, err := cashregister.NewWithdraw(o.BusinessID, sc.cycle.ID, o.AreaID, userID, cashregister.KindManualWithdraw, amount.Amount, amount.Currency)
		if err != nil {
			return err
		}
		if err := repos.CashOperations().Append(ctx, op.LinkOrder(o.ID).WithObservations(reason)); err != nil {
			return err
		}
	}
	return nil
}

// TransformPreBillToBill converts a pre-receipt into a bill: reserves the
// stock deferred at creation time and assigns the next operation number.
func (s *Service) TransformPreBillToBill(ctx context.Context, businessID, userID, orderID uuid.UUID, req *TransformToBillRequest) (*OrderResponse, error) {
	var (
		resp          *OrderResponse
		recordJobs    []Job
		affectedStock []uuid.UUID
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, businessID, orderID)
		if err != nil {
			return err
		}
		sc, err := s.loadSaleContext(ctx, businessID, o.AreaID)
		if err != nil {
			return err
		}

		seq, err := repos.Orders().NextOperationNumber(ctx, businessID, sc.business.OperationNumberScope, sc.cycle.ID)
		if err != nil {
			return err
		}

		var shipping *valueobject.Price
		if req.Shipping != nil {
			p := req.Shipping.Price()
			shipping = &p
		}
		if err := o.TransformToBill(seq, shipping, req.PaymentDeadlineAt); err != nil {
			return err
		}

		affectedStock, err = s.dispo.Substract(ctx, repos.Stock(), stockLinesOf(o.Lines), stockAreaFor(sc.area), businessID, !sc.business.AllowNegativeStock)
		if err != nil {
			return err
		}

		if err := s.recomputeTotals(ctx, o, currentCouponDiscounts(o)); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		recordJobs = drainRecordJobs(o, userID)
		resp = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	jobs := recordJobs
	if len(affectedStock) > 0 {
		jobs = append(jobs, checkingProductJob(businessID, affectedStock))
	}
	s.dispatcher.Dispatch(ctx, jobs...)
	return resp, nil
}

// MarkOverdueOrders sweeps PAYMENT_PENDING orders past their deadline into
// OVERDUE. Meant to run from a periodic background job.
func (s *Service) MarkOverdueOrders(ctx context.Context, businessID uuid.UUID, asOf time.Time) (int, error) {
	marked := 0
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		overdue, err := repos.Orders().FindOverdue(ctx, businessID, asOf)
		if err != nil {
			return err
		}
		for i := range overdue {
			o := &overdue[i]
			if err := o.MarkOverdue(asOf); err != nil {
				s.logger.Warn("skipping overdue mark",
					zap.String("order_id", o.ID.String()),
					zap.Error(err))
				continue
			}
			if err := repos.Orders().Save(ctx, o); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	return marked, err
}

// GetOrder loads one order with all its children
func (s *Service) GetOrder(ctx context.Context, businessID, orderID uuid.UUID) (*OrderResponse, error) {
	var resp *OrderResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForBusiness(ctx, businessID, orderID)
		if err != nil {
			return err
		}
		resp = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListOrders pages through the orders of a business
func (s *Service) ListOrders(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]*OrderResponse, int64, error) {
	var (
		responses []*OrderResponse
		total     int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		orders, count, err := repos.Orders().FindAllForBusiness(ctx, businessID, filter)
		if err != nil {
			return err
		}
		total = count
		responses = make([]*OrderResponse, 0, len(orders))
		for i := range orders {
			responses = append(responses, ToOrderResponse(&orders[i]))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return responses, total, nil
}

// ==================== helpers ====================

// applyCoupons validates and applies coupon codes: it computes the discounts,
// increments usage counters and records redemptions, all under the caller's
// transaction so a failed order never burns a redemption.
func (s *Service) applyCoupons(ctx context.Context, repos TransactionalRepositories, o *order.Order, codes []string, clientID *uuid.UUID) ([]valueobject.Price, error) {
	if len(codes) == 0 {
		return currentCouponDiscounts(o), nil
	}

	lines := make([]appcoupon.ProductTotal, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, appcoupon.ProductTotal{ProductID: l.ProductID, Total: l.TotalPrice})
	}

	result, err := s.coupons.Process(ctx, repos.Coupons(), codes, lines, o.BusinessID, clientID)
	if err != nil {
		return nil, err
	}

	for _, c := range result.Applied {
		c.RegisterUse()
		if err := repos.Coupons().Save(ctx, c); err != nil {
			return nil, err
		}
		if err := repos.Coupons().RecordRedemption(ctx, coupon.NewOrderReceiptCoupon(o.BusinessID, c.ID, o.ID, clientID)); err != nil {
			return nil, err
		}
	}

	if len(result.Discounts) > 0 {
		o.SetCouponDiscount(result.Discounts[0])
	}
	return result.Discounts, nil
}

// recordActions maps raised domain events to activity-record actions.
var recordActions = map[string]string{
	order.EventOrderCreated:             "ORDER_CREATED",
	order.EventOrderBilled:              "ORDER_BILLED",
	order.EventOrderCancelled:           "ORDER_CANCELLED",
	order.EventOrderRefunded:            "ORDER_REFUNDED",
	order.EventPartialPaymentRegistered: "PARTIAL_PAYMENT_REGISTERED",
	order.EventPreBillTransformed:       "PRE_BILL_TRANSFORMED",
}

// drainRecordJobs converts the aggregate's pending domain events into
// REGISTER_RECORDS jobs and clears them. Called inside the transaction so the
// jobs exist only when the mutation that raised the events commits.
func drainRecordJobs(o *order.Order, userID uuid.UUID) []Job {
	events := o.GetDomainEvents()
	jobs := make([]Job, 0, len(events))
	for _, ev := range events {
		action, ok := recordActions[ev.EventType()]
		if !ok {
			continue
		}
		jobs = append(jobs, Job{Code: JobRegisterRecords, Params: map[string]any{
			"event_id":    ev.EventID().String(),
			"order_id":    o.ID.String(),
			"business_id": o.BusinessID.String(),
			"user_id":     userID.String(),
			"action":      action,
		}})
	}
	o.ClearDomainEvents()
	return jobs
}

// releaseCoupons reverses the redemptions an earlier payment attempt recorded
// for this order: usage counters are decremented, the redemption rows deleted
// and the discount dropped from the order.
func (s *Service) releaseCoupons(ctx context.Context, repos TransactionalRepositories, o *order.Order) error {
	redemptions, err := repos.Coupons().RedemptionsByOrder(ctx, o.BusinessID, o.ID)
	if err != nil {
		return err
	}
	for _, rec := range redemptions {
		c, err := repos.Coupons().FindByID(ctx, o.BusinessID, rec.CouponID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return err
		}
		c.ReleaseUse()
		if err := repos.Coupons().Save(ctx, c); err != nil {
			return err
		}
	}
	if len(redemptions) > 0 {
		if err := repos.Coupons().DeleteRedemptionsByOrder(ctx, o.BusinessID, o.ID); err != nil {
			return err
		}
	}
	o.ClearCouponDiscount()
	return nil
}

// recomputeTotals mirrors the aggregate into the transaction cache, runs the
// total calculator against that snapshot and installs the authoritative
// totals on the order. Always the last step before persisting.
func (s *Service) recomputeTotals(ctx context.Context, o *order.Order, couponDiscounts []valueobject.Price) error {
	txID := uuid.New().String()
	snap := &OrderSnapshot{
		TransactionID:     txID,
		BusinessID:        o.BusinessID,
		OrderID:           o.ID,
		DiscountPercent:   o.DiscountPercent,
		CommissionPercent: o.CommissionPercent,
		Tip:               o.TipPrice,
		Shipping:          o.ShippingPrice,
		CouponDiscounts:   couponDiscounts,
	}
	for _, l := range o.Lines {
		snap.Lines = append(snap.Lines, SnapshotLine{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			TotalAmount: l.TotalPrice.Amount,
			Currency:    l.TotalPrice.Currency,
		})
	}
	if err := s.cache.Set(ctx, snap); err != nil {
		return err
	}
	defer func() {
		if err := s.cache.Expire(ctx, o.BusinessID, txID); err != nil {
			s.logger.Warn("failed to expire transaction cache key",
				zap.String("transaction_id", txID),
				zap.Error(err))
		}
	}()

	breakdown, err := s.calculator.Recompute(ctx, o.BusinessID, txID)
	if err != nil {
		return err
	}
	o.SetTotals(breakdown.TotalToPay)
	return nil
}

func currentCouponDiscounts(o *order.Order) []valueobject.Price {
	if o.CouponDiscountPrice == nil {
		return nil
	}
	return []valueobject.Price{*o.CouponDiscountPrice}
}

func (s *Service) loadPrepaids(ctx context.Context, repos TransactionalRepositories, businessID uuid.UUID, ids []uuid.UUID) ([]*order.PrepaidPayment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	prepaids, err := repos.PrepaidPayments().FindByIDsForBusiness(ctx, businessID, ids)
	if err != nil {
		return nil, err
	}
	if len(prepaids) != len(ids) {
		return nil, shared.NewValidationError("PREPAID_NOT_FOUND", "One or more prepaid payments do not exist")
	}
	return prepaids, nil
}

func (s *Service) sumInMainCurrency(prices []valueobject.Price, sc *saleContext) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range prices {
		converted, err := valueobject.Exchange(p, sc.business.MainCurrency, sc.rates, valueobject.MoneyPrecision)
		if err != nil {
			return decimal.Zero, currencyError(err)
		}
		total = valueobject.Add(total, converted.Amount, valueobject.MoneyPrecision)
	}
	return total, nil
}

func (s *Service) sumPaymentsInMainCurrency(payments []PaymentInput, sc *saleContext) (decimal.Decimal, error) {
	prices := make([]valueobject.Price, 0, len(payments))
	for _, p := range payments {
		prices = append(prices, valueobject.Price{Amount: p.Amount, Currency: valueobject.Currency(p.Currency)})
	}
	return s.sumInMainCurrency(prices, sc)
}

func currencyError(err error) error {
	var notAvailable *valueobject.ErrCurrencyNotAvailable
	if errors.As(err, &notAvailable) {
		return shared.NewValidationError("CURRENCY_NOT_AVAILABLE", notAvailable.Error())
	}
	return err
}

func stockLinesOf(lines []order.SelledProduct) []appinventory.StockLine {
	out := make([]appinventory.StockLine, 0, len(lines))
	for i := range lines {
		for _, m := range lines[i].StockMovements() {
			out = append(out, appinventory.StockLine{ProductID: m.ProductID, VariationID: m.VariationID, Quantity: m.Quantity})
		}
	}
	return out
}

// diffMovements computes before minus after per (product, variation): the
// quantities that must flow back to stock after a reduction.
func diffMovements(before, after []order.StockMovement) []appinventory.StockLine {
	type key struct {
		product   uuid.UUID
		variation uuid.UUID
	}
	keyOf := func(m order.StockMovement) key {
		k := key{product: m.ProductID}
		if m.VariationID != nil {
			k.variation = *m.VariationID
		}
		return k
	}

	remaining := make(map[key]decimal.Decimal, len(after))
	for _, m := range after {
		remaining[keyOf(m)] = remaining[keyOf(m)].Add(m.Quantity)
	}

	out := make([]appinventory.StockLine, 0, len(before))
	for _, m := range before {
		delta := m.Quantity.Sub(remaining[keyOf(m)])
		if delta.IsPositive() {
			out = append(out, appinventory.StockLine{ProductID: m.ProductID, VariationID: m.VariationID, Quantity: delta})
		}
	}
	return out
}

func checkingProductJob(businessID uuid.UUID, productIDs []uuid.UUID) Job {
	ids := make([]string, 0, len(productIDs))
	seen := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id.String())
	}
	return Job{Code: JobCheckingProduct, Params: map[string]any{"business_id": businessID.String(), "product_ids": ids}}
}
