package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appcoupon "github.com/salepoint/backend/internal/application/coupon"
	appinventory "github.com/salepoint/backend/internal/application/inventory"
	"github.com/salepoint/backend/internal/domain/business"
	"github.com/salepoint/backend/internal/domain/cashregister"
	"github.com/salepoint/backend/internal/domain/catalog"
	"github.com/salepoint/backend/internal/domain/coupon"
	"github.com/salepoint/backend/internal/domain/inventory"
	"github.com/salepoint/backend/internal/domain/order"
	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

// ==================== in-memory repositories ====================

type memOrderRepo struct {
	orders  map[uuid.UUID]*order.Order
	nextOp  int
	nextPre int
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*order.Order)}
}

func (r *memOrderRepo) FindByIDForBusiness(_ context.Context, businessID, id uuid.UUID) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok || o.BusinessID != businessID {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (r *memOrderRepo) FindByIDForUpdate(ctx context.Context, businessID, id uuid.UUID) (*order.Order, error) {
	return r.FindByIDForBusiness(ctx, businessID, id)
}

func (r *memOrderRepo) FindAllForBusiness(_ context.Context, businessID uuid.UUID, _ shared.Filter) ([]order.Order, int64, error) {
	var out []order.Order
	for _, o := range r.orders {
		if o.BusinessID == businessID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) FindOverdue(_ context.Context, businessID uuid.UUID, asOf time.Time) ([]order.Order, error) {
	var out []order.Order
	for _, o := range r.orders {
		if o.BusinessID == businessID && o.Status == order.StatusPaymentPending &&
			o.PaymentDeadlineAt != nil && o.PaymentDeadlineAt.Before(asOf) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) Save(_ context.Context, o *order.Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *memOrderRepo) NextOperationNumber(_ context.Context, _ uuid.UUID, _ order.OperationNumberScope, _ uuid.UUID) (int, error) {
	r.nextOp++
	return r.nextOp, nil
}

func (r *memOrderRepo) NextPreOperationNumber(_ context.Context, _ uuid.UUID) (int, error) {
	r.nextPre++
	return r.nextPre, nil
}

type memPrepaidRepo struct {
	payments map[uuid.UUID]*order.PrepaidPayment
}

func newMemPrepaidRepo() *memPrepaidRepo {
	return &memPrepaidRepo{payments: make(map[uuid.UUID]*order.PrepaidPayment)}
}

func (r *memPrepaidRepo) FindByIDsForBusiness(_ context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]*order.PrepaidPayment, error) {
	var out []*order.PrepaidPayment
	for _, id := range ids {
		if p, ok := r.payments[id]; ok && p.BusinessID == businessID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPrepaidRepo) Save(_ context.Context, p *order.PrepaidPayment) error {
	r.payments[p.ID] = p
	return nil
}

type memStockRepo struct {
	rows map[string]*inventory.StockAreaProduct
	txs  []*inventory.StockTransaction
}

func newMemStockRepo() *memStockRepo {
	return &memStockRepo{rows: make(map[string]*inventory.StockAreaProduct)}
}

func stockKey(areaID, productID uuid.UUID, variationID *uuid.UUID) string {
	v := ""
	if variationID != nil {
		v = variationID.String()
	}
	return fmt.Sprintf("%s/%s/%s", areaID, productID, v)
}

func (r *memStockRepo) FindByAreaAndProduct(_ context.Context, _, areaID, productID uuid.UUID, variationID *uuid.UUID) (*inventory.StockAreaProduct, error) {
	row, ok := r.rows[stockKey(areaID, productID, variationID)]
	if !ok {
		return nil, inventory.ErrStockAreaProductNotFound
	}
	return row, nil
}

func (r *memStockRepo) FindByAreaAndProductForUpdate(ctx context.Context, businessID, areaID, productID uuid.UUID, variationID *uuid.UUID) (*inventory.StockAreaProduct, error) {
	return r.FindByAreaAndProduct(ctx, businessID, areaID, productID, variationID)
}

func (r *memStockRepo) Save(_ context.Context, s *inventory.StockAreaProduct) error {
	r.rows[stockKey(s.AreaID, s.ProductID, s.VariationID)] = s
	return nil
}

func (r *memStockRepo) AppendTransactions(_ context.Context, txs ...*inventory.StockTransaction) error {
	r.txs = append(r.txs, txs...)
	return nil
}

type memCashRepo struct {
	ops []*cashregister.Operation
}

func (r *memCashRepo) Append(_ context.Context, ops ...*cashregister.Operation) error {
	r.ops = append(r.ops, ops...)
	return nil
}

func (r *memCashRepo) FindByOrder(_ context.Context, _, orderID uuid.UUID) ([]cashregister.Operation, error) {
	var out []cashregister.Operation
	for _, op := range r.ops {
		if op.OrderID != nil && *op.OrderID == orderID {
			out = append(out, *op)
		}
	}
	return out, nil
}

func (r *memCashRepo) FindByCycle(_ context.Context, _, cycleID uuid.UUID) ([]cashregister.Operation, error) {
	var out []cashregister.Operation
	for _, op := range r.ops {
		if op.EconomicCycleID == cycleID {
			out = append(out, *op)
		}
	}
	return out, nil
}

type memCouponRepo struct {
	coupons     map[string]*coupon.Coupon
	redemptions []*coupon.OrderReceiptCoupon
}

func newMemCouponRepo() *memCouponRepo {
	return &memCouponRepo{coupons: make(map[string]*coupon.Coupon)}
}

func (r *memCouponRepo) FindByCodes(_ context.Context, businessID uuid.UUID, codes []string) ([]*coupon.Coupon, error) {
	var out []*coupon.Coupon
	for _, code := range codes {
		if c, ok := r.coupons[code]; ok && c.BusinessID == businessID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCouponRepo) CountClientUsage(_ context.Context, _, couponID, clientID uuid.UUID) (int, error) {
	count := 0
	for _, red := range r.redemptions {
		if red.CouponID == couponID && red.ClientID != nil && *red.ClientID == clientID {
			count++
		}
	}
	return count, nil
}

func (r *memCouponRepo) FindByID(_ context.Context, businessID, id uuid.UUID) (*coupon.Coupon, error) {
	for _, c := range r.coupons {
		if c.ID == id && c.BusinessID == businessID {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memCouponRepo) Save(_ context.Context, c *coupon.Coupon) error {
	r.coupons[c.Code] = c
	return nil
}

func (r *memCouponRepo) RecordRedemption(_ context.Context, red *coupon.OrderReceiptCoupon) error {
	r.redemptions = append(r.redemptions, red)
	return nil
}

func (r *memCouponRepo) RedemptionsByOrder(_ context.Context, businessID, orderID uuid.UUID) ([]*coupon.OrderReceiptCoupon, error) {
	var out []*coupon.OrderReceiptCoupon
	for _, red := range r.redemptions {
		if red.BusinessID == businessID && red.OrderID == orderID {
			out = append(out, red)
		}
	}
	return out, nil
}

func (r *memCouponRepo) DeleteRedemptionsByOrder(_ context.Context, businessID, orderID uuid.UUID) error {
	kept := r.redemptions[:0]
	for _, red := range r.redemptions {
		if red.BusinessID != businessID || red.OrderID != orderID {
			kept = append(kept, red)
		}
	}
	r.redemptions = kept
	return nil
}

// ==================== read-side fakes ====================

type memBusinessRepo struct{ b *business.Business }

func (r *memBusinessRepo) FindByID(_ context.Context, id uuid.UUID) (*business.Business, error) {
	if r.b == nil || r.b.ID != id {
		return nil, shared.ErrNotFound
	}
	return r.b, nil
}

func (r *memBusinessRepo) FindBySlug(_ context.Context, slug string) (*business.Business, error) {
	if r.b == nil || r.b.Slug != slug {
		return nil, shared.ErrNotFound
	}
	return r.b, nil
}

func (r *memBusinessRepo) Save(_ context.Context, b *business.Business) error {
	r.b = b
	return nil
}

type memAreaRepo struct{ areas map[uuid.UUID]*business.Area }

func (r *memAreaRepo) FindByID(_ context.Context, _, id uuid.UUID) (*business.Area, error) {
	a, ok := r.areas[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (r *memAreaRepo) FindAllForBusiness(_ context.Context, _ uuid.UUID) ([]business.Area, error) {
	var out []business.Area
	for _, a := range r.areas {
		out = append(out, *a)
	}
	return out, nil
}

func (r *memAreaRepo) Save(_ context.Context, a *business.Area) error {
	r.areas[a.ID] = a
	return nil
}

type memClientRepo struct{ clients map[uuid.UUID]*business.Client }

func (r *memClientRepo) FindByID(_ context.Context, _, id uuid.UUID) (*business.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *memClientRepo) Save(_ context.Context, c *business.Client) error {
	r.clients[c.ID] = c
	return nil
}

type memCycleRepo struct{ cycles map[uuid.UUID]*cashregister.EconomicCycle }

func (r *memCycleRepo) FindActive(_ context.Context, businessID uuid.UUID) (*cashregister.EconomicCycle, error) {
	for _, c := range r.cycles {
		if c.BusinessID == businessID && c.IsActive {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memCycleRepo) FindByID(_ context.Context, _, id uuid.UUID) (*cashregister.EconomicCycle, error) {
	c, ok := r.cycles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *memCycleRepo) Save(_ context.Context, c *cashregister.EconomicCycle) error {
	r.cycles[c.ID] = c
	return nil
}

type memProductRepo struct{ products map[uuid.UUID]*catalog.Product }

func (r *memProductRepo) FindByID(_ context.Context, _, id uuid.UUID) (*catalog.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *memProductRepo) FindByIDs(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	out := make(map[uuid.UUID]*catalog.Product)
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *memProductRepo) Save(_ context.Context, p *catalog.Product) error {
	r.products[p.ID] = p
	return nil
}

// ==================== cache and dispatcher fakes ====================

type memTransactionCache struct{ snaps map[string]*OrderSnapshot }

func newMemTransactionCache() *memTransactionCache {
	return &memTransactionCache{snaps: make(map[string]*OrderSnapshot)}
}

func cacheKey(businessID uuid.UUID, txID string) string {
	return businessID.String() + "/" + txID
}

func (c *memTransactionCache) Set(_ context.Context, snap *OrderSnapshot) error {
	c.snaps[cacheKey(snap.BusinessID, snap.TransactionID)] = snap
	return nil
}

func (c *memTransactionCache) Get(_ context.Context, businessID uuid.UUID, txID string) (*OrderSnapshot, error) {
	snap, ok := c.snaps[cacheKey(businessID, txID)]
	if !ok {
		return nil, shared.NewInfrastructureError("TRANSACTION_CACHE_MISS", "Snapshot not found")
	}
	return snap, nil
}

func (c *memTransactionCache) Expire(_ context.Context, businessID uuid.UUID, txID string) error {
	delete(c.snaps, cacheKey(businessID, txID))
	return nil
}

type memDispatcher struct{ jobs []Job }

func (d *memDispatcher) Dispatch(_ context.Context, jobs ...Job) {
	d.jobs = append(d.jobs, jobs...)
}

func (d *memDispatcher) codes() []string {
	out := make([]string, 0, len(d.jobs))
	for _, j := range d.jobs {
		out = append(out, j.Code)
	}
	return out
}

// ==================== fixture ====================

type fixture struct {
	svc *Service

	business  *business.Business
	saleArea  *business.Area
	stockArea *business.Area
	cycle     *cashregister.EconomicCycle
	client    *business.Client
	product   *catalog.Product

	orders     *memOrderRepo
	prepaids   *memPrepaidRepo
	stock      *memStockRepo
	cash       *memCashRepo
	couponRepo *memCouponRepo
	products   *memProductRepo
	cycles     *memCycleRepo
	areas      *memAreaRepo
	dispatcher *memDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	biz, err := business.NewBusiness("La Esquina", "la-esquina", valueobject.USD)
	require.NoError(t, err)
	require.NoError(t, biz.SetCurrencyRate(valueobject.EUR, decimal.NewFromFloat(1.1)))

	stockArea, err := business.NewStockArea(biz.ID, "Warehouse")
	require.NoError(t, err)
	saleArea, err := business.NewSaleArea(biz.ID, "Terrace", &stockArea.ID)
	require.NoError(t, err)

	cycle := cashregister.NewEconomicCycle(biz.ID, uuid.New(), "shift 1")
	client, err := business.NewClient(biz.ID, "Ana")
	require.NoError(t, err)

	product, err := catalog.NewProduct(biz.ID, "Sandwich", catalog.ProductTypeStock)
	require.NoError(t, err)
	require.NoError(t, product.AddPrice(decimal.NewFromInt(10), valueobject.USD, nil, nil, true))

	f := &fixture{
		business:   biz,
		saleArea:   saleArea,
		stockArea:  stockArea,
		cycle:      cycle,
		client:     client,
		product:    product,
		orders:     newMemOrderRepo(),
		prepaids:   newMemPrepaidRepo(),
		stock:      newMemStockRepo(),
		cash:       &memCashRepo{},
		couponRepo: newMemCouponRepo(),
		products:   &memProductRepo{products: map[uuid.UUID]*catalog.Product{product.ID: product}},
		cycles:     &memCycleRepo{cycles: map[uuid.UUID]*cashregister.EconomicCycle{cycle.ID: cycle}},
		areas:      &memAreaRepo{areas: map[uuid.UUID]*business.Area{saleArea.ID: saleArea, stockArea.ID: stockArea}},
		dispatcher: &memDispatcher{},
	}

	f.setStock(t, product.ID, nil, 10)

	logger := zap.NewNop()
	scope := NewNoOpTransactionScope(f.orders, f.prepaids, f.stock, f.cash, f.couponRepo)
	f.svc = NewService(
		scope,
		&memBusinessRepo{b: biz},
		f.areas,
		&memClientRepo{clients: map[uuid.UUID]*business.Client{client.ID: client}},
		f.cycles,
		f.products,
		appinventory.NewDisponibilityService(f.products, logger),
		appcoupon.NewProcessor(logger),
		newMemTransactionCache(),
		f.dispatcher,
		logger,
	)
	return f
}

func (f *fixture) setStock(t *testing.T, productID uuid.UUID, variationID *uuid.UUID, quantity int64) {
	t.Helper()
	row := inventory.NewStockAreaProduct(f.business.ID, f.stockArea.ID, productID, variationID)
	require.NoError(t, row.Restore(decimal.NewFromInt(quantity)))
	require.NoError(t, f.stock.Save(context.Background(), row))
}

func (f *fixture) stockQty(t *testing.T, productID uuid.UUID) decimal.Decimal {
	t.Helper()
	row, err := f.stock.FindByAreaAndProduct(context.Background(), f.business.ID, f.stockArea.ID, productID, nil)
	require.NoError(t, err)
	return row.Quantity
}

// standardBillRequest builds the reference order: 2 units at 10.00 USD,
// tip 1.00 USD, shipping 2.00 USD.
func (f *fixture) standardBillRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		AreaID:   f.saleArea.ID,
		ClientID: &f.client.ID,
		Lines: []LineInput{{
			ProductID: f.product.ID,
			Quantity:  decimal.NewFromInt(2),
			UnitPrice: PriceInput{Amount: decimal.NewFromInt(10), Currency: "USD"},
		}},
		Tip:      &PriceInput{Amount: decimal.NewFromInt(1), Currency: "USD"},
		Shipping: &PriceInput{Amount: decimal.NewFromInt(2), Currency: "USD"},
	}
}

func cashPayment(amount float64) PaymentInput {
	return PaymentInput{Amount: decimal.NewFromFloat(amount), Currency: "USD", Method: "CASH"}
}
