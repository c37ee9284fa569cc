package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salepoint/backend/internal/domain/cashregister"
	"github.com/salepoint/backend/internal/domain/coupon"
	"github.com/salepoint/backend/internal/domain/order"
	"github.com/salepoint/backend/internal/domain/shared"
	"github.com/salepoint/backend/internal/domain/shared/valueobject"
)

func TestService_CreateBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.CreateBill(ctx, f.business.ID, uuid.New(), f.standardBillRequest())
	require.NoError(t, err)

	assert.Equal(t, "PAYMENT_PENDING", resp.Status)
	assert.False(t, resp.IsPreReceipt)
	require.NotNil(t, resp.OperationNumber)

	// 2 * 10.00 + tip 1.00 + shipping 2.00
	require.Len(t, resp.TotalToPay, 1)
	assert.Equal(t, "23", resp.TotalToPay[0].Amount.String())
	assert.Equal(t, "USD", resp.TotalToPay[0].Currency)

	t.Run("stock was reserved", func(t *testing.T) {
		assert.Equal(t, "8", f.stockQty(t, f.product.ID).String())
	})

	t.Run("side effects dispatched after commit", func(t *testing.T) {
		assert.Contains(t, f.dispatcher.codes(), JobRegisterRecords)
		assert.Contains(t, f.dispatcher.codes(), JobCheckingProduct)
	})

	t.Run("insufficient stock fails the whole call", func(t *testing.T) {
		req := f.standardBillRequest()
		req.Lines[0].Quantity = decimal.NewFromInt(100)
		_, err := f.svc.CreateBill(ctx, f.business.ID, uuid.New(), req)
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INSUFFICIENT_STOCK", derr.Code)
		assert.Equal(t, "8", f.stockQty(t, f.product.ID).String())
	})

	t.Run("negative stock allowed when the business permits it", func(t *testing.T) {
		f.business.AllowNegativeStock = true
		req := f.standardBillRequest()
		req.Lines[0].Quantity = decimal.NewFromInt(100)
		_, err := f.svc.CreateBill(ctx, f.business.ID, uuid.New(), req)
		require.NoError(t, err)
		assert.True(t, f.stockQty(t, f.product.ID).IsNegative())
	})
}

func TestService_CreatePreBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.CreatePreBill(ctx, f.business.ID, uuid.New(), f.standardBillRequest())
	require.NoError(t, err)

	assert.Equal(t, "CREATED", resp.Status)
	assert.True(t, resp.IsPreReceipt)
	require.NotNil(t, resp.PreOperationNumber)
	assert.Nil(t, resp.OperationNumber)

	t.Run("stock is not touched", func(t *testing.T) {
		assert.Equal(t, "10", f.stockQty(t, f.product.ID).String())
	})

	t.Run("client is required", func(t *testing.T) {
		req := f.standardBillRequest()
		req.ClientID = nil
		_, err := f.svc.CreatePreBill(ctx, f.business.ID, uuid.New(), req)
		assert.ErrorIs(t, err, order.ErrClientRequired)
	})

	t.Run("unknown area", func(t *testing.T) {
		req := f.standardBillRequest()
		req.AreaID = uuid.New()
		_, err := f.svc.CreatePreBill(ctx, f.business.ID, uuid.New(), req)
		assert.ErrorIs(t, err, order.ErrAreaNotFound)
	})

	t.Run("no active economic cycle", func(t *testing.T) {
		require.NoError(t, f.cycle.Close(uuid.New()))
		_, err := f.svc.CreatePreBill(ctx, f.business.ID, uuid.New(), f.standardBillRequest())
		assert.ErrorIs(t, err, order.ErrNoActiveEconomicCycle)
		f.cycle.IsActive = true
	})

	t.Run("unknown product", func(t *testing.T) {
		req := f.standardBillRequest()
		req.Lines[0].ProductID = uuid.New()
		_, err := f.svc.CreatePreBill(ctx, f.business.ID, uuid.New(), req)
		assert.ErrorIs(t, err, order.ErrProductNotFound)
	})
}

func TestService_RegisterPayment_Full(t *testing.T) {
	f := newFixture(t)
	f.business.SeparateTipEntries = false
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)

	resp, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments: []PaymentInput{cashPayment(23.00)},
	})
	require.NoError(t, err)

	assert.Equal(t, "BILLED", resp.Status)
	require.NotNil(t, resp.PaidAt)
	assert.Nil(t, resp.AmountReturned)

	t.Run("one DEPOSIT_SALE ledger entry for the full amount", func(t *testing.T) {
		ops, err := f.cash.FindByOrder(ctx, f.business.ID, created.ID)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, cashregister.KindDepositSale, ops[0].Kind)
		assert.Equal(t, "23", ops[0].Amount.String())
		assert.Equal(t, valueobject.USD, ops[0].Currency)
	})

	t.Run("second attempt fails with OrderAlreadyBilled", func(t *testing.T) {
		_, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
			Payments: []PaymentInput{cashPayment(23.00)},
		})
		assert.ErrorIs(t, err, order.ErrOrderAlreadyBilled)
	})
}

func TestService_RegisterPayment_PreBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.CreatePreBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)

	// A pre-bill must go through TransformPreBillToBill first: settling it
	// directly would skip stock reservation and the operation number.
	_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments: []PaymentInput{cashPayment(23.00)},
	})
	assert.ErrorIs(t, err, order.ErrPreReceiptNotPayable)

	t.Run("partial payments are rejected too", func(t *testing.T) {
		_, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
			Payments:     []PaymentInput{cashPayment(5.00)},
			IsPartialPay: true,
		})
		assert.ErrorIs(t, err, order.ErrPreReceiptNotPayable)
	})

	t.Run("the pre-bill stays untouched", func(t *testing.T) {
		stored, err := f.orders.FindByIDForBusiness(ctx, f.business.ID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCreated, stored.Status)
		assert.True(t, stored.IsPreReceipt)
		assert.Nil(t, stored.OperationNumber)
		assert.Equal(t, "10", f.stockQty(t, f.product.ID).String())
	})

	t.Run("payment succeeds after the transform", func(t *testing.T) {
		_, err := f.svc.TransformPreBillToBill(ctx, f.business.ID, userID, created.ID, &TransformToBillRequest{})
		require.NoError(t, err)
		resp, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
			Payments: []PaymentInput{cashPayment(23.00)},
		})
		require.NoError(t, err)
		assert.Equal(t, "BILLED", resp.Status)
		assert.Equal(t, "8", f.stockQty(t, f.product.ID).String())
	})
}

func TestService_RegisterPayment_TipSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)

	_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments: []PaymentInput{cashPayment(23.00)},
	})
	require.NoError(t, err)

	ops, err := f.cash.FindByOrder(ctx, f.business.ID, created.ID)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, cashregister.KindDepositTip, ops[0].Kind)
	assert.Equal(t, "1", ops[0].Amount.String())
	assert.Equal(t, cashregister.KindDepositSale, ops[1].Kind)
	assert.Equal(t, "22", ops[1].Amount.String())
}

func TestService_RegisterPayment_Partial(t *testing.T) {
	f := newFixture(t)
	f.business.SeparateTipEntries = false
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)

	resp, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments:     []PaymentInput{cashPayment(15.00)},
		IsPartialPay: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "PAYMENT_PENDING", resp.Status)

	stored, err := f.orders.FindByIDForBusiness(ctx, f.business.ID, created.ID)
	require.NoError(t, err)
	require.Len(t, stored.PartialPayments, 1)
	assert.Equal(t, "15", stored.PartialPayments[0].Amount.String())
	require.NotNil(t, stored.PartialPayments[0].CashRegisterOperationID)

	ops, err := f.cash.FindByOrder(ctx, f.business.ID, created.ID)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, cashregister.KindDepositSale, ops[0].Kind)
	assert.Equal(t, "15", ops[0].Amount.String())

	t.Run("partial equal to the remainder is rejected", func(t *testing.T) {
		_, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
			Payments:     []PaymentInput{cashPayment(8.00)},
			IsPartialPay: true,
		})
		assert.ErrorIs(t, err, order.ErrAmountExceedsOrder)
	})

	t.Run("final payment counts earlier partials", func(t *testing.T) {
		final, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
			Payments: []PaymentInput{cashPayment(8.00)},
		})
		require.NoError(t, err)
		assert.Equal(t, "BILLED", final.Status)
	})
}

func TestService_RegisterPayment_Insufficient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)

	_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments: []PaymentInput{cashPayment(20.00)},
	})
	assert.ErrorIs(t, err, order.ErrAmountInsufficient)

	t.Run("overpay rejected when the area gives no change", func(t *testing.T) {
		f.saleArea.GiveChange = false
		_, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
			Payments: []PaymentInput{cashPayment(25.00)},
		})
		assert.ErrorIs(t, err, order.ErrAmountExceedsOrder)
		f.saleArea.GiveChange = true
	})
}

func TestService_RegisterPayment_Prepaid(t *testing.T) {
	f := newFixture(t)
	f.business.SeparateTipEntries = false
	ctx := context.Background()
	userID := uuid.New()

	prepaid, err := order.NewPrepaidPayment(f.business.ID, &f.client.ID, decimal.NewFromInt(20), valueobject.USD, order.PaymentMethodTransfer)
	require.NoError(t, err)
	require.NoError(t, f.prepaids.Save(ctx, prepaid))

	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)

	resp, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments:          []PaymentInput{cashPayment(3.00)},
		PrepaidPaymentIDs: []uuid.UUID{prepaid.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "BILLED", resp.Status)
	assert.Equal(t, order.PrepaidStatusUsed, prepaid.Status)
	require.NotNil(t, prepaid.UsedOrderID)
	assert.Equal(t, created.ID, *prepaid.UsedOrderID)

	t.Run("ledger has one entry per money source", func(t *testing.T) {
		ops, err := f.cash.FindByOrder(ctx, f.business.ID, created.ID)
		require.NoError(t, err)
		require.Len(t, ops, 2)
	})

	t.Run("prepaid cannot be consumed twice", func(t *testing.T) {
		other, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
		require.NoError(t, err)
		_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, other.ID, &RegisterPaymentRequest{
			Payments:          []PaymentInput{cashPayment(3.00)},
			PrepaidPaymentIDs: []uuid.UUID{prepaid.ID},
		})
		require.Error(t, err)
	})
}

func TestService_RefundOrder(t *testing.T) {
	f := newFixture(t)
	f.business.SeparateTipEntries = false
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments: []PaymentInput{cashPayment(23.00)},
	})
	require.NoError(t, err)

	resp, err := f.svc.RefundOrder(ctx, f.business.ID, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "REFUNDED", resp.Status)

	t.Run("compensating MANUAL_WITHDRAW for the full paid total", func(t *testing.T) {
		ops, err := f.cash.FindByOrder(ctx, f.business.ID, created.ID)
		require.NoError(t, err)
		var withdraw *cashregister.Operation
		for i := range ops {
			if ops[i].Kind == cashregister.KindManualWithdraw {
				withdraw = &ops[i]
			}
		}
		require.NotNil(t, withdraw)
		assert.Equal(t, "-23", withdraw.Amount.String())
	})

	t.Run("stock restored", func(t *testing.T) {
		assert.Equal(t, "10", f.stockQty(t, f.product.ID).String())
	})

	t.Run("pending order without partials has nothing to refund", func(t *testing.T) {
		pending, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
		require.NoError(t, err)
		_, err = f.svc.RefundOrder(ctx, f.business.ID, userID, pending.ID)
		assert.ErrorIs(t, err, order.ErrNoPartialPaymentsToRefund)
	})

	t.Run("pending order with partials refunds their sum", func(t *testing.T) {
		pending, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
		require.NoError(t, err)
		_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, pending.ID, &RegisterPaymentRequest{
			Payments:     []PaymentInput{cashPayment(5.00)},
			IsPartialPay: true,
		})
		require.NoError(t, err)

		resp, err := f.svc.RefundOrder(ctx, f.business.ID, userID, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, "REFUNDED", resp.Status)
	})
}

func TestService_CancelOrder(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("billed order in the active cycle restores stock", func(t *testing.T) {
		f := newFixture(t)
		f.business.SeparateTipEntries = false
		created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
		require.NoError(t, err)
		_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
			Payments: []PaymentInput{cashPayment(23.00)},
		})
		require.NoError(t, err)

		resp, err := f.svc.CancelOrder(ctx, f.business.ID, userID, created.ID, &CancelOrderRequest{Notes: "mistake"})
		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", resp.Status)
		assert.Equal(t, "10", f.stockQty(t, f.product.ID).String())
	})

	t.Run("billed order from a previous cycle fails and stock is untouched", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
		require.NoError(t, err)
		_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
			Payments: []PaymentInput{cashPayment(23.00)},
		})
		require.NoError(t, err)

		// Close the cycle and open a new one.
		require.NoError(t, f.cycle.Close(userID))
		next := cashregister.NewEconomicCycle(f.business.ID, userID, "shift 2")
		require.NoError(t, f.cycles.Save(ctx, next))

		_, err = f.svc.CancelOrder(ctx, f.business.ID, userID, created.ID, &CancelOrderRequest{})
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "ORDER_FROM_PREVIOUS_CYCLE", derr.Code)
		assert.Equal(t, "8", f.stockQty(t, f.product.ID).String())
	})

	t.Run("pre-bill cancellation never touches stock", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.CreatePreBill(ctx, f.business.ID, userID, f.standardBillRequest())
		require.NoError(t, err)

		_, err = f.svc.CancelOrder(ctx, f.business.ID, userID, created.ID, &CancelOrderRequest{})
		require.NoError(t, err)
		assert.Equal(t, "10", f.stockQty(t, f.product.ID).String())
	})
}

func TestService_TransformPreBillToBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.CreatePreBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)
	assert.Equal(t, "10", f.stockQty(t, f.product.ID).String())

	deadline := time.Now().Add(72 * time.Hour)
	resp, err := f.svc.TransformPreBillToBill(ctx, f.business.ID, userID, created.ID, &TransformToBillRequest{
		PaymentDeadlineAt: &deadline,
	})
	require.NoError(t, err)

	assert.Equal(t, "PAYMENT_PENDING", resp.Status)
	assert.False(t, resp.IsPreReceipt)
	require.NotNil(t, resp.OperationNumber)
	assert.Nil(t, resp.PreOperationNumber)

	t.Run("stock reservation was deferred to the transform", func(t *testing.T) {
		assert.Equal(t, "8", f.stockQty(t, f.product.ID).String())
	})

	t.Run("a bill cannot be transformed again", func(t *testing.T) {
		_, err := f.svc.TransformPreBillToBill(ctx, f.business.ID, userID, created.ID, &TransformToBillRequest{})
		require.Error(t, err)
	})
}

func TestService_EditOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)
	lineID := created.Lines[0].ID

	t.Run("reducing a line restores stock and recomputes totals", func(t *testing.T) {
		one := decimal.NewFromInt(1)
		resp, err := f.svc.EditOrder(ctx, f.business.ID, userID, created.ID, &EditOrderRequest{
			Deleted: []ReduceLineInput{{LineID: lineID, Quantity: &one}},
		})
		require.NoError(t, err)
		assert.Equal(t, "9", f.stockQty(t, f.product.ID).String())
		// 1 * 10.00 + tip 1.00 + shipping 2.00
		require.Len(t, resp.TotalToPay, 1)
		assert.Equal(t, "13", resp.TotalToPay[0].Amount.String())
	})

	t.Run("adding a line substracts stock", func(t *testing.T) {
		resp, err := f.svc.EditOrder(ctx, f.business.ID, userID, created.ID, &EditOrderRequest{
			Added: []LineInput{{
				ProductID: f.product.ID,
				Quantity:  decimal.NewFromInt(2),
				UnitPrice: PriceInput{Amount: decimal.NewFromInt(10), Currency: "USD"},
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, "7", f.stockQty(t, f.product.ID).String())
		assert.Equal(t, "33", resp.TotalToPay[0].Amount.String())
	})

	t.Run("billed orders cannot be edited", func(t *testing.T) {
		_, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
			Payments: []PaymentInput{cashPayment(33.00)},
		})
		require.NoError(t, err)
		_, err = f.svc.EditOrder(ctx, f.business.ID, userID, created.ID, &EditOrderRequest{})
		assert.ErrorIs(t, err, order.ErrOrderClosed)
	})
}

func TestService_Coupons(t *testing.T) {
	f := newFixture(t)
	f.business.SeparateTipEntries = false
	ctx := context.Background()
	userID := uuid.New()

	c, err := coupon.NewPercentCoupon(f.business.ID, "TEN", decimal.NewFromInt(10))
	require.NoError(t, err)
	limit := 1
	c.UsageLimit = &limit
	require.NoError(t, f.couponRepo.Save(ctx, c))

	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)

	// 20.00 - 10% of 20.00 + tip 1.00 + shipping 2.00
	resp, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments: []PaymentInput{cashPayment(21.00)},
		Coupons:  []string{"TEN"},
	})
	require.NoError(t, err)
	assert.Equal(t, "BILLED", resp.Status)
	require.NotNil(t, resp.CouponDiscount)
	assert.Equal(t, "2", resp.CouponDiscount.Amount.String())

	t.Run("usage incremented exactly once", func(t *testing.T) {
		assert.Equal(t, 1, c.UsageCount)
		require.Len(t, f.couponRepo.redemptions, 1)
		assert.Equal(t, created.ID, f.couponRepo.redemptions[0].OrderID)
	})

	t.Run("exhausted coupon is rejected", func(t *testing.T) {
		other, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
		require.NoError(t, err)
		_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, other.ID, &RegisterPaymentRequest{
			Payments: []PaymentInput{cashPayment(23.00)},
			Coupons:  []string{"TEN"},
		})
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "COUPON_USAGE_LIMIT", derr.Code)
	})
}

func TestService_Coupons_OneUsagePerOrder(t *testing.T) {
	f := newFixture(t)
	f.business.SeparateTipEntries = false
	ctx := context.Background()
	userID := uuid.New()

	c, err := coupon.NewPercentCoupon(f.business.ID, "TEN", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, f.couponRepo.Save(ctx, c))

	req := f.standardBillRequest()
	req.Coupons = []string{"TEN"}
	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, req)
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsageCount)
	require.Len(t, f.couponRepo.redemptions, 1)

	// Re-sending the same code at settlement releases the creation-time
	// redemption and replaces it, never stacking a second usage.
	resp, err := f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments: []PaymentInput{cashPayment(21.00)},
		Coupons:  []string{"TEN"},
	})
	require.NoError(t, err)
	assert.Equal(t, "BILLED", resp.Status)
	require.NotNil(t, resp.CouponDiscount)
	assert.Equal(t, "2", resp.CouponDiscount.Amount.String())

	assert.Equal(t, 1, c.UsageCount)
	require.Len(t, f.couponRepo.redemptions, 1)
	assert.Equal(t, created.ID, f.couponRepo.redemptions[0].OrderID)

	t.Run("settling without the code drops the earlier redemption", func(t *testing.T) {
		req := f.standardBillRequest()
		req.Coupons = []string{"TEN"}
		other, err := f.svc.CreateBill(ctx, f.business.ID, userID, req)
		require.NoError(t, err)
		assert.Equal(t, 2, c.UsageCount)

		_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, other.ID, &RegisterPaymentRequest{
			Payments: []PaymentInput{cashPayment(23.00)},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, c.UsageCount)
		require.Len(t, f.couponRepo.redemptions, 1)
	})
}

func TestService_RegisterPayment_TipEqualToDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)

	_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments:     []PaymentInput{cashPayment(22.00)},
		IsPartialPay: true,
	})
	require.NoError(t, err)

	// The final deposit is exactly the tip; it still splits into DEPOSIT_TIP
	// and leaves no zero-amount DEPOSIT_SALE behind.
	_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments: []PaymentInput{cashPayment(1.00)},
	})
	require.NoError(t, err)

	ops, err := f.cash.FindByOrder(ctx, f.business.ID, created.ID)
	require.NoError(t, err)
	var tips, sales int
	for _, op := range ops {
		switch op.Kind {
		case cashregister.KindDepositTip:
			tips++
			assert.Equal(t, "1", op.Amount.String())
		case cashregister.KindDepositSale:
			sales++
		}
	}
	assert.Equal(t, 1, tips)
	assert.Equal(t, 1, sales)
}

func TestService_ActivityRecordJobs(t *testing.T) {
	f := newFixture(t)
	f.business.SeparateTipEntries = false
	ctx := context.Background()
	userID := uuid.New()

	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, f.standardBillRequest())
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, f.business.ID, userID, created.ID, &RegisterPaymentRequest{
		Payments: []PaymentInput{cashPayment(23.00)},
	})
	require.NoError(t, err)

	var actions []string
	for _, j := range f.dispatcher.jobs {
		if j.Code == JobRegisterRecords {
			actions = append(actions, j.Params["action"].(string))
			assert.Equal(t, created.ID.String(), j.Params["order_id"])
			assert.Equal(t, userID.String(), j.Params["user_id"])
		}
	}
	assert.Equal(t, []string{"ORDER_CREATED", "ORDER_BILLED"}, actions)
}

func TestService_MarkOverdueOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	past := time.Now().Add(-time.Hour)
	req := f.standardBillRequest()
	req.PaymentDeadlineAt = &past
	created, err := f.svc.CreateBill(ctx, f.business.ID, userID, req)
	require.NoError(t, err)

	marked, err := f.svc.MarkOverdueOrders(ctx, f.business.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	stored, err := f.orders.FindByIDForBusiness(ctx, f.business.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusOverdue, stored.Status)
}

func TestService_MultiCurrencyTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := &CreateOrderRequest{
		AreaID:   f.saleArea.ID,
		ClientID: &f.client.ID,
		Lines: []LineInput{
			{
				ProductID: f.product.ID,
				Quantity:  decimal.NewFromInt(1),
				UnitPrice: PriceInput{Amount: decimal.NewFromInt(10), Currency: "USD"},
			},
			{
				ProductID: f.product.ID,
				Quantity:  decimal.NewFromInt(1),
				UnitPrice: PriceInput{Amount: decimal.NewFromInt(9), Currency: "EUR"},
			},
		},
	}

	resp, err := f.svc.CreateBill(ctx, f.business.ID, uuid.New(), req)
	require.NoError(t, err)

	// Totals are grouped per currency, never merged.
	require.Len(t, resp.TotalToPay, 2)
	assert.Equal(t, "USD", resp.TotalToPay[0].Currency)
	assert.Equal(t, "10", resp.TotalToPay[0].Amount.String())
	assert.Equal(t, "EUR", resp.TotalToPay[1].Currency)
	assert.Equal(t, "9", resp.TotalToPay[1].Amount.String())
}
