package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/salepoint/backend/internal/domain/coupon"
	"github.com/salepoint/backend/internal/domain/shared"
)

// GormCouponRepository implements coupon.Repository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByCodes resolves coupon codes for a business. Missing codes are absent
// from the result; the processor decides whether that is an error.
func (r *GormCouponRepository) FindByCodes(ctx context.Context, businessID uuid.UUID, codes []string) ([]*coupon.Coupon, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var coupons []*coupon.Coupon
	if err := r.db.WithContext(ctx).
		Preload("Products").
		Where("business_id = ? AND code IN ?", businessID, codes).
		Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// CountClientUsage counts redemptions of one coupon by one client
func (r *GormCouponRepository) CountClientUsage(ctx context.Context, businessID, couponID, clientID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&coupon.OrderReceiptCoupon{}).
		Where("business_id = ? AND coupon_id = ? AND client_id = ?", businessID, couponID, clientID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// FindByID loads one coupon of a business
func (r *GormCouponRepository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*coupon.Coupon, error) {
	var c coupon.Coupon
	if err := r.db.WithContext(ctx).
		Preload("Products").
		Where("business_id = ? AND id = ?", businessID, id).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Save persists a coupon together with its product restrictions
func (r *GormCouponRepository) Save(ctx context.Context, c *coupon.Coupon) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(c).Error
}

// RecordRedemption appends a redemption row
func (r *GormCouponRepository) RecordRedemption(ctx context.Context, rec *coupon.OrderReceiptCoupon) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// RedemptionsByOrder lists the redemption rows one order has consumed
func (r *GormCouponRepository) RedemptionsByOrder(ctx context.Context, businessID, orderID uuid.UUID) ([]*coupon.OrderReceiptCoupon, error) {
	var recs []*coupon.OrderReceiptCoupon
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND order_id = ?", businessID, orderID).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// DeleteRedemptionsByOrder removes an order's redemption rows
func (r *GormCouponRepository) DeleteRedemptionsByOrder(ctx context.Context, businessID, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("business_id = ? AND order_id = ?", businessID, orderID).
		Delete(&coupon.OrderReceiptCoupon{}).Error
}

var _ coupon.Repository = (*GormCouponRepository)(nil)
