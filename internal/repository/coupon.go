package repository

import (
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/query"
	"context"

	"gorm.io/gorm"
)

var couponListSpec = &query.Spec{
	Table:         "coupons",
	SearchColumns: []string{"code"},
	Filters: []query.Filter{
		{Param: "discount_type", Column: "discount_type", Kind: query.Enum, Allowed: []string{string(model.DiscountPercent), string(model.DiscountFixed)}},
		{Param: "is_active", Column: "is_active", Kind: query.Bool},
		{Param: "valid_on", Kind: query.Custom, Apply: func(db *gorm.DB, raw string) (*gorm.DB, bool) {
			day, ok := query.ParseDay(raw)
			if !ok {
				return db, false
			}
			return db.Where(
				"(valid_from IS NULL OR valid_from <= ?) AND (valid_to IS NULL OR valid_to >= ?)",
				query.EndOfDay(day), day,
			), true
		}},
	},
	Sorts: map[string]string{
		"newest":    "created_at DESC",
		"code_asc":  "code ASC",
		"code_desc": "code DESC",
	},
	DefaultSort: "newest",
	TieBreaker:  "id DESC",
}

type CouponRepository interface {
	Create(ctx context.Context, coupon *model.Coupon) error
	FindByID(ctx context.Context, couponID int64) (*model.Coupon, error)
	FindByCode(ctx context.Context, tx *gorm.DB, code string) (*model.Coupon, error)
	CodeTaken(ctx context.Context, code string, exceptCouponID int64) (bool, error)
	List(ctx context.Context, params query.Params) (*query.Page[model.Coupon], error)
	Update(ctx context.Context, coupon *model.Coupon) error
	Deactivate(ctx context.Context, couponID int64) (bool, error)
	Redeem(ctx context.Context, tx *gorm.DB, code string) (bool, error)
}

type couponRepoImpl struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepoImpl{db: db}
}

func (r *couponRepoImpl) Create(ctx context.Context, coupon *model.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *couponRepoImpl) FindByID(ctx context.Context, couponID int64) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).
		Where("id = ?", couponID).
		First(&coupon).Error

	if err != nil {
		return nil, err
	}

	return &coupon, nil
}

func (r *couponRepoImpl) FindByCode(ctx context.Context, tx *gorm.DB, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := conn(r.db, tx).WithContext(ctx).
		Where("code = ?", code).
		First(&coupon).Error

	if err != nil {
		return nil, err
	}

	return &coupon, nil
}

func (r *couponRepoImpl) CodeTaken(ctx context.Context, code string, exceptCouponID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Coupon{}).
		Where("code = ? AND id <> ?", code, exceptCouponID).
		Count(&count).Error

	return count > 0, err
}

func (r *couponRepoImpl) List(ctx context.Context, params query.Params) (*query.Page[model.Coupon], error) {
	return query.Run[model.Coupon](ctx, r.db, couponListSpec, params)
}

func (r *couponRepoImpl) Update(ctx context.Context, coupon *model.Coupon) error {
	return r.db.WithContext(ctx).Model(coupon).
		Select("code", "discount_type", "discount_value", "valid_from", "valid_to", "is_active", "usage_limit").
		Updates(coupon).Error
}

// Deactivate is the coupon delete: the row is kept with is_active cleared.
// Deactivating an inactive coupon still reports it as found.
func (r *couponRepoImpl) Deactivate(ctx context.Context, couponID int64) (bool, error) {
	found, err := exists(ctx, r.db, &model.Coupon{}, couponID)
	if err != nil || !found {
		return false, err
	}

	err = r.db.WithContext(ctx).Model(&model.Coupon{}).
		Where("id = ?", couponID).
		Update("is_active", false).Error
	return err == nil, err
}

// Redeem increments used_count only while the coupon is active and below its
// usage limit, so concurrent redemptions can never exceed the limit.
// It reports whether a use was recorded.
func (r *couponRepoImpl) Redeem(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	res := conn(r.db, tx).WithContext(ctx).Model(&model.Coupon{}).
		Where("code = ? AND is_active = ? AND (usage_limit IS NULL OR used_count < usage_limit)", code, true).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	return res.RowsAffected > 0, res.Error
}
