package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/money"
	"carparts-storefront/internal/query"
	"carparts-storefront/internal/repository"
	"carparts-storefront/internal/validate"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// CouponEvaluation is the outcome of applying a coupon to an order total.
type CouponEvaluation struct {
	Coupon         *model.Coupon
	OrderTotal     decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalTotal     decimal.Decimal
}

// EvaluateCoupon checks applicability in order (active and inside its
// window, then usage limit, then discount sanity) and computes a discount
// clamped to orderTotal. Both amounts are rounded half-up to cents.
// It never increments used_count.
func EvaluateCoupon(c *model.Coupon, orderTotal decimal.Decimal, now time.Time) (*CouponEvaluation, error) {
	if c == nil || !c.IsActive {
		return nil, ErrCouponNotFound
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, ErrCouponNotFound
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return nil, ErrCouponNotFound
	}

	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	if !c.DiscountValue.IsPositive() {
		return nil, ErrInvalidCoupon
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case model.DiscountPercent:
		if c.DiscountValue.GreaterThan(hundred) {
			return nil, ErrInvalidCoupon
		}
		discount = orderTotal.Mul(c.DiscountValue).Div(hundred)
	case model.DiscountFixed:
		discount = c.DiscountValue
	default:
		return nil, ErrInvalidCoupon
	}

	if discount.GreaterThan(orderTotal) {
		discount = orderTotal
	}
	discount = money.Round2(discount)

	final := money.Round2(orderTotal.Sub(discount))
	if final.IsNegative() {
		final = decimal.Zero
	}

	return &CouponEvaluation{
		Coupon:         c,
		OrderTotal:     orderTotal,
		DiscountAmount: discount,
		FinalTotal:     final,
	}, nil
}

type CouponService interface {
	Validate(ctx context.Context, req *dto.CouponValidateRequest) (*dto.CouponValidateResponse, error)
	Evaluate(ctx context.Context, code string, orderTotal decimal.Decimal) (*CouponEvaluation, error)
	List(ctx context.Context, params query.Params) (*query.Page[model.Coupon], error)
	Create(ctx context.Context, req *dto.CouponRequest) (*model.Coupon, error)
	Update(ctx context.Context, couponID int64, req *dto.CouponRequest) (*model.Coupon, error)
	Delete(ctx context.Context, couponID int64) error
}

type couponServiceImpl struct {
	couponRepo repository.CouponRepository
	validator  *validate.Validator
	now        func() time.Time
}

func NewCouponService(couponRepo repository.CouponRepository, validator *validate.Validator) CouponService {
	return &couponServiceImpl{
		couponRepo: couponRepo,
		validator:  validator,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *couponServiceImpl) Validate(ctx context.Context, req *dto.CouponValidateRequest) (*dto.CouponValidateResponse, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" || !req.OrderTotal.IsPositive() {
		return nil, apperr.Validation("code and positive order_total are required")
	}

	eval, err := s.Evaluate(ctx, code, req.OrderTotal)
	if err != nil {
		return nil, err
	}

	return &dto.CouponValidateResponse{
		Code:           eval.Coupon.Code,
		DiscountType:   eval.Coupon.DiscountType,
		DiscountValue:  eval.Coupon.DiscountValue,
		OrderTotal:     eval.OrderTotal,
		DiscountAmount: eval.DiscountAmount,
		FinalTotal:     eval.FinalTotal,
	}, nil
}

func (s *couponServiceImpl) Evaluate(ctx context.Context, code string, orderTotal decimal.Decimal) (*CouponEvaluation, error) {
	coupon, err := s.couponRepo.FindByCode(ctx, nil, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, storageErr("Failed to validate coupon", err)
	}

	return EvaluateCoupon(coupon, orderTotal, s.now())
}

func (s *couponServiceImpl) List(ctx context.Context, params query.Params) (*query.Page[model.Coupon], error) {
	page, err := s.couponRepo.List(ctx, params)
	if err != nil {
		return nil, storageErr("Failed to load coupons", err)
	}
	return page, nil
}

func (s *couponServiceImpl) Create(ctx context.Context, req *dto.CouponRequest) (*model.Coupon, error) {
	coupon := &model.Coupon{IsActive: true}
	if err := s.apply(ctx, coupon, req); err != nil {
		return nil, err
	}

	err := s.couponRepo.Create(ctx, coupon)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, apperr.Conflict("Coupon code already exists")
	}
	if err != nil {
		return nil, storageErr("Failed to create coupon", err)
	}
	return coupon, nil
}

func (s *couponServiceImpl) Update(ctx context.Context, couponID int64, req *dto.CouponRequest) (*model.Coupon, error) {
	coupon, err := s.couponRepo.FindByID(ctx, couponID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Coupon not found")
	}
	if err != nil {
		return nil, storageErr("Failed to load coupon", err)
	}

	if err := s.apply(ctx, coupon, req); err != nil {
		return nil, err
	}

	err = s.couponRepo.Update(ctx, coupon)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, apperr.Conflict("Coupon code already exists")
	}
	if err != nil {
		return nil, storageErr("Failed to update coupon", err)
	}
	return coupon, nil
}

func (s *couponServiceImpl) Delete(ctx context.Context, couponID int64) error {
	found, err := s.couponRepo.Deactivate(ctx, couponID)
	if err != nil {
		return storageErr("Failed to delete coupon", err)
	}
	if !found {
		return apperr.NotFound("Coupon not found")
	}
	return nil
}

// apply validates req and copies it onto coupon. Every failing field is
// reported at once.
func (s *couponServiceImpl) apply(ctx context.Context, coupon *model.Coupon, req *dto.CouponRequest) error {
	req.Code = strings.TrimSpace(req.Code)
	req.DiscountType = strings.TrimSpace(req.DiscountType)
	msgs := s.validator.Messages(req)

	if !req.DiscountValue.IsPositive() {
		msgs = append(msgs, "discount_value must be greater than 0")
	} else if !money.IsCents(req.DiscountValue) {
		msgs = append(msgs, "discount_value must have at most 2 decimal places")
	} else if req.DiscountType == string(model.DiscountPercent) && req.DiscountValue.GreaterThan(hundred) {
		msgs = append(msgs, "percent discount_value cannot be greater than 100")
	}
	if req.UsageLimit != nil && *req.UsageLimit < 0 {
		msgs = append(msgs, "usage_limit cannot be negative")
	}

	validFrom, okFrom := parseCouponTime(req.ValidFrom, false)
	if !okFrom {
		msgs = append(msgs, "valid_from must be a date (YYYY-MM-DD) or datetime")
	}
	validTo, okTo := parseCouponTime(req.ValidTo, true)
	if !okTo {
		msgs = append(msgs, "valid_to must be a date (YYYY-MM-DD) or datetime")
	}
	if okFrom && okTo && validFrom != nil && validTo != nil && validTo.Before(*validFrom) {
		msgs = append(msgs, "valid_to cannot be before valid_from")
	}

	if err := validationErr(msgs); err != nil {
		return err
	}

	if req.Code != coupon.Code {
		taken, err := s.couponRepo.CodeTaken(ctx, req.Code, coupon.ID)
		if err != nil {
			return storageErr("Failed to check coupon code", err)
		}
		if taken {
			return apperr.Conflict("Coupon code already exists")
		}
	}

	coupon.Code = req.Code
	coupon.DiscountType = model.DiscountType(req.DiscountType)
	coupon.DiscountValue = req.DiscountValue
	coupon.ValidFrom = validFrom
	coupon.ValidTo = validTo
	coupon.UsageLimit = req.UsageLimit
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	return nil
}

var couponTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"}

// parseCouponTime reads an optional bound. A bare date used as an upper
// bound covers the whole day.
func parseCouponTime(raw string, upper bool) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	for _, layout := range couponTimeLayouts {
		t, err := time.ParseInLocation(layout, raw, time.UTC)
		if err != nil {
			continue
		}
		t = t.UTC()
		if layout == "2006-01-02" && upper {
			t = query.EndOfDay(t)
		}
		return &t, true
	}
	return nil, false
}
