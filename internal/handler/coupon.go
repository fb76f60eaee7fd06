package handler

import (
	"net/http"

	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

// CouponHandler serves the admin coupon pages.
type CouponHandler struct {
	couponService service.CouponService
}

func NewCouponHandler(couponService service.CouponService) *CouponHandler {
	return &CouponHandler{
		couponService: couponService,
	}
}

func (h *CouponHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.couponService.List(ctx, listParams(c))
	if err != nil {
		return err
	}

	return page(c, result)
}

func (h *CouponHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CouponRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	coupon, err := h.couponService.Create(ctx, &req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusCreated, coupon)
}

func (h *CouponHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CouponRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	coupon, err := h.couponService.Update(ctx, idParam(c), &req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, coupon)
}

// Delete deactivates the coupon; the row is kept.
func (h *CouponHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.couponService.Delete(ctx, idParam(c)); err != nil {
		return err
	}

	return ok(c, http.StatusOK, nil)
}
