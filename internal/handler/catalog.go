package handler

import (
	"net/http"

	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

// CatalogHandler serves the public storefront reads.
type CatalogHandler struct {
	productService service.ProductService
	couponService  service.CouponService
}

func NewCatalogHandler(productService service.ProductService, couponService service.CouponService) *CatalogHandler {
	return &CatalogHandler{
		productService: productService,
		couponService:  couponService,
	}
}

func (h *CatalogHandler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.productService.List(ctx, listParams(c))
	if err != nil {
		return err
	}

	return page(c, result)
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	product, err := h.productService.Get(ctx, idParam(c))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, product)
}

func (h *CatalogHandler) Categories(c echo.Context) error {
	ctx := c.Request().Context()

	categories, err := h.productService.Categories(ctx)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, categories)
}

func (h *CatalogHandler) ValidateCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CouponValidateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.couponService.Validate(ctx, &req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, result)
}
