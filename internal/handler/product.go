package handler

import (
	"net/http"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

// ProductHandler serves the admin product pages.
type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

func (h *ProductHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.productService.List(ctx, listParams(c))
	if err != nil {
		return err
	}

	return page(c, result)
}

func (h *ProductHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	product, err := h.productService.Create(ctx, &req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusCreated, product)
}

func (h *ProductHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	product, err := h.productService.Update(ctx, idParam(c), &req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, product)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.productService.Delete(ctx, idParam(c)); err != nil {
		return err
	}

	return ok(c, http.StatusOK, nil)
}

// UploadImage accepts a multipart "image" field.
func (h *ProductHandler) UploadImage(c echo.Context) error {
	ctx := c.Request().Context()

	fh, err := c.FormFile("image")
	if err != nil {
		return apperr.Validation("No image uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Validation("No image uploaded")
	}
	defer f.Close()

	url, err := h.productService.UploadImage(ctx, f)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"url":    url,
	})
}
