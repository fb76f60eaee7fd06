package handler

import (
	"net/http"

	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func (h *OrderHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.orderService.List(ctx, listParams(c))
	if err != nil {
		return err
	}

	return page(c, result)
}

func (h *OrderHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	detail, err := h.orderService.Get(ctx, idParam(c))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, detail)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.OrderStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	order, err := h.orderService.UpdateStatus(ctx, idParam(c), &req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, order)
}
