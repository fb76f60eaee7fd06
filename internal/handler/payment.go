package handler

import (
	"io"
	"net/http"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/middleware"
	"carparts-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	checkoutService service.CheckoutService
}

func NewPaymentHandler(checkoutService service.CheckoutService) *PaymentHandler {
	return &PaymentHandler{
		checkoutService: checkoutService,
	}
}

type checkoutEnvelope struct {
	Status string `json:"status"`
	*dto.CheckoutResponse
}

type sessionStatusEnvelope struct {
	Status string `json:"status"`
	*dto.SessionStatusResponse
}

func (h *PaymentHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.checkoutService.CreateCheckout(ctx, middleware.CurrentUser(c), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, checkoutEnvelope{Status: "ok", CheckoutResponse: result})
}

func (h *PaymentHandler) SessionStatus(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.checkoutService.SessionStatus(ctx, c.QueryParam("session_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sessionStatusEnvelope{Status: "ok", SessionStatusResponse: result})
}

// StripeWebhook needs the raw body: the signature covers the exact bytes sent.
func (h *PaymentHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return apperr.Validation("Invalid event payload")
	}

	if err := h.checkoutService.HandleWebhook(ctx, body, c.Request().Header.Get("Stripe-Signature")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
