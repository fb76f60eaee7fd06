package handler

import (
	"net/http"

	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/middleware"
	"carparts-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

// UserHandler serves the admin user pages.
type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Ping confirms the caller holds an admin session.
func (h *UserHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"admin":  middleware.CurrentUser(c),
	})
}

func (h *UserHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.userService.List(ctx, listParams(c))
	if err != nil {
		return err
	}

	return page(c, result)
}

func (h *UserHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	detail, err := h.userService.Get(ctx, idParam(c))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, detail)
}

func (h *UserHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UserUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.userService.Update(ctx, middleware.CurrentUser(c), idParam(c), &req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, user)
}

func (h *UserHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.userService.Delete(ctx, middleware.CurrentUser(c), idParam(c)); err != nil {
		return err
	}

	return ok(c, http.StatusOK, nil)
}
