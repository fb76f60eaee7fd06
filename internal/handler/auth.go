package handler

import (
	"net/http"
	"time"

	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/middleware"
	"carparts-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	authService service.AuthService
	cookie      CookieConfig
}

func NewAuthHandler(authService service.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(ctx, &req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, token, err := h.authService.Login(ctx, &req)
	if err != nil {
		return err
	}

	c.SetCookie(h.sessionCookie(token, h.cookie.TTL))
	return ok(c, http.StatusOK, user)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.authService.Logout(ctx, middleware.SessionToken(c, h.cookie.Name)); err != nil {
		return err
	}

	c.SetCookie(h.sessionCookie("", -1))
	return ok(c, http.StatusOK, nil)
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.authService.VerifyEmail(ctx, c.QueryParam("token")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Email verified",
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()

	me, err := h.authService.Me(ctx, middleware.CurrentUser(c))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, me)
}

func (h *AuthHandler) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateMeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	me, err := h.authService.UpdateMe(ctx, middleware.CurrentUser(c), &req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, me)
}

// sessionCookie builds the session cookie; a negative maxAge clears it.
func (h *AuthHandler) sessionCookie(value string, maxAge time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.MaxAge = int(maxAge.Seconds())
	}
	return cookie
}
