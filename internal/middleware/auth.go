package middleware

import (
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/service"

	"github.com/labstack/echo/v4"
)

const currentUserKey = "current_user"

// SessionToken returns the session cookie value, or "" when absent.
func SessionToken(c echo.Context, cookieName string) string {
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// CurrentUser returns the user stored by RequireLogin or RequireAdmin.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(currentUserKey).(*model.User)
	return user
}

// RequireLogin resolves the session cookie to a user or stops the request
// with 401.
func RequireLogin(guard service.AuthGuard, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := guard.RequireLogin(c.Request().Context(), SessionToken(c, cookieName))
			if err != nil {
				return err
			}
			c.Set(currentUserKey, user)
			return next(c)
		}
	}
}

// RequireAdmin is RequireLogin plus a role check: 401 without a session,
// 403 for non-admins.
func RequireAdmin(guard service.AuthGuard, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := guard.RequireAdmin(c.Request().Context(), SessionToken(c, cookieName))
			if err != nil {
				return err
			}
			c.Set(currentUserKey, user)
			return next(c)
		}
	}
}
